package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"showplane/internal/store"
)

const timelineColumns = `id, showcase_id, status, paused, phases, performances,
	advertisements, started_at, ended_at, winner, created_at, updated_at`

// CreateTimeline inserts a new timeline row. Phases, slots, and
// advertisements are stored as JSON since only the scheduler
// read-modify-writes them.
func (s *Store) CreateTimeline(ctx context.Context, t *store.Timeline) error {
	phases, performances, ads, winner, err := marshalTimeline(t)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO timelines (id, showcase_id, status, paused, phases, performances,
			advertisements, started_at, ended_at, winner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.db.ExecContext(ctx, query,
		t.ID,
		t.ShowcaseID,
		t.Status,
		t.Paused,
		phases,
		performances,
		ads,
		t.StartedAt,
		t.EndedAt,
		winner,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

// GetTimelineByShowcase returns the showcase's timeline.
func (s *Store) GetTimelineByShowcase(ctx context.Context, showcaseID uuid.UUID) (*store.Timeline, error) {
	query := "SELECT " + timelineColumns + " FROM timelines WHERE showcase_id = $1"

	t, err := scanTimeline(s.db.QueryRowContext(ctx, query, showcaseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// ListScheduledTimelines returns timelines not yet live.
func (s *Store) ListScheduledTimelines(ctx context.Context) ([]*store.Timeline, error) {
	return s.listTimelinesByStatus(ctx, store.TimelineScheduled)
}

// ListLiveTimelines returns timelines currently live.
func (s *Store) ListLiveTimelines(ctx context.Context) ([]*store.Timeline, error) {
	return s.listTimelinesByStatus(ctx, store.TimelineLive)
}

func (s *Store) listTimelinesByStatus(ctx context.Context, status store.TimelineStatus) ([]*store.Timeline, error) {
	query := "SELECT " + timelineColumns + ` FROM timelines
		WHERE status = $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("timeline query failed: %w", err)
	}
	defer rows.Close()

	var out []*store.Timeline
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			return nil, fmt.Errorf("timeline scan failed: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountLiveTimelines returns the number of live timelines. Used by
// the metrics gauge, so it must stay cheap.
func (s *Store) CountLiveTimelines(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM timelines WHERE status = $1",
		store.TimelineLive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("timeline count failed: %w", err)
	}
	return count, nil
}

// SaveTimeline persists the timeline's mutable state.
func (s *Store) SaveTimeline(ctx context.Context, t *store.Timeline) error {
	phases, performances, ads, winner, err := marshalTimeline(t)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE timelines
		SET status = $1, paused = $2, phases = $3, performances = $4,
		    advertisements = $5, started_at = $6, ended_at = $7, winner = $8,
		    updated_at = NOW()
		WHERE id = $9
	`,
		t.Status,
		t.Paused,
		phases,
		performances,
		ads,
		t.StartedAt,
		t.EndedAt,
		winner,
		t.ID,
	)
	return err
}

// MarkTimelineEnded sets the timeline ended at the given time.
func (s *Store) MarkTimelineEnded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE timelines
		SET status = $1, ended_at = $2, updated_at = NOW()
		WHERE id = $3
	`, store.TimelineEnded, at, id)
	return err
}

func marshalTimeline(t *store.Timeline) (phases, performances, ads []byte, winner interface{}, err error) {
	if phases, err = json.Marshal(orEmpty(t.Phases)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal phases: %w", err)
	}
	if performances, err = json.Marshal(orEmpty(t.Performances)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal performances: %w", err)
	}
	if ads, err = json.Marshal(orEmpty(t.Advertisements)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal advertisements: %w", err)
	}
	if t.Winner != nil {
		raw, err := json.Marshal(t.Winner)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to marshal winner announcement: %w", err)
		}
		winner = raw
	}
	return phases, performances, ads, winner, nil
}

// orEmpty keeps JSON columns as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanTimeline(row rowScanner) (*store.Timeline, error) {
	var t store.Timeline
	var phases, performances, ads, winner []byte

	err := row.Scan(
		&t.ID,
		&t.ShowcaseID,
		&t.Status,
		&t.Paused,
		&phases,
		&performances,
		&ads,
		&t.StartedAt,
		&t.EndedAt,
		&winner,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(phases, &t.Phases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal phases: %w", err)
	}
	if err := json.Unmarshal(performances, &t.Performances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal performances: %w", err)
	}
	if err := json.Unmarshal(ads, &t.Advertisements); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advertisements: %w", err)
	}
	if len(winner) > 0 {
		var w store.WinnerAnnouncement
		if err := json.Unmarshal(winner, &w); err != nil {
			return nil, fmt.Errorf("failed to unmarshal winner announcement: %w", err)
		}
		t.Winner = &w
	}

	return &t, nil
}
