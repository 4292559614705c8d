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
	"showplane/internal/timeline"
)

const showcaseColumns = `id, title, registration_opens_at, registration_closes_at,
	raffle_at, event_at, status, raffle_seed, raffle_executed_at,
	capacity, prize, phase_plan, voting_opened_at, voting_closed_at,
	created_at, updated_at`

// CreateShowcase inserts a new showcase row.
func (s *Store) CreateShowcase(ctx context.Context, sc *store.Showcase) error {
	query := `
		INSERT INTO showcases (id, title, registration_opens_at, registration_closes_at,
			raffle_at, event_at, status, raffle_seed, capacity, prize, phase_plan,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var plan interface{}
	if len(sc.PhasePlan) > 0 {
		raw, err := json.Marshal(sc.PhasePlan)
		if err != nil {
			return fmt.Errorf("failed to marshal phase plan: %w", err)
		}
		plan = raw
	}

	_, err := s.db.ExecContext(ctx, query,
		sc.ID,
		sc.Title,
		sc.RegistrationOpensAt,
		sc.RegistrationClosesAt,
		sc.RaffleAt,
		sc.EventAt,
		sc.Status,
		sc.RaffleSeed,
		sc.Capacity,
		sc.Prize,
		plan,
		sc.CreatedAt,
		sc.UpdatedAt,
	)
	return err
}

// GetShowcaseByID returns a showcase by its ID.
func (s *Store) GetShowcaseByID(ctx context.Context, id uuid.UUID) (*store.Showcase, error) {
	query := "SELECT " + showcaseColumns + " FROM showcases WHERE id = $1"

	sc, err := scanShowcase(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return sc, err
}

// ListRafflePending returns showcases whose raffle has not executed
// yet, ordered by scheduled raffle time. The caller applies the
// registration-closed and catch-up window checks against its own
// clock.
func (s *Store) ListRafflePending(ctx context.Context) ([]*store.Showcase, error) {
	query := "SELECT " + showcaseColumns + ` FROM showcases
		WHERE raffle_executed_at IS NULL
		  AND status NOT IN ('completed', 'cancelled')
		ORDER BY raffle_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("raffle pending query failed: %w", err)
	}
	defer rows.Close()

	return collectShowcases(rows)
}

// NearestLive returns the showcase closest to its live window: one
// explicitly live, or the next whose event time is ahead of or within
// the last 24 hours.
func (s *Store) NearestLive(ctx context.Context, now time.Time) (*store.Showcase, error) {
	query := "SELECT " + showcaseColumns + ` FROM showcases
		WHERE status NOT IN ('completed', 'cancelled', 'draft')
		  AND (status IN ('live', 'voting') OR event_at >= $1)
		ORDER BY event_at ASC
		LIMIT 1`

	sc, err := scanShowcase(s.db.QueryRowContext(ctx, query, now.Add(-24*time.Hour)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return sc, err
}

// UpdateShowcaseStatus sets the lifecycle status.
func (s *Store) UpdateShowcaseStatus(ctx context.Context, id uuid.UUID, status store.ShowcaseStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE showcases
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	return err
}

// MarkRaffleExecuted stamps the seed and execution time in a single
// conditional update. The WHERE clause is the check-and-set guard:
// only the caller that flips raffle_executed_at from NULL owns the
// raffle's side effects.
func (s *Store) MarkRaffleExecuted(ctx context.Context, id uuid.UUID, seed string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE showcases
		SET raffle_seed = $1, raffle_executed_at = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND raffle_executed_at IS NULL
	`, seed, at, store.ShowcaseRaffleCompleted, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark raffle executed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SetVotingWindow records the voting open/close instants.
func (s *Store) SetVotingWindow(ctx context.Context, id uuid.UUID, openedAt, closedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE showcases
		SET voting_opened_at = COALESCE($1, voting_opened_at),
		    voting_closed_at = COALESCE($2, voting_closed_at),
		    updated_at = NOW()
		WHERE id = $3
	`, openedAt, closedAt, id)
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShowcase(row rowScanner) (*store.Showcase, error) {
	var sc store.Showcase
	var plan []byte

	err := row.Scan(
		&sc.ID,
		&sc.Title,
		&sc.RegistrationOpensAt,
		&sc.RegistrationClosesAt,
		&sc.RaffleAt,
		&sc.EventAt,
		&sc.Status,
		&sc.RaffleSeed,
		&sc.RaffleExecutedAt,
		&sc.Capacity,
		&sc.Prize,
		&plan,
		&sc.VotingOpenedAt,
		&sc.VotingClosedAt,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(plan) > 0 {
		var cfgs []timeline.PhaseConfig
		if err := json.Unmarshal(plan, &cfgs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal phase plan: %w", err)
		}
		sc.PhasePlan = cfgs
	}

	return &sc, nil
}

func collectShowcases(rows *sql.Rows) ([]*store.Showcase, error) {
	var out []*store.Showcase
	for rows.Next() {
		sc, err := scanShowcase(rows)
		if err != nil {
			return nil, fmt.Errorf("showcase scan failed: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
