package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"showplane/internal/store"
)

const contestantColumns = `id, showcase_id, user_id, title, video_duration_seconds,
	status, raffle_position, raffle_number, votes, is_winner, won_at,
	created_at, updated_at`

// CreateContestant inserts a new entrant row.
func (s *Store) CreateContestant(ctx context.Context, c *store.Contestant) error {
	query := `
		INSERT INTO contestants (id, showcase_id, user_id, title, video_duration_seconds,
			status, votes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID,
		c.ShowcaseID,
		c.UserID,
		c.Title,
		c.VideoDuration.Seconds(),
		c.Status,
		c.Votes,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

// ListContestants returns all entrants of a showcase ordered by
// submission time. This order is the raffle input order and must be
// stable across reads for the raffle to be verifiable.
func (s *Store) ListContestants(ctx context.Context, showcaseID uuid.UUID) ([]*store.Contestant, error) {
	query := "SELECT " + contestantColumns + ` FROM contestants
		WHERE showcase_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, showcaseID)
	if err != nil {
		return nil, fmt.Errorf("contestant query failed: %w", err)
	}
	defer rows.Close()

	return collectContestants(rows)
}

// ListSelected returns selected entrants ordered by raffle position.
func (s *Store) ListSelected(ctx context.Context, showcaseID uuid.UUID) ([]*store.Contestant, error) {
	query := "SELECT " + contestantColumns + ` FROM contestants
		WHERE showcase_id = $1 AND status = $2
		ORDER BY raffle_position ASC`

	rows, err := s.db.QueryContext(ctx, query, showcaseID, store.ContestantSelected)
	if err != nil {
		return nil, fmt.Errorf("selected contestant query failed: %w", err)
	}
	defer rows.Close()

	return collectContestants(rows)
}

// SetRaffleOutcome records one entrant's raffle result.
func (s *Store) SetRaffleOutcome(ctx context.Context, id uuid.UUID, status store.ContestantStatus, position int, number float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE contestants
		SET status = $1, raffle_position = $2, raffle_number = $3, updated_at = NOW()
		WHERE id = $4
	`, status, position, number, id)
	return err
}

// DeleteNotSelected removes every entrant of the showcase that the
// raffle neither selected nor waitlisted.
func (s *Store) DeleteNotSelected(ctx context.Context, showcaseID uuid.UUID) (int64, error) {
	kept := []string{string(store.ContestantSelected), string(store.ContestantWaitlisted)}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM contestants
		WHERE showcase_id = $1 AND status <> ALL($2)
	`, showcaseID, pq.Array(kept))
	if err != nil {
		return 0, fmt.Errorf("failed to delete non-selected contestants: %w", err)
	}

	return res.RowsAffected()
}

// SetWinner flags the contestant as the showcase winner.
func (s *Store) SetWinner(ctx context.Context, id uuid.UUID, wonAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE contestants
		SET is_winner = TRUE, won_at = $1, updated_at = NOW()
		WHERE id = $2
	`, wonAt, id)
	return err
}

func scanContestant(row rowScanner) (*store.Contestant, error) {
	var c store.Contestant
	var seconds float64

	err := row.Scan(
		&c.ID,
		&c.ShowcaseID,
		&c.UserID,
		&c.Title,
		&seconds,
		&c.Status,
		&c.RafflePosition,
		&c.RaffleNumber,
		&c.Votes,
		&c.IsWinner,
		&c.WonAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.VideoDuration = time.Duration(seconds * float64(time.Second))
	return &c, nil
}

func collectContestants(rows *sql.Rows) ([]*store.Contestant, error) {
	var out []*store.Contestant
	for rows.Next() {
		c, err := scanContestant(rows)
		if err != nil {
			return nil, fmt.Errorf("contestant scan failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
