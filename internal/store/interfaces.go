package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("store: not found")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx.
// This allows passing either a connection pool or an active
// transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// ShowcaseStore handles persistence of showcase events.
type ShowcaseStore interface {
	// CreateShowcase inserts a new showcase.
	CreateShowcase(ctx context.Context, s *Showcase) error

	// GetShowcaseByID returns a showcase by its ID, or ErrNotFound.
	GetShowcaseByID(ctx context.Context, id uuid.UUID) (*Showcase, error)

	// ListRafflePending returns showcases whose raffle is scheduled
	// but not yet executed, ordered by raffle time ascending.
	ListRafflePending(ctx context.Context) ([]*Showcase, error)

	// NearestLive returns the showcase closest to its live window:
	// currently live, started within the last 24 hours, or the next
	// upcoming one. ErrNotFound when no candidate exists.
	NearestLive(ctx context.Context, now time.Time) (*Showcase, error)

	// UpdateShowcaseStatus sets the lifecycle status.
	UpdateShowcaseStatus(ctx context.Context, id uuid.UUID, status ShowcaseStatus) error

	// MarkRaffleExecuted conditionally stamps the raffle seed and
	// execution time. It succeeds only when no execution timestamp
	// is recorded yet; the returned bool reports whether this call
	// claimed the raffle.
	MarkRaffleExecuted(ctx context.Context, id uuid.UUID, seed string, at time.Time) (bool, error)

	// SetVotingWindow records the voting open/close instants.
	SetVotingWindow(ctx context.Context, id uuid.UUID, openedAt, closedAt *time.Time) error
}

// ContestantStore handles persistence of showcase entrants.
type ContestantStore interface {
	// CreateContestant inserts a new entrant.
	CreateContestant(ctx context.Context, c *Contestant) error

	// ListContestants returns all entrants of a showcase ordered by
	// submission time. This order is the raffle input order.
	ListContestants(ctx context.Context, showcaseID uuid.UUID) ([]*Contestant, error)

	// ListSelected returns selected entrants ordered by raffle
	// position ascending.
	ListSelected(ctx context.Context, showcaseID uuid.UUID) ([]*Contestant, error)

	// SetRaffleOutcome records one entrant's raffle result.
	SetRaffleOutcome(ctx context.Context, id uuid.UUID, status ContestantStatus, position int, number float64) error

	// DeleteNotSelected removes every entrant of the showcase that
	// was neither selected nor waitlisted, returning how many rows
	// were deleted.
	DeleteNotSelected(ctx context.Context, showcaseID uuid.UUID) (int64, error)

	// SetWinner flags the contestant as the showcase winner.
	SetWinner(ctx context.Context, id uuid.UUID, wonAt time.Time) error
}

// TimelineStore handles persistence of live-event timelines.
type TimelineStore interface {
	// CreateTimeline inserts a new timeline.
	CreateTimeline(ctx context.Context, t *Timeline) error

	// GetTimelineByShowcase returns the showcase's timeline, or
	// ErrNotFound.
	GetTimelineByShowcase(ctx context.Context, showcaseID uuid.UUID) (*Timeline, error)

	// ListScheduledTimelines returns timelines not yet live.
	ListScheduledTimelines(ctx context.Context) ([]*Timeline, error)

	// ListLiveTimelines returns timelines currently live.
	ListLiveTimelines(ctx context.Context) ([]*Timeline, error)

	// SaveTimeline persists the timeline's mutable state: status,
	// paused flag, phases, slots, advertisements, timestamps, and
	// the winner announcement.
	SaveTimeline(ctx context.Context, t *Timeline) error

	// MarkTimelineEnded sets the timeline ended at the given time.
	MarkTimelineEnded(ctx context.Context, id uuid.UUID, at time.Time) error
}
