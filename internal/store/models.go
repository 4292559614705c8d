// Package store contains the database layer for showplane.
package store

import (
	"time"

	"github.com/google/uuid"

	"showplane/internal/timeline"
)

// ShowcaseStatus is the lifecycle state of a showcase.
type ShowcaseStatus string

const (
	ShowcaseDraft           ShowcaseStatus = "draft"
	ShowcaseNomination      ShowcaseStatus = "nomination"
	ShowcaseUpcoming        ShowcaseStatus = "upcoming"
	ShowcaseRaffleCompleted ShowcaseStatus = "raffle_completed"
	ShowcaseLive            ShowcaseStatus = "live"
	ShowcaseVoting          ShowcaseStatus = "voting"
	ShowcaseCompleted       ShowcaseStatus = "completed"
	ShowcaseCancelled       ShowcaseStatus = "cancelled"
)

// Showcase is one scheduled talent-showcase event. Rows are never
// deleted, only status-transitioned.
type Showcase struct {
	ID                   uuid.UUID
	Title                string
	RegistrationOpensAt  time.Time
	RegistrationClosesAt time.Time
	RaffleAt             time.Time
	EventAt              time.Time
	Status               ShowcaseStatus
	RaffleSeed           string
	// RaffleExecutedAt marks the raffle as already executed. Its
	// presence is the idempotency guard for the raffle sweep.
	RaffleExecutedAt *time.Time
	Capacity         int
	Prize            string
	// PhasePlan overrides the default phase set and order. Empty
	// means timeline.DefaultPhases().
	PhasePlan      []timeline.PhaseConfig
	VotingOpenedAt *time.Time
	VotingClosedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DerivedStatus computes the lifecycle status implied by the
// showcase's date fields. Scheduler-owned states (live, voting) and
// terminal states (completed, cancelled) are sticky.
func (s *Showcase) DerivedStatus(now time.Time) ShowcaseStatus {
	switch s.Status {
	case ShowcaseLive, ShowcaseVoting, ShowcaseCompleted, ShowcaseCancelled:
		return s.Status
	}
	if s.RaffleExecutedAt != nil {
		return ShowcaseRaffleCompleted
	}
	if now.Before(s.RegistrationOpensAt) {
		return ShowcaseDraft
	}
	if now.Before(s.RegistrationClosesAt) {
		return ShowcaseNomination
	}
	return ShowcaseUpcoming
}

// ContestantStatus is the submission state of a contestant.
type ContestantStatus string

const (
	ContestantSubmitted     ContestantStatus = "submitted"
	ContestantPendingRaffle ContestantStatus = "pending_raffle"
	ContestantSelected      ContestantStatus = "selected"
	ContestantWaitlisted    ContestantStatus = "waitlisted"
	ContestantNotSelected   ContestantStatus = "not_selected"
	ContestantWithdrawn     ContestantStatus = "withdrawn"
)

// Contestant is one entrant tied to exactly one showcase and one
// submitting user. Entrants neither selected nor waitlisted are
// hard-deleted once the showcase's raffle executes.
type Contestant struct {
	ID         uuid.UUID
	ShowcaseID uuid.UUID
	UserID     uuid.UUID
	Title      string
	// VideoDuration is the actual recorded media length, the source
	// of truth for the entrant's performance slot.
	VideoDuration  time.Duration
	Status         ContestantStatus
	RafflePosition int
	// RaffleNumber is the derived random value in [0,1), kept at
	// audit precision for public verification.
	RaffleNumber float64
	Votes        int
	IsWinner     bool
	WonAt        *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TimelineStatus is the lifecycle state of a timeline.
type TimelineStatus string

const (
	TimelineScheduled TimelineStatus = "scheduled"
	TimelineLive      TimelineStatus = "live"
	TimelineEnded     TimelineStatus = "ended"
)

// TiedCandidate is one contestant in a reported tie.
type TiedCandidate struct {
	ContestantID uuid.UUID `json:"contestant_id"`
	Name         string    `json:"name"`
	Votes        int       `json:"votes"`
}

// WinnerAnnouncement is the persisted outcome of winner resolution.
// Its presence on a timeline is the idempotency guard against
// resolving the winner twice.
type WinnerAnnouncement struct {
	ContestantID   *uuid.UUID      `json:"contestant_id,omitempty"`
	Name           string          `json:"name,omitempty"`
	Votes          int             `json:"votes"`
	TotalVotes     int             `json:"total_votes"`
	NoWinner       bool            `json:"no_winner"`
	Tie            bool            `json:"tie"`
	TiedCandidates []TiedCandidate `json:"tied_candidates,omitempty"`
	Reason         string          `json:"reason"`
	AnnouncedAt    time.Time       `json:"announced_at"`
}

// Timeline is the live-event schedule for one showcase, one-to-one.
// Only the scheduler writes it. The embedded timeline.Timeline holds
// phases, performance slots, and recorded advertisements.
type Timeline struct {
	ID         uuid.UUID
	ShowcaseID uuid.UUID
	Status     TimelineStatus
	Paused     bool
	timeline.Timeline
	StartedAt *time.Time
	EndedAt   *time.Time
	Winner    *WinnerAnnouncement
	CreatedAt time.Time
	UpdatedAt time.Time
}
