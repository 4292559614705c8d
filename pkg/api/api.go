// Package api contains the shared JSON structs of the published
// raffle record. The scheduler and CLI both speak this format, and
// anyone holding a publication can recompute the draw with the
// documented formula.
package api

import "time"

// RaffleEntrant is one entrant as submitted. Order matters: the
// derived random number depends on the entrant's index.
type RaffleEntrant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// RaffleOutcome is one drawn entrant with its final position inside
// its partition.
type RaffleOutcome struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Position int     `json:"position"`
	Number   float64 `json:"number"`
}

// RaffleAuditEntry records the derived number for one entrant at its
// input index.
type RaffleAuditEntry struct {
	ID     string  `json:"id"`
	Index  int     `json:"index"`
	Number float64 `json:"number"`
}

// RafflePublication is the full public record of an executed raffle.
type RafflePublication struct {
	ShowcaseID string             `json:"showcase_id,omitempty"`
	Seed       string             `json:"seed"`
	Capacity   int                `json:"capacity"`
	ExecutedAt time.Time          `json:"executed_at"`
	Entrants   []RaffleEntrant    `json:"entrants"`
	Selected   []RaffleOutcome    `json:"selected"`
	Waitlist   []RaffleOutcome    `json:"waitlist,omitempty"`
	Audit      []RaffleAuditEntry `json:"audit,omitempty"`
}
