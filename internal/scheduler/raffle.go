package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"showplane/internal/notify"
	"showplane/internal/raffle"
	"showplane/internal/store"
)

// sweepRaffles executes due raffles. A raffle runs when registration
// has closed, no execution timestamp is recorded, and the scheduled
// time lies within the catch-up window. The conditional
// MarkRaffleExecuted update is the idempotency guard: only the call
// that flips the timestamp applies deletions and notifications.
func (s *Scheduler) sweepRaffles(ctx context.Context, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	pending, err := s.stores.ListRafflePending(opCtx)
	cancel()
	if err != nil {
		s.fail(ctx, "raffle sweep: listing pending showcases failed", "error", err)
		return
	}

	for _, sc := range pending {
		if sc.RaffleExecutedAt != nil {
			continue
		}
		if now.Before(sc.RegistrationClosesAt) || now.Before(sc.RaffleAt) {
			continue
		}
		if overdue := now.Sub(sc.RaffleAt); overdue > s.config.RaffleCatchup {
			s.logger.WarnContext(ctx, "raffle past catch-up window, skipping",
				"showcase_id", sc.ID.String(),
				"scheduled_at", sc.RaffleAt,
				"overdue", overdue.String())
			continue
		}

		if err := s.executeRaffle(ctx, sc, now); err != nil {
			s.fail(ctx, "raffle execution failed",
				"showcase_id", sc.ID.String(), "error", err)
		}
	}
}

func (s *Scheduler) executeRaffle(ctx context.Context, sc *store.Showcase, now time.Time) error {
	opCtx, cancel := s.opCtx(ctx)
	contestants, err := s.stores.ListContestants(opCtx, sc.ID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load entrants: %w", err)
	}

	// Withdrawn entrants do not enter the draw but are pruned with
	// the non-selected afterwards.
	var entrants []raffle.Entrant
	byID := make(map[string]*store.Contestant, len(contestants))
	for _, c := range contestants {
		if c.Status == store.ContestantWithdrawn {
			continue
		}
		entrants = append(entrants, raffle.Entrant{ID: c.ID.String(), Name: c.Title})
		byID[c.ID.String()] = c
	}

	result, err := raffle.Perform(entrants, sc.Capacity, sc.RaffleSeed)
	if err != nil {
		// InvalidInput aborts only this raffle; the guard stays
		// unset so the next sweep retries until the catch-up
		// window lapses.
		return fmt.Errorf("raffle rejected input: %w", err)
	}

	// Claim the raffle before any irreversible side effect.
	opCtx, cancel = s.opCtx(ctx)
	claimed, err := s.stores.MarkRaffleExecuted(opCtx, sc.ID, result.Seed, now)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to claim raffle: %w", err)
	}
	if !claimed {
		s.logger.InfoContext(ctx, "raffle already executed, skipping",
			"showcase_id", sc.ID.String())
		return nil
	}

	s.rafflesExecuted.Add(ctx, 1)
	s.logger.InfoContext(ctx, "raffle executed",
		"showcase_id", sc.ID.String(),
		"seed", result.Seed,
		"entrants", len(entrants),
		"selected", len(result.Selected),
		"waitlisted", len(result.Waitlist))

	var selectedUsers, waitlistUsers []uuid.UUID
	persist := func(outcomes []raffle.Outcome, status store.ContestantStatus, users *[]uuid.UUID) {
		for _, o := range outcomes {
			c, ok := byID[o.ID]
			if !ok {
				continue
			}
			opCtx, cancel := s.opCtx(ctx)
			err := s.stores.SetRaffleOutcome(opCtx, c.ID, status, o.Position, o.Number)
			cancel()
			if err != nil {
				s.fail(ctx, "failed to persist raffle outcome",
					"contestant_id", c.ID.String(), "error", err)
				continue
			}
			*users = append(*users, c.UserID)
		}
	}
	persist(result.Selected, store.ContestantSelected, &selectedUsers)
	persist(result.Waitlist, store.ContestantWaitlisted, &waitlistUsers)

	// Users pruned below, collected before deletion for the
	// not-selected notification batch.
	keep := make(map[uuid.UUID]bool, len(selectedUsers)+len(waitlistUsers))
	for _, u := range selectedUsers {
		keep[u] = true
	}
	for _, u := range waitlistUsers {
		keep[u] = true
	}
	var prunedUsers []uuid.UUID
	for _, c := range contestants {
		if !keep[c.UserID] {
			prunedUsers = append(prunedUsers, c.UserID)
		}
	}

	opCtx, cancel = s.opCtx(ctx)
	deleted, err := s.stores.DeleteNotSelected(opCtx, sc.ID)
	cancel()
	if err != nil {
		// The guard is already set; the deletion will not be
		// retried, so this is loud.
		s.fail(ctx, "failed to delete non-selected entrants",
			"showcase_id", sc.ID.String(), "error", err)
	} else {
		s.logger.InfoContext(ctx, "non-selected entrants removed",
			"showcase_id", sc.ID.String(), "deleted", deleted)
	}

	// Exactly one announcement batch per outcome group.
	if len(selectedUsers) > 0 {
		opCtx, cancel = s.opCtx(ctx)
		_ = s.sink.CreateAnnouncement(opCtx,
			fmt.Sprintf("You're in: %s", sc.Title),
			"Your entry was drawn and you have a performance slot. Check your position for details.",
			selectedUsers,
			notify.PriorityHigh)
		cancel()
	}
	if len(waitlistUsers) > 0 {
		opCtx, cancel = s.opCtx(ctx)
		_ = s.sink.CreateAnnouncement(opCtx,
			fmt.Sprintf("Waitlisted: %s", sc.Title),
			"Your entry was drawn onto the waitlist. You get a slot if one opens up.",
			waitlistUsers,
			notify.PriorityHigh)
		cancel()
	}
	if len(prunedUsers) > 0 {
		opCtx, cancel = s.opCtx(ctx)
		_ = s.sink.CreateAnnouncement(opCtx,
			fmt.Sprintf("Raffle results: %s", sc.Title),
			"Your entry was not drawn this time. Thank you for participating.",
			prunedUsers,
			notify.PriorityNormal)
		cancel()
	}

	return nil
}
