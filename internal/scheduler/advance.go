package scheduler

import (
	"context"
	"errors"
	"time"

	"showplane/internal/store"
	"showplane/internal/timeline"
	"showplane/internal/winner"
)

// advanceLive applies phase and slot transitions to every live,
// unpaused timeline. Errors in one timeline never abort the others.
func (s *Scheduler) advanceLive(ctx context.Context, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	live, err := s.stores.ListLiveTimelines(opCtx)
	cancel()
	if err != nil {
		s.fail(ctx, "advance sweep: listing live timelines failed", "error", err)
		return
	}

	for _, tl := range live {
		if tl.Paused {
			continue
		}
		s.advanceTimeline(ctx, tl, now)
	}
}

func (s *Scheduler) advanceTimeline(ctx context.Context, tl *store.Timeline, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	sc, err := s.stores.GetShowcaseByID(opCtx, tl.ShowcaseID)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		s.endOrphanTimeline(ctx, tl, now)
		return
	}
	if err != nil {
		s.fail(ctx, "advance: showcase lookup failed",
			"timeline_id", tl.ID.String(), "error", err)
		return
	}

	changed := false

	// Individual slots move only while the performance phase runs.
	if cur := tl.CurrentPhase(); cur != nil && cur.Name == timeline.PhasePerformance {
		if tl.TickPerformances(now) {
			changed = true
		}
	}

	entered, terminal, err := tl.AutoAdvance(now)
	if errors.Is(err, timeline.ErrAdvanceGuard) {
		// Inconsistent phase data; whatever advanced cleanly is
		// kept and the rest retried next tick.
		s.fail(ctx, "phase advance guard exceeded",
			"timeline_id", tl.ID.String(),
			"showcase_id", sc.ID.String())
	} else if err != nil {
		s.fail(ctx, "phase advance failed",
			"timeline_id", tl.ID.String(), "error", err)
		return
	}

	current := tl.CurrentPhase()
	for _, p := range entered {
		changed = true
		s.phasesAdvanced.Add(ctx, 1)
		s.logger.InfoContext(ctx, "phase entered",
			"showcase_id", sc.ID.String(),
			"phase", string(p.Name))

		switch p.Name {
		case timeline.PhaseCommercial:
			if tl.ExtendCommercial(s.config.AdCap, s.config.AdTotalCap) {
				s.logger.InfoContext(ctx, "commercial phase extended for recorded adverts",
					"showcase_id", sc.ID.String(),
					"duration", p.Duration.String())
			}
		case timeline.PhaseVoting:
			// Passed straight through during catch-up; the
			// still-current case is driven below.
			if p != current {
				s.openVoting(ctx, sc, p, now)
			}
		case timeline.PhaseWinner:
			if p != current {
				s.declareWinner(ctx, sc, tl, now)
			}
		}
	}

	// Entry side effects of the current phase are driven every tick
	// until their persisted guards are set, so a transient store
	// failure on entry is retried rather than lost.
	if current != nil {
		switch current.Name {
		case timeline.PhaseVoting:
			if sc.VotingOpenedAt == nil {
				s.openVoting(ctx, sc, current, now)
			}
		case timeline.PhaseWinner:
			if tl.Winner == nil {
				s.declareWinner(ctx, sc, tl, now)
				if tl.Winner != nil {
					changed = true
				}
			}
		}
	}

	if terminal {
		tl.Status = store.TimelineEnded
		ended := now
		tl.EndedAt = &ended
		changed = true
	}

	if changed {
		opCtx, cancel := s.opCtx(ctx)
		err := s.stores.SaveTimeline(opCtx, tl)
		cancel()
		if err != nil {
			s.fail(ctx, "failed to save timeline",
				"timeline_id", tl.ID.String(), "error", err)
			return
		}
	}

	if terminal {
		opCtx, cancel := s.opCtx(ctx)
		err := s.stores.UpdateShowcaseStatus(opCtx, sc.ID, store.ShowcaseCompleted)
		cancel()
		if err != nil {
			s.fail(ctx, "failed to complete showcase",
				"showcase_id", sc.ID.String(), "error", err)
			return
		}
		s.logger.InfoContext(ctx, "showcase completed",
			"showcase_id", sc.ID.String())
	}
}

// openVoting records the voting window and flips the showcase into
// its voting state. The close instant is the phase's scheduled end.
func (s *Scheduler) openVoting(ctx context.Context, sc *store.Showcase, p *timeline.Phase, now time.Time) {
	closesAt := p.EndsAt

	opCtx, cancel := s.opCtx(ctx)
	err := s.stores.SetVotingWindow(opCtx, sc.ID, &now, &closesAt)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to open voting",
			"showcase_id", sc.ID.String(), "error", err)
		return
	}

	opCtx, cancel = s.opCtx(ctx)
	err = s.stores.UpdateShowcaseStatus(opCtx, sc.ID, store.ShowcaseVoting)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to set voting status",
			"showcase_id", sc.ID.String(), "error", err)
	}

	s.logger.InfoContext(ctx, "voting opened",
		"showcase_id", sc.ID.String(),
		"closes_at", closesAt)
}

// declareWinner closes voting and resolves the winner exactly once.
// The persisted announcement on the timeline is the guard: a timeline
// that already carries one is never resolved again.
func (s *Scheduler) declareWinner(ctx context.Context, sc *store.Showcase, tl *store.Timeline, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	err := s.stores.SetVotingWindow(opCtx, sc.ID, nil, &now)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to close voting",
			"showcase_id", sc.ID.String(), "error", err)
	}

	if tl.Winner != nil {
		return
	}

	opCtx, cancel = s.opCtx(ctx)
	selected, err := s.stores.ListSelected(opCtx, sc.ID)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to load candidates for winner resolution",
			"showcase_id", sc.ID.String(), "error", err)
		return
	}

	candidates := make([]winner.Candidate, len(selected))
	byID := make(map[string]*store.Contestant, len(selected))
	for i, c := range selected {
		candidates[i] = winner.Candidate{ID: c.ID.String(), Name: c.Title, Votes: c.Votes}
		byID[c.ID.String()] = c
	}

	outcome := winner.Resolve(candidates, now)

	announcement := &store.WinnerAnnouncement{
		NoWinner:    outcome.NoWinner,
		Tie:         outcome.Tie,
		TotalVotes:  outcome.TotalVotes,
		Reason:      outcome.Reason,
		AnnouncedAt: outcome.ResolvedAt,
	}
	for _, tc := range outcome.TiedCandidates {
		if c, ok := byID[tc.ID]; ok {
			announcement.TiedCandidates = append(announcement.TiedCandidates, store.TiedCandidate{
				ContestantID: c.ID,
				Name:         tc.Name,
				Votes:        tc.Votes,
			})
		}
	}

	if outcome.Winner != nil {
		won := byID[outcome.Winner.ID]
		announcement.ContestantID = &won.ID
		announcement.Name = won.Title
		announcement.Votes = outcome.Winner.Votes

		opCtx, cancel := s.opCtx(ctx)
		err := s.stores.SetWinner(opCtx, won.ID, now)
		cancel()
		if err != nil {
			s.fail(ctx, "failed to persist winner flag",
				"contestant_id", won.ID.String(), "error", err)
		}

		opCtx, cancel = s.opCtx(ctx)
		if err := s.featurer.AutoFeatureWinner(opCtx, won); err != nil {
			s.logger.WarnContext(ctx, "auto-feature winner failed",
				"contestant_id", won.ID.String(), "error", err)
		}
		cancel()

		opCtx, cancel = s.opCtx(ctx)
		_ = s.sink.EmitToUser(opCtx, won.UserID, "winner_declared", map[string]interface{}{
			"showcase_id": sc.ID.String(),
			"votes":       outcome.Winner.Votes,
		})
		cancel()
	}

	tl.Winner = announcement
	s.winnersDeclared.Add(ctx, 1)
	s.logger.InfoContext(ctx, "winner resolved",
		"showcase_id", sc.ID.String(),
		"reason", outcome.Reason,
		"total_votes", outcome.TotalVotes)
}
