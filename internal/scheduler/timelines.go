package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"showplane/internal/store"
	"showplane/internal/timeline"
)

// ensureTimeline guarantees the showcase nearest to its live window
// has a timeline, creating one lazily, and keeps the showcase's
// derived lifecycle status in step with its date fields.
func (s *Scheduler) ensureTimeline(ctx context.Context, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	sc, err := s.stores.NearestLive(opCtx, now)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		s.fail(ctx, "timeline sweep: nearest-live lookup failed", "error", err)
		return
	}

	if derived := sc.DerivedStatus(now); derived != sc.Status {
		opCtx, cancel := s.opCtx(ctx)
		err := s.stores.UpdateShowcaseStatus(opCtx, sc.ID, derived)
		cancel()
		if err != nil {
			s.fail(ctx, "failed to update derived showcase status",
				"showcase_id", sc.ID.String(), "error", err)
		} else {
			s.logger.InfoContext(ctx, "showcase status recomputed",
				"showcase_id", sc.ID.String(),
				"from", string(sc.Status), "to", string(derived))
			sc.Status = derived
		}
	}

	opCtx, cancel = s.opCtx(ctx)
	_, err = s.stores.GetTimelineByShowcase(opCtx, sc.ID)
	cancel()
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.fail(ctx, "timeline lookup failed",
			"showcase_id", sc.ID.String(), "error", err)
		return
	}

	tl, err := s.buildTimeline(ctx, sc)
	if err != nil {
		s.fail(ctx, "failed to build timeline",
			"showcase_id", sc.ID.String(), "error", err)
		return
	}

	opCtx, cancel = s.opCtx(ctx)
	err = s.stores.CreateTimeline(opCtx, tl)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to create timeline",
			"showcase_id", sc.ID.String(), "error", err)
		return
	}

	s.logger.InfoContext(ctx, "timeline created",
		"showcase_id", sc.ID.String(),
		"timeline_id", tl.ID.String(),
		"phases", len(tl.Phases),
		"performances", len(tl.Performances))
}

// buildTimeline generates phases from the showcase's plan and lays
// out one slot per selected contestant, in raffle-position order,
// sized by actual media duration.
func (s *Scheduler) buildTimeline(ctx context.Context, sc *store.Showcase) (*store.Timeline, error) {
	opCtx, cancel := s.opCtx(ctx)
	selected, err := s.stores.ListSelected(opCtx, sc.ID)
	cancel()
	if err != nil {
		return nil, err
	}

	specs := make([]timeline.SlotSpec, len(selected))
	for i, c := range selected {
		specs[i] = timeline.SlotSpec{ContestantID: c.ID.String(), Duration: c.VideoDuration}
	}

	plan := sc.PhasePlan
	if len(plan) == 0 {
		plan = timeline.DefaultPhases()
	}

	now := s.now()
	return &store.Timeline{
		ID:         uuid.New(),
		ShowcaseID: sc.ID,
		Status:     store.TimelineScheduled,
		Timeline:   *timeline.Generate(plan, sc.EventAt, specs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// autoStart transitions scheduled timelines live once their
// showcase's event time has arrived, up to the configured lateness.
// The whole schedule is rebased onto now so a late start does not
// produce already-expired phases.
func (s *Scheduler) autoStart(ctx context.Context, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	scheduled, err := s.stores.ListScheduledTimelines(opCtx)
	cancel()
	if err != nil {
		s.fail(ctx, "auto-start: listing scheduled timelines failed", "error", err)
		return
	}

	for _, tl := range scheduled {
		opCtx, cancel := s.opCtx(ctx)
		sc, err := s.stores.GetShowcaseByID(opCtx, tl.ShowcaseID)
		cancel()
		if errors.Is(err, store.ErrNotFound) {
			s.endOrphanTimeline(ctx, tl, now)
			continue
		}
		if err != nil {
			s.fail(ctx, "auto-start: showcase lookup failed",
				"timeline_id", tl.ID.String(), "error", err)
			continue
		}
		if sc.Status == store.ShowcaseCancelled {
			s.endOrphanTimeline(ctx, tl, now)
			continue
		}

		if now.Before(sc.EventAt) || now.Sub(sc.EventAt) > s.config.StartLateness {
			continue
		}

		if err := s.goLive(ctx, sc, tl, now); err != nil {
			s.fail(ctx, "auto-start failed",
				"showcase_id", sc.ID.String(), "error", err)
		}
	}
}

func (s *Scheduler) goLive(ctx context.Context, sc *store.Showcase, tl *store.Timeline, now time.Time) error {
	// Performances may be missing if the timeline was created before
	// the raffle ran.
	if len(tl.Performances) == 0 {
		opCtx, cancel := s.opCtx(ctx)
		selected, err := s.stores.ListSelected(opCtx, sc.ID)
		cancel()
		if err != nil {
			return err
		}
		specs := make([]timeline.SlotSpec, len(selected))
		for i, c := range selected {
			specs[i] = timeline.SlotSpec{ContestantID: c.ID.String(), Duration: c.VideoDuration}
		}
		tl.SchedulePerformances(specs)
	}

	tl.Restart(now)
	tl.Status = store.TimelineLive
	started := now
	tl.StartedAt = &started

	opCtx, cancel := s.opCtx(ctx)
	err := s.stores.SaveTimeline(opCtx, tl)
	cancel()
	if err != nil {
		return err
	}

	opCtx, cancel = s.opCtx(ctx)
	err = s.stores.UpdateShowcaseStatus(opCtx, sc.ID, store.ShowcaseLive)
	cancel()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "showcase live",
		"showcase_id", sc.ID.String(),
		"timeline_id", tl.ID.String(),
		"late_by", now.Sub(sc.EventAt).String())
	return nil
}

// endOrphanTimeline closes a timeline whose showcase vanished or was
// cancelled.
func (s *Scheduler) endOrphanTimeline(ctx context.Context, tl *store.Timeline, now time.Time) {
	opCtx, cancel := s.opCtx(ctx)
	err := s.stores.MarkTimelineEnded(opCtx, tl.ID, now)
	cancel()
	if err != nil {
		s.fail(ctx, "failed to end orphan timeline",
			"timeline_id", tl.ID.String(), "error", err)
		return
	}
	s.logger.WarnContext(ctx, "timeline ended: showcase gone or cancelled",
		"timeline_id", tl.ID.String(),
		"showcase_id", tl.ShowcaseID.String())
}
