// Package scheduler contains the recurring driver that moves
// showcases through their lifecycle: executing raffles, creating and
// starting timelines, and advancing live events phase by phase.
//
// A single loop performs all work. Correctness under repeated ticks
// relies on persisted idempotency guards (raffle execution timestamp,
// winner announcement presence, phase and slot statuses), not on
// locks; exactly one scheduler instance is assumed to be running.
package scheduler

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"showplane/internal/notify"
	"showplane/internal/store"
)

// Stores combines the persistence interfaces the scheduler needs.
type Stores interface {
	store.ShowcaseStore
	store.ContestantStore
	store.TimelineStore
}

// Config holds scheduler tuning. Zero values fall back to defaults.
type Config struct {
	// TickInterval is the base polling period.
	TickInterval time.Duration
	// RaffleSweepEvery throttles the raffle-execution sweep.
	RaffleSweepEvery time.Duration
	// TimelineSweepEvery throttles the timeline-ensure sweep.
	TimelineSweepEvery time.Duration
	// RaffleCatchup bounds how late a raffle may still execute.
	// Past the window the raffle is skipped and logged, never run
	// late and silently.
	RaffleCatchup time.Duration
	// StartLateness bounds how late an event may still go live.
	StartLateness time.Duration
	// OpTimeout caps each store or notification call so one stalled
	// collaborator cannot wedge the whole loop.
	OpTimeout time.Duration
	// AdCap is the per-advertisement duration ceiling for the
	// commercial phase extension.
	AdCap time.Duration
	// AdTotalCap bounds the aggregate commercial extension.
	AdTotalCap time.Duration
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 2 * time.Second
	}
	if c.RaffleSweepEvery <= 0 {
		c.RaffleSweepEvery = 30 * time.Second
	}
	if c.TimelineSweepEvery <= 0 {
		c.TimelineSweepEvery = 15 * time.Second
	}
	if c.RaffleCatchup <= 0 {
		c.RaffleCatchup = 10 * time.Minute
	}
	if c.StartLateness <= 0 {
		c.StartLateness = 24 * time.Hour
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 10 * time.Second
	}
	if c.AdCap <= 0 {
		c.AdCap = time.Minute
	}
	if c.AdTotalCap <= 0 {
		c.AdTotalCap = 10 * time.Minute
	}
}

// Scheduler owns its own lifecycle: construct it once, Run it, cancel
// the context to stop it. The in-flight tick finishes before Done
// closes.
type Scheduler struct {
	stores   Stores
	sink     notify.Sink
	featurer notify.Featurer
	logger   *slog.Logger
	config   Config

	// now is the injected clock.
	now func() time.Time

	lastRaffleSweep   time.Time
	lastTimelineSweep time.Time

	done chan struct{}

	rafflesExecuted metric.Int64Counter
	phasesAdvanced  metric.Int64Counter
	winnersDeclared metric.Int64Counter
	sweepErrors     metric.Int64Counter
}

// New creates a scheduler.
func New(stores Stores, sink notify.Sink, featurer notify.Featurer, logger *slog.Logger, config Config) *Scheduler {
	config.applyDefaults()

	s := &Scheduler{
		stores:   stores,
		sink:     sink,
		featurer: featurer,
		logger:   logger,
		config:   config,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	meter := otel.Meter("showplane-scheduler")
	s.rafflesExecuted, _ = meter.Int64Counter("showplane.raffles.executed",
		metric.WithDescription("Raffles executed by the sweep"))
	s.phasesAdvanced, _ = meter.Int64Counter("showplane.phases.advanced",
		metric.WithDescription("Phase transitions applied"))
	s.winnersDeclared, _ = meter.Int64Counter("showplane.winners.declared",
		metric.WithDescription("Winner announcements recorded"))
	s.sweepErrors, _ = meter.Int64Counter("showplane.sweep.errors",
		metric.WithDescription("Per-entity errors logged and skipped"))

	return s
}

// Run starts the polling loop. It blocks until the context is
// cancelled; the tick in flight completes before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("Scheduler starting with tick interval %s", s.config.TickInterval)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopping")
			close(s.done)
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Done closes after Run has observed cancellation and returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// tick performs one scheduling pass. Ordering matters: raffles run
// before timeline creation, which runs before auto-start, which runs
// before phase advancement, so later steps see state written by
// earlier ones within the same tick.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	if now.Sub(s.lastRaffleSweep) >= s.config.RaffleSweepEvery {
		s.lastRaffleSweep = now
		s.sweepRaffles(ctx, now)
	}

	if now.Sub(s.lastTimelineSweep) >= s.config.TimelineSweepEvery {
		s.lastTimelineSweep = now
		s.ensureTimeline(ctx, now)
	}

	s.autoStart(ctx, now)
	s.advanceLive(ctx, now)
}

// opCtx bounds a single store or notification call.
func (s *Scheduler) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.OpTimeout)
}

// fail records a per-entity error. Failures never abort a sweep.
func (s *Scheduler) fail(ctx context.Context, msg string, args ...interface{}) {
	s.sweepErrors.Add(ctx, 1)
	s.logger.ErrorContext(ctx, msg, args...)
}
