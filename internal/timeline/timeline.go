// Package timeline models the phase schedule of a live showcase.
//
// A Timeline is pure data plus transition helpers: it knows nothing
// about storage or clocks beyond the instants passed in. The scheduler
// owns when to apply transitions; this package owns what a legal
// transition is.
package timeline

import (
	"errors"
	"time"
)

// PhaseName identifies a stage of the live event.
type PhaseName string

const (
	PhaseWelcome     PhaseName = "welcome"
	PhaseCountdown   PhaseName = "countdown"
	PhasePerformance PhaseName = "performance"
	PhaseCommercial  PhaseName = "commercial"
	PhaseVoting      PhaseName = "voting"
	PhaseWinner      PhaseName = "winner"
	PhaseThankYou    PhaseName = "thank_you"
)

// Status is the lifecycle state of a phase or performance slot.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var (
	// ErrTerminal is returned by Advance when no phase remains.
	ErrTerminal = errors.New("timeline: no further phase")

	// ErrAdvanceGuard is returned by AutoAdvance when the bounded
	// advance loop exceeds its guard counter, which indicates
	// inconsistent phase data.
	ErrAdvanceGuard = errors.New("timeline: advance guard exceeded")
)

// advanceGuard bounds AutoAdvance iterations per call.
const advanceGuard = 32

// Phase is one named, time-boxed stage.
type Phase struct {
	Name     PhaseName     `json:"name"`
	Status   Status        `json:"status"`
	StartsAt time.Time     `json:"starts_at"`
	EndsAt   time.Time     `json:"ends_at"`
	Duration time.Duration `json:"duration"`
}

// Slot is one selected contestant's performance window. Its duration
// is the contestant's actual recorded media length, not a nominal
// slot size.
type Slot struct {
	ContestantID string        `json:"contestant_id"`
	Order        int           `json:"order"`
	Status       Status        `json:"status"`
	StartsAt     time.Time     `json:"starts_at"`
	EndsAt       time.Time     `json:"ends_at"`
	Duration     time.Duration `json:"duration"`
}

// Advertisement is one recorded commercial with its actual duration.
type Advertisement struct {
	ID       string        `json:"id"`
	Duration time.Duration `json:"duration"`
}

// PhaseConfig declares one phase in a showcase's plan. Duration is
// ignored for the performance phase, whose length derives from the
// scheduled slots.
type PhaseConfig struct {
	Name     PhaseName     `json:"name"`
	Duration time.Duration `json:"duration"`
}

// SlotSpec declares one performance to schedule: the contestant and
// the actual duration of their recorded media.
type SlotSpec struct {
	ContestantID string
	Duration     time.Duration
}

// DefaultPhases is the standard showcase plan. The countdown holding
// phase is deliberately absent: it never auto-advances, so a plan
// containing it mid-sequence would stall the event.
func DefaultPhases() []PhaseConfig {
	return []PhaseConfig{
		{Name: PhaseWelcome, Duration: 5 * time.Minute},
		{Name: PhasePerformance},
		{Name: PhaseCommercial, Duration: 3 * time.Minute},
		{Name: PhaseVoting, Duration: 5 * time.Minute},
		{Name: PhaseWinner, Duration: 2 * time.Minute},
		{Name: PhaseThankYou, Duration: 2 * time.Minute},
	}
}

// Timeline is the phase schedule plus performance slots and recorded
// advertisements for one showcase.
type Timeline struct {
	Phases         []Phase         `json:"phases"`
	Performances   []Slot          `json:"performances"`
	Advertisements []Advertisement `json:"advertisements,omitempty"`
}

// Generate builds a timeline from a phase plan, a start instant, and
// the performances to schedule. Phases are laid out by cumulative
// duration from start; the performance phase spans the sum of slot
// durations; the first phase starts active, the rest pending.
func Generate(plan []PhaseConfig, start time.Time, performances []SlotSpec) *Timeline {
	t := &Timeline{}

	perfTotal := time.Duration(0)
	for _, s := range performances {
		perfTotal += s.Duration
	}

	cursor := start
	for i, cfg := range plan {
		d := cfg.Duration
		if cfg.Name == PhasePerformance {
			d = perfTotal
		}
		p := Phase{
			Name:     cfg.Name,
			Status:   StatusPending,
			StartsAt: cursor,
			EndsAt:   cursor.Add(d),
			Duration: d,
		}
		if i == 0 {
			p.Status = StatusActive
		}
		cursor = p.EndsAt
		t.Phases = append(t.Phases, p)
	}

	t.SchedulePerformances(performances)
	return t
}

// SchedulePerformances lays out performance slots back-to-back from
// the performance phase's start time. Slot durations are the actual
// media durations. Calling it again rebuilds the pending schedule, so
// it must not be used once slots have started completing.
func (t *Timeline) SchedulePerformances(specs []SlotSpec) {
	perf := t.phase(PhasePerformance)
	if perf == nil {
		t.Performances = nil
		return
	}

	cursor := perf.StartsAt
	slots := make([]Slot, 0, len(specs))
	for i, s := range specs {
		slots = append(slots, Slot{
			ContestantID: s.ContestantID,
			Order:        i + 1,
			Status:       StatusPending,
			StartsAt:     cursor,
			EndsAt:       cursor.Add(s.Duration),
			Duration:     s.Duration,
		})
		cursor = cursor.Add(s.Duration)
	}
	t.Performances = slots

	// Keep the phase length in step with the actual slot total.
	total := cursor.Sub(perf.StartsAt)
	if total != perf.Duration {
		t.resizePhase(perf, total)
	}
}

// CurrentPhase returns the active phase, or nil when none is active.
func (t *Timeline) CurrentPhase() *Phase {
	for i := range t.Phases {
		if t.Phases[i].Status == StatusActive {
			return &t.Phases[i]
		}
	}
	return nil
}

// CurrentPerformance returns the active slot, or nil when none is.
func (t *Timeline) CurrentPerformance() *Slot {
	for i := range t.Performances {
		if t.Performances[i].Status == StatusActive {
			return &t.Performances[i]
		}
	}
	return nil
}

// Advance completes the current phase and activates the next. It
// returns the newly active phase, or ErrTerminal when the completed
// phase was the last one.
func (t *Timeline) Advance() (*Phase, error) {
	for i := range t.Phases {
		if t.Phases[i].Status != StatusActive {
			continue
		}
		t.Phases[i].Status = StatusCompleted
		if i+1 < len(t.Phases) {
			t.Phases[i+1].Status = StatusActive
			return &t.Phases[i+1], nil
		}
		return nil, ErrTerminal
	}
	return nil, ErrTerminal
}

// due reports whether the active phase should complete at now.
// Countdown is a holding phase and never completes on its own. The
// performance phase completes only when every slot is completed; the
// actual media length, not the nominal end time, is source of truth.
func (t *Timeline) due(p *Phase, now time.Time) bool {
	switch p.Name {
	case PhaseCountdown:
		return false
	case PhasePerformance:
		return t.performancesDone()
	default:
		return now.After(p.EndsAt)
	}
}

// AutoAdvance repeatedly advances overdue phases. It returns the
// phases that became active during this call and whether the timeline
// reached its end. The loop is bounded: exceeding the guard returns
// ErrAdvanceGuard with the phases advanced so far.
func (t *Timeline) AutoAdvance(now time.Time) (entered []*Phase, terminal bool, err error) {
	for i := 0; ; i++ {
		if i >= advanceGuard {
			return entered, false, ErrAdvanceGuard
		}
		current := t.CurrentPhase()
		if current == nil || !t.due(current, now) {
			return entered, false, nil
		}
		next, err := t.Advance()
		if errors.Is(err, ErrTerminal) {
			return entered, true, nil
		}
		if err != nil {
			return entered, false, err
		}
		entered = append(entered, next)
	}
}

// TickPerformances activates and completes individual slots: the
// active slot completes once now passes its actual end, and the
// lowest-order pending slot activates when no slot is active. It
// reports whether any slot changed.
func (t *Timeline) TickPerformances(now time.Time) bool {
	changed := false

	if active := t.CurrentPerformance(); active != nil && now.After(active.StartsAt.Add(active.Duration)) {
		active.Status = StatusCompleted
		changed = true
	}

	if t.CurrentPerformance() == nil {
		for i := range t.Performances {
			if t.Performances[i].Status == StatusPending {
				t.Performances[i].Status = StatusActive
				changed = true
				break
			}
		}
	}

	return changed
}

// performancesDone reports whether every slot is completed. A timeline
// without slots counts as done so the phase cannot stall.
func (t *Timeline) performancesDone() bool {
	for i := range t.Performances {
		if t.Performances[i].Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Restart rebases the whole schedule onto now: non-completed phases
// reset to pending, the first phase activates, every phase's window is
// recomputed sequentially, and pending slots shift onto the new
// performance-phase start. Used when an event goes live later than
// scheduled.
func (t *Timeline) Restart(now time.Time) {
	cursor := now
	for i := range t.Phases {
		p := &t.Phases[i]
		if p.Status != StatusCompleted {
			p.Status = StatusPending
		}
		p.StartsAt = cursor
		p.EndsAt = cursor.Add(p.Duration)
		cursor = p.EndsAt
	}
	if len(t.Phases) > 0 {
		t.Phases[0].Status = StatusActive
	}

	if perf := t.phase(PhasePerformance); perf != nil {
		cursor := perf.StartsAt
		for i := range t.Performances {
			s := &t.Performances[i]
			if s.Status != StatusCompleted {
				s.Status = StatusPending
			}
			s.StartsAt = cursor
			s.EndsAt = cursor.Add(s.Duration)
			cursor = s.EndsAt
		}
	}
}

// ExtendCommercial grows the commercial phase to cover the recorded
// advertisements. Each advertisement counts at most perAdCap and the
// aggregate at most maxTotal. The phase only ever grows; repeated
// calls never shrink a previously computed schedule. Later phases and
// pending slots shift by the growth. It reports whether anything
// changed.
func (t *Timeline) ExtendCommercial(perAdCap, maxTotal time.Duration) bool {
	commercial := t.phase(PhaseCommercial)
	if commercial == nil {
		return false
	}

	total := time.Duration(0)
	for _, ad := range t.Advertisements {
		d := ad.Duration
		if perAdCap > 0 && d > perAdCap {
			d = perAdCap
		}
		total += d
	}
	if maxTotal > 0 && total > maxTotal {
		total = maxTotal
	}

	if total <= commercial.Duration {
		return false
	}
	t.resizePhase(commercial, total)
	return true
}

// phase returns the first phase with the given name, or nil.
func (t *Timeline) phase(name PhaseName) *Phase {
	for i := range t.Phases {
		if t.Phases[i].Name == name {
			return &t.Phases[i]
		}
	}
	return nil
}

// resizePhase sets a phase's duration and shifts everything after it
// by the difference.
func (t *Timeline) resizePhase(p *Phase, d time.Duration) {
	delta := d - p.Duration
	p.Duration = d
	p.EndsAt = p.EndsAt.Add(delta)

	idx := -1
	for i := range t.Phases {
		if &t.Phases[i] == p {
			idx = i
			break
		}
	}

	perfShifted := false
	for i := idx + 1; i < len(t.Phases); i++ {
		t.Phases[i].StartsAt = t.Phases[i].StartsAt.Add(delta)
		t.Phases[i].EndsAt = t.Phases[i].EndsAt.Add(delta)
		if t.Phases[i].Name == PhasePerformance {
			perfShifted = true
		}
	}

	// Pending slots move with a shifted performance phase.
	if perfShifted {
		for i := range t.Performances {
			if t.Performances[i].Status == StatusPending {
				t.Performances[i].StartsAt = t.Performances[i].StartsAt.Add(delta)
				t.Performances[i].EndsAt = t.Performances[i].EndsAt.Add(delta)
			}
		}
	}
}
