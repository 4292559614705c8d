package timeline

import (
	"errors"
	"testing"
	"time"
)

var start = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func testPlan() []PhaseConfig {
	return []PhaseConfig{
		{Name: PhaseWelcome, Duration: 5 * time.Minute},
		{Name: PhasePerformance},
		{Name: PhaseVoting, Duration: 3 * time.Minute},
	}
}

func twoSlots() []SlotSpec {
	return []SlotSpec{
		{ContestantID: "c1", Duration: 30 * time.Second},
		{ContestantID: "c2", Duration: 45 * time.Second},
	}
}

func TestGenerate_PhaseLayout(t *testing.T) {
	tl := Generate(testPlan(), start, twoSlots())

	if len(tl.Phases) != 3 {
		t.Fatalf("got %d phases, want 3", len(tl.Phases))
	}
	if tl.Phases[0].Status != StatusActive {
		t.Errorf("first phase status = %s, want active", tl.Phases[0].Status)
	}
	for i := 1; i < len(tl.Phases); i++ {
		if tl.Phases[i].Status != StatusPending {
			t.Errorf("phase %d status = %s, want pending", i, tl.Phases[i].Status)
		}
		if !tl.Phases[i].StartsAt.Equal(tl.Phases[i-1].EndsAt) {
			t.Errorf("phase %d starts at %v, want previous end %v", i, tl.Phases[i].StartsAt, tl.Phases[i-1].EndsAt)
		}
	}

	perf := tl.Phases[1]
	if perf.Duration < 75*time.Second {
		t.Errorf("performance phase duration = %v, want at least 75s", perf.Duration)
	}
	if !perf.StartsAt.Equal(start.Add(5 * time.Minute)) {
		t.Errorf("performance starts at %v", perf.StartsAt)
	}
}

func TestGenerate_SlotLayout(t *testing.T) {
	tl := Generate(testPlan(), start, twoSlots())

	if len(tl.Performances) != 2 {
		t.Fatalf("got %d slots, want 2", len(tl.Performances))
	}
	perfStart := tl.Phases[1].StartsAt
	if !tl.Performances[0].StartsAt.Equal(perfStart) {
		t.Errorf("slot 1 starts at %v, want %v", tl.Performances[0].StartsAt, perfStart)
	}
	if !tl.Performances[1].StartsAt.Equal(tl.Performances[0].EndsAt) {
		t.Errorf("slots are not back-to-back")
	}
	if tl.Performances[0].Order != 1 || tl.Performances[1].Order != 2 {
		t.Errorf("slot orders = %d, %d", tl.Performances[0].Order, tl.Performances[1].Order)
	}
	if tl.Performances[1].Duration != 45*time.Second {
		t.Errorf("slot 2 duration = %v, want actual media length 45s", tl.Performances[1].Duration)
	}
}

func TestAutoAdvance_TimedPhases(t *testing.T) {
	tl := Generate(testPlan(), start, nil)

	// Just before the welcome phase ends nothing moves.
	entered, terminal, err := tl.AutoAdvance(start.Add(4 * time.Minute))
	if err != nil || terminal || len(entered) != 0 {
		t.Fatalf("early advance: entered=%d terminal=%v err=%v", len(entered), terminal, err)
	}

	// Past the end, welcome completes. The empty performance phase
	// completes too, landing on voting.
	entered, terminal, err = tl.AutoAdvance(start.Add(5*time.Minute + time.Second))
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if terminal {
		t.Fatal("unexpected terminal")
	}
	cur := tl.CurrentPhase()
	if cur == nil || cur.Name != PhaseVoting {
		t.Fatalf("current phase = %+v, want voting", cur)
	}
	if tl.Phases[0].Status != StatusCompleted || tl.Phases[1].Status != StatusCompleted {
		t.Error("earlier phases not completed")
	}
}

func TestAutoAdvance_PerformanceGatedBySlots(t *testing.T) {
	tl := Generate(testPlan(), start, twoSlots())

	// Run far past every nominal end time with slots still pending.
	late := start.Add(2 * time.Hour)
	_, terminal, err := tl.AutoAdvance(late)
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if terminal {
		t.Fatal("unexpected terminal")
	}
	cur := tl.CurrentPhase()
	if cur == nil || cur.Name != PhasePerformance {
		t.Fatalf("current phase = %+v, want performance held open by incomplete slots", cur)
	}

	// Completing every slot releases the phase. Voting's nominal end
	// has also long passed, so the run goes terminal.
	for i := range tl.Performances {
		tl.Performances[i].Status = StatusCompleted
	}
	_, terminal, err = tl.AutoAdvance(late)
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if !terminal {
		t.Fatal("expected terminal once the gate released")
	}
	if tl.Phases[1].Status != StatusCompleted {
		t.Errorf("performance phase status = %s, want completed", tl.Phases[1].Status)
	}
}

func TestAutoAdvance_CountdownHolds(t *testing.T) {
	plan := []PhaseConfig{
		{Name: PhaseThankYou, Duration: time.Minute},
		{Name: PhaseCountdown, Duration: time.Minute},
	}
	tl := Generate(plan, start, nil)

	entered, terminal, err := tl.AutoAdvance(start.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if terminal {
		t.Fatal("countdown must hold, not terminate")
	}
	if len(entered) != 1 || entered[0].Name != PhaseCountdown {
		t.Fatalf("entered = %+v, want just countdown", entered)
	}
	if cur := tl.CurrentPhase(); cur == nil || cur.Name != PhaseCountdown {
		t.Fatalf("current phase = %+v, want countdown held open", cur)
	}
}

func TestAutoAdvance_Terminal(t *testing.T) {
	tl := Generate(testPlan(), start, nil)

	_, terminal, err := tl.AutoAdvance(start.Add(24 * time.Hour))
	if err != nil {
		t.Fatalf("AutoAdvance failed: %v", err)
	}
	if !terminal {
		t.Fatal("expected terminal after all phases elapsed")
	}
	if tl.CurrentPhase() != nil {
		t.Error("no phase should remain active after terminal")
	}
}

func TestAdvance_Terminal(t *testing.T) {
	tl := Generate([]PhaseConfig{{Name: PhaseWelcome, Duration: time.Minute}}, start, nil)

	if _, err := tl.Advance(); !errors.Is(err, ErrTerminal) {
		t.Errorf("got %v, want ErrTerminal", err)
	}
	// A second call with no active phase is still terminal.
	if _, err := tl.Advance(); !errors.Is(err, ErrTerminal) {
		t.Errorf("got %v, want ErrTerminal", err)
	}
}

func TestTickPerformances(t *testing.T) {
	tl := Generate(testPlan(), start, twoSlots())
	perfStart := tl.Phases[1].StartsAt

	// First tick activates slot 1.
	if !tl.TickPerformances(perfStart) {
		t.Fatal("expected first slot to activate")
	}
	if cur := tl.CurrentPerformance(); cur == nil || cur.ContestantID != "c1" {
		t.Fatalf("current slot = %+v, want c1", cur)
	}

	// Mid-slot nothing changes.
	if tl.TickPerformances(perfStart.Add(10 * time.Second)) {
		t.Error("unexpected change mid-slot")
	}

	// Past slot 1's actual duration it completes and slot 2 activates.
	if !tl.TickPerformances(perfStart.Add(31 * time.Second)) {
		t.Fatal("expected slot handoff")
	}
	if tl.Performances[0].Status != StatusCompleted {
		t.Error("slot 1 not completed")
	}
	if cur := tl.CurrentPerformance(); cur == nil || cur.ContestantID != "c2" {
		t.Fatalf("current slot = %+v, want c2", cur)
	}

	// At most one slot active at any point.
	active := 0
	for _, s := range tl.Performances {
		if s.Status == StatusActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("%d active slots, want 1", active)
	}
}

func TestRestart_RebasesSchedule(t *testing.T) {
	tl := Generate(testPlan(), start, twoSlots())
	// Simulate partial progress then a late restart.
	tl.Phases[0].Status = StatusCompleted
	tl.Phases[1].Status = StatusActive

	now := start.Add(90 * time.Minute)
	tl.Restart(now)

	if !tl.Phases[0].StartsAt.Equal(now) {
		t.Errorf("first phase starts at %v, want %v", tl.Phases[0].StartsAt, now)
	}
	if tl.Phases[0].Status != StatusActive {
		t.Errorf("first phase status = %s, want active", tl.Phases[0].Status)
	}
	if tl.Phases[1].Status != StatusPending {
		t.Errorf("second phase status = %s, want pending", tl.Phases[1].Status)
	}
	for i := 1; i < len(tl.Phases); i++ {
		if !tl.Phases[i].StartsAt.Equal(tl.Phases[i-1].EndsAt) {
			t.Errorf("phase %d not contiguous after restart", i)
		}
	}
	if !tl.Performances[0].StartsAt.Equal(tl.Phases[1].StartsAt) {
		t.Errorf("slot 1 starts at %v, want rebased performance start %v", tl.Performances[0].StartsAt, tl.Phases[1].StartsAt)
	}
}

func TestExtendCommercial_OnlyGrows(t *testing.T) {
	plan := []PhaseConfig{
		{Name: PhaseCommercial, Duration: time.Minute},
		{Name: PhaseVoting, Duration: 3 * time.Minute},
	}
	tl := Generate(plan, start, nil)
	originalEnd := tl.Phases[0].EndsAt
	votingStart := tl.Phases[1].StartsAt

	// Under the current length, no change.
	tl.Advertisements = []Advertisement{{ID: "ad1", Duration: 30 * time.Second}}
	if tl.ExtendCommercial(time.Minute, 10*time.Minute) {
		t.Error("phase grew although ads fit the current length")
	}

	// Over the current length, it extends and shifts later phases.
	tl.Advertisements = append(tl.Advertisements, Advertisement{ID: "ad2", Duration: 50 * time.Second})
	if !tl.ExtendCommercial(time.Minute, 10*time.Minute) {
		t.Fatal("expected extension")
	}
	if tl.Phases[0].Duration != 80*time.Second {
		t.Errorf("duration = %v, want 80s", tl.Phases[0].Duration)
	}
	if !tl.Phases[0].EndsAt.After(originalEnd) {
		t.Error("end time did not grow")
	}
	if !tl.Phases[1].StartsAt.Equal(tl.Phases[0].EndsAt) {
		t.Error("later phase did not shift")
	}
	if !tl.Phases[1].StartsAt.After(votingStart) {
		t.Error("voting start did not move later")
	}

	// Repeated calls never shrink.
	grownEnd := tl.Phases[0].EndsAt
	tl.Advertisements = tl.Advertisements[:1]
	if tl.ExtendCommercial(time.Minute, 10*time.Minute) {
		t.Error("phase shrank on repeated call")
	}
	if !tl.Phases[0].EndsAt.Equal(grownEnd) {
		t.Errorf("end moved from %v to %v", grownEnd, tl.Phases[0].EndsAt)
	}
}

func TestExtendCommercial_Caps(t *testing.T) {
	plan := []PhaseConfig{{Name: PhaseCommercial, Duration: time.Minute}}
	tl := Generate(plan, start, nil)
	tl.Advertisements = []Advertisement{
		{ID: "ad1", Duration: 10 * time.Minute}, // capped per advert
		{ID: "ad2", Duration: 2 * time.Minute},
	}

	if !tl.ExtendCommercial(2*time.Minute, 3*time.Minute) {
		t.Fatal("expected extension")
	}
	// ad1 capped to 2m, plus ad2 2m = 4m, capped to the 3m aggregate.
	if tl.Phases[0].Duration != 3*time.Minute {
		t.Errorf("duration = %v, want 3m aggregate cap", tl.Phases[0].Duration)
	}
}

func TestAutoAdvance_GuardBounded(t *testing.T) {
	// A plan longer than the guard cannot loop forever in one call.
	plan := make([]PhaseConfig, advanceGuard+5)
	for i := range plan {
		plan[i] = PhaseConfig{Name: PhaseWelcome, Duration: time.Second}
	}
	tl := Generate(plan, start, nil)

	_, _, err := tl.AutoAdvance(start.Add(time.Hour))
	if !errors.Is(err, ErrAdvanceGuard) {
		t.Errorf("got %v, want ErrAdvanceGuard", err)
	}
}
