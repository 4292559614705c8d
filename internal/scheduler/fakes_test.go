package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"showplane/internal/notify"
	"showplane/internal/store"
)

var errTransient = errors.New("transient store failure")

// fakeStores is an in-memory Stores implementation for loop tests.
type fakeStores struct {
	mu          sync.Mutex
	showcases   map[uuid.UUID]*store.Showcase
	contestants map[uuid.UUID]*store.Contestant
	timelines   map[uuid.UUID]*store.Timeline

	deleteCalls int
	// listSelectedErrs fails the next n ListSelected calls.
	listSelectedErrs int
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		showcases:   map[uuid.UUID]*store.Showcase{},
		contestants: map[uuid.UUID]*store.Contestant{},
		timelines:   map[uuid.UUID]*store.Timeline{},
	}
}

func (f *fakeStores) CreateShowcase(_ context.Context, s *store.Showcase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.showcases[s.ID] = &cp
	return nil
}

func (f *fakeStores) GetShowcaseByID(_ context.Context, id uuid.UUID) (*store.Showcase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.showcases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStores) ListRafflePending(_ context.Context) ([]*store.Showcase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Showcase
	for _, s := range f.showcases {
		if s.RaffleExecutedAt == nil && s.Status != store.ShowcaseCancelled && s.Status != store.ShowcaseCompleted {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStores) NearestLive(_ context.Context, now time.Time) (*store.Showcase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *store.Showcase
	for _, s := range f.showcases {
		switch s.Status {
		case store.ShowcaseCompleted, store.ShowcaseCancelled, store.ShowcaseDraft:
			continue
		}
		if s.Status != store.ShowcaseLive && s.Status != store.ShowcaseVoting && s.EventAt.Before(now.Add(-24*time.Hour)) {
			continue
		}
		if best == nil || s.EventAt.Before(best.EventAt) {
			best = s
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeStores) UpdateShowcaseStatus(_ context.Context, id uuid.UUID, status store.ShowcaseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.showcases[id]; ok {
		s.Status = status
	}
	return nil
}

func (f *fakeStores) MarkRaffleExecuted(_ context.Context, id uuid.UUID, seed string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.showcases[id]
	if !ok || s.RaffleExecutedAt != nil {
		return false, nil
	}
	s.RaffleSeed = seed
	s.RaffleExecutedAt = &at
	s.Status = store.ShowcaseRaffleCompleted
	return true, nil
}

func (f *fakeStores) SetVotingWindow(_ context.Context, id uuid.UUID, openedAt, closedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.showcases[id]; ok {
		if openedAt != nil {
			s.VotingOpenedAt = openedAt
		}
		if closedAt != nil {
			s.VotingClosedAt = closedAt
		}
	}
	return nil
}

func (f *fakeStores) CreateContestant(_ context.Context, c *store.Contestant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.contestants[c.ID] = &cp
	return nil
}

func (f *fakeStores) ListContestants(_ context.Context, showcaseID uuid.UUID) ([]*store.Contestant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Contestant
	for _, c := range f.contestants {
		if c.ShowcaseID == showcaseID {
			cp := *c
			out = append(out, &cp)
		}
	}
	// Submission order.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeStores) ListSelected(_ context.Context, showcaseID uuid.UUID) ([]*store.Contestant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listSelectedErrs > 0 {
		f.listSelectedErrs--
		return nil, errTransient
	}
	var out []*store.Contestant
	for _, c := range f.contestants {
		if c.ShowcaseID == showcaseID && c.Status == store.ContestantSelected {
			cp := *c
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].RafflePosition < out[i].RafflePosition {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeStores) SetRaffleOutcome(_ context.Context, id uuid.UUID, status store.ContestantStatus, position int, number float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.contestants[id]; ok {
		c.Status = status
		c.RafflePosition = position
		c.RaffleNumber = number
	}
	return nil
}

func (f *fakeStores) DeleteNotSelected(_ context.Context, showcaseID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	var n int64
	for id, c := range f.contestants {
		if c.ShowcaseID != showcaseID {
			continue
		}
		if c.Status != store.ContestantSelected && c.Status != store.ContestantWaitlisted {
			delete(f.contestants, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStores) SetWinner(_ context.Context, id uuid.UUID, wonAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.contestants[id]; ok {
		c.IsWinner = true
		c.WonAt = &wonAt
	}
	return nil
}

func (f *fakeStores) CreateTimeline(_ context.Context, t *store.Timeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.timelines[t.ID] = &cp
	return nil
}

func (f *fakeStores) GetTimelineByShowcase(_ context.Context, showcaseID uuid.UUID) (*store.Timeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.timelines {
		if t.ShowcaseID == showcaseID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStores) ListScheduledTimelines(_ context.Context) ([]*store.Timeline, error) {
	return f.listByStatus(store.TimelineScheduled), nil
}

func (f *fakeStores) ListLiveTimelines(_ context.Context) ([]*store.Timeline, error) {
	return f.listByStatus(store.TimelineLive), nil
}

func (f *fakeStores) listByStatus(status store.TimelineStatus) []*store.Timeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Timeline
	for _, t := range f.timelines {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeStores) SaveTimeline(_ context.Context, t *store.Timeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.timelines[t.ID] = &cp
	return nil
}

func (f *fakeStores) MarkTimelineEnded(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.timelines[id]; ok {
		t.Status = store.TimelineEnded
		t.EndedAt = &at
	}
	return nil
}

// fakeSink records notifications.
type fakeSink struct {
	mu            sync.Mutex
	announcements []string
	events        []string
	featured      []uuid.UUID
}

func (f *fakeSink) CreateAnnouncement(_ context.Context, subject, _ string, _ []uuid.UUID, _ notify.Priority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, subject)
	return nil
}

func (f *fakeSink) EmitToUser(_ context.Context, _ uuid.UUID, event string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) AutoFeatureWinner(_ context.Context, c *store.Contestant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.featured = append(f.featured, c.ID)
	return nil
}

func newTestScheduler(stores *fakeStores, sink *fakeSink, now time.Time) *Scheduler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	s := New(stores, sink, sink, logger, Config{})
	s.now = func() time.Time { return now }
	return s
}
