package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"citychain/internal/domain"
	"citychain/internal/ports"
)

type fakeStats struct {
	mu      sync.Mutex
	err     error
	wins    map[string]int
	resets  map[string]int
	names   map[string]string
	country map[string]string
}

func newFakeStats() *fakeStats {
	return &fakeStats{
		wins:    make(map[string]int),
		resets:  make(map[string]int),
		names:   make(map[string]string),
		country: make(map[string]string),
	}
}

func (f *fakeStats) UpsertPlayer(ctx context.Context, userID, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.names[userID] = displayName
	return nil
}

func (f *fakeStats) SetCountry(ctx context.Context, userID, country string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.country[userID] = country
	return nil
}

func (f *fakeStats) RecordWin(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.wins[userID]++
	return nil
}

func (f *fakeStats) ResetStreak(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets[userID]++
	return nil
}

func (f *fakeStats) TopN(ctx context.Context, n int) ([]ports.RankedPlayer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []ports.RankedPlayer{{Rank: 1, Username: "top", Wins: 3}}, nil
}

func (f *fakeStats) Rank(ctx context.Context, userID string) (ports.Standing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.names[userID]; !ok {
		return ports.Standing{}, ports.ErrPlayerNotFound
	}
	return ports.Standing{Rank: 1, Wins: int64(f.wins[userID])}, nil
}

func (f *fakeStats) Profile(ctx context.Context, userID string) (ports.PlayerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.names[userID]
	if !ok {
		return ports.PlayerProfile{}, ports.ErrPlayerNotFound
	}
	return ports.PlayerProfile{UserID: userID, Username: name, Wins: int64(f.wins[userID])}, nil
}

func (f *fakeStats) winsOf(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wins[userID]
}

func (f *fakeStats) resetsOf(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets[userID]
}

var _ ports.StatsPort = (*fakeStats)(nil)

// recordingSink captures published events.
type recordingSink struct {
	mu     sync.Mutex
	err    error
	events []Event
}

func (r *recordingSink) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordingSink) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// ofKind returns events of kind addressed to recipient.
func (r *recordingSink) ofKind(kind EventKind, recipient string) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Kind != kind {
			continue
		}
		for _, to := range ev.Recipients {
			if to == recipient {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// manualScheduler is an AfterFunc whose timers fire only when a test says so.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{s: m, d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback if the timer is still live.
func (t *manualTimer) fire() bool {
	t.s.mu.Lock()
	if t.stopped || t.fired {
		t.s.mu.Unlock()
		return false
	}
	t.fired = true
	t.s.mu.Unlock()
	t.f()
	return true
}

// fireAnyway runs the callback even if Stop was called, like a timer
// whose goroutine was already running when it was stopped.
func (t *manualTimer) fireAnyway() {
	t.s.mu.Lock()
	t.fired = true
	t.s.mu.Unlock()
	t.f()
}

func (m *manualScheduler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *manualScheduler) last() *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	return m.timers[len(m.timers)-1]
}

func (m *manualScheduler) live() []*manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

var errBoom = errors.New("boom")

func testCities() *domain.Dictionary {
	return domain.NewDictionary([]string{
		"Москва", "Астрахань", "Архангельск", "Абакан", "Анапа", "Нальчик", "Калуга",
		"Тверь", "Рязань", "Набережные Челны", "Ярославль", "Липецк",
	})
}

type serviceHarness struct {
	svc   *Service
	stats *fakeStats
	sink  *recordingSink
	sched *manualScheduler
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()
	return newHarnessWith(t, testCities())
}

func newHarnessWith(t *testing.T, dict *domain.Dictionary) *serviceHarness {
	t.Helper()
	h := &serviceHarness{
		stats: newFakeStats(),
		sink:  &recordingSink{},
		sched: &manualScheduler{},
	}
	h.svc = NewService(dict, h.stats, h.sink, Options{
		TurnDuration:       25 * time.Second,
		SuggestionDistance: 2,
		AfterFunc:          h.sched.AfterFunc,
	})
	t.Cleanup(h.svc.Close)
	return h
}

// startMatch pairs p1 and p2 through the queue; p1 moves first.
func (h *serviceHarness) startMatch(t *testing.T, p1, p2 string) string {
	t.Helper()
	if _, err := h.svc.Play(context.Background(), p1); err != nil {
		t.Fatalf("Play(%s) error: %v", p1, err)
	}
	res, err := h.svc.Play(context.Background(), p2)
	if err != nil {
		t.Fatalf("Play(%s) error: %v", p2, err)
	}
	if res.Status != QueueMatched {
		t.Fatalf("Play(%s) status = %s, want %s", p2, res.Status, QueueMatched)
	}
	return res.SessionID
}
