package scheduler_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/logging"
	"github.com/wordgate/wordgate/internal/scheduler"
)

func testCtx() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

func testBlockingConfig() config.BlockingConfig {
	return config.BlockingConfig{
		PeriodicInterval: 30 * time.Minute,
		PenaltyDuration:  30 * time.Second,
		Mode:             "blacklist",
		FirstSight:       config.FirstSightWait,
	}
}

// fakeClock is a deterministic clock: timers fire only inside Advance, in
// scheduled order, on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) scheduler.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward and fires due timers. Callbacks run
// without the clock lock held, so they may schedule further timers; those
// fire too if due within the same advance.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		t := c.nextDue()
		if t == nil {
			return
		}
		t.f()
	}
}

func (c *fakeClock) nextDue() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
	for _, t := range c.timers {
		if t.stopped || t.fired {
			continue
		}
		if !t.at.After(c.now) {
			t.fired = true
			return t
		}
	}
	return nil
}

// fakeMessenger records display commands per tab.
type fakeMessenger struct {
	mu       sync.Mutex
	commands []messengerCall
	fail     bool
}

type messengerCall struct {
	op     string
	tabID  entity.TabID
	reason entity.BlockReason
	until  time.Time
}

func (m *fakeMessenger) record(call messengerCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, call)
	if m.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *fakeMessenger) ShowQuestion(_ context.Context, tabID entity.TabID, reason entity.BlockReason) error {
	return m.record(messengerCall{op: "show_question", tabID: tabID, reason: reason})
}

func (m *fakeMessenger) ShowPenalty(_ context.Context, tabID entity.TabID, until time.Time) error {
	return m.record(messengerCall{op: "show_penalty", tabID: tabID, until: until})
}

func (m *fakeMessenger) Dismiss(_ context.Context, tabID entity.TabID) error {
	return m.record(messengerCall{op: "dismiss", tabID: tabID})
}

func (m *fakeMessenger) calls(op string) []messengerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []messengerCall
	for _, c := range m.commands {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// In-memory repositories so restart reconciliation is testable without
// sqlite; the sqlite package has its own coverage.
type memTabStateRepo struct {
	mu     sync.Mutex
	states map[entity.TabID]entity.TabState
}

func newMemTabStateRepo() *memTabStateRepo {
	return &memTabStateRepo{states: make(map[entity.TabID]entity.TabState)}
}

func (r *memTabStateRepo) SaveAll(_ context.Context, states []*entity.TabState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = make(map[entity.TabID]entity.TabState, len(states))
	for _, s := range states {
		r.states[s.TabID] = *s
	}
	return nil
}

func (r *memTabStateRepo) LoadAll(_ context.Context) ([]*entity.TabState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.TabState, 0, len(r.states))
	for _, s := range r.states {
		copied := s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memTabStateRepo) Delete(_ context.Context, tabID entity.TabID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, tabID)
	return nil
}

type memAlarmRepo struct {
	mu     sync.Mutex
	alarms map[entity.TabID]entity.AlarmRecord
}

func newMemAlarmRepo() *memAlarmRepo {
	return &memAlarmRepo{alarms: make(map[entity.TabID]entity.AlarmRecord)}
}

func (r *memAlarmRepo) Upsert(_ context.Context, alarm entity.AlarmRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms[alarm.TabID] = alarm
	return nil
}

func (r *memAlarmRepo) Delete(_ context.Context, tabID entity.TabID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.alarms, tabID)
	return nil
}

func (r *memAlarmRepo) LoadAll(_ context.Context) ([]entity.AlarmRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.AlarmRecord, 0, len(r.alarms))
	for _, a := range r.alarms {
		out = append(out, a)
	}
	return out, nil
}

// newTestService assembles a service over fakes. Passing nil repos runs
// in-memory only.
func newTestService(clock *fakeClock, cfg config.BlockingConfig, tabRepo *memTabStateRepo, alarmRepo *memAlarmRepo) (*scheduler.Service, *scheduler.Store, *scheduler.TimerSet, *fakeMessenger) {
	var store *scheduler.Store
	var timers *scheduler.TimerSet
	if tabRepo != nil {
		store = scheduler.NewStore(tabRepo)
	} else {
		store = scheduler.NewStore(nil)
	}
	if alarmRepo != nil {
		timers = scheduler.NewTimerSet(clock, alarmRepo, nil)
	} else {
		timers = scheduler.NewTimerSet(clock, nil, nil)
	}
	messenger := &fakeMessenger{}
	svc := scheduler.NewService(testCtx(), cfg, store, timers, messenger, clock)
	return svc, store, timers, messenger
}
