package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/repository"
	"github.com/wordgate/wordgate/internal/logging"
)

// DefaultDurableThreshold is the minimum delay worth a durable backstop.
// Below it the in-process timer is the sole mechanism, sidestepping the
// host alarm granularity problem entirely.
const DefaultDurableThreshold = time.Minute

// FireFunc is invoked exactly once per logical timer job, outside any
// TimerSet lock.
type FireFunc func(tabID entity.TabID, kind entity.TimerKind)

type timerSlot struct {
	gen         uint64
	kind        entity.TimerKind
	scheduledAt time.Time
	inProcess   Timer
}

// TimerSet owns the single active timer slot per tab: a fast in-process
// callback plus, for long delays, a durable alarm row that survives process
// restarts. Whichever half fires first wins; the generation counter makes
// the loser a no-op.
type TimerSet struct {
	clock            Clock
	alarms           repository.AlarmRepository
	fire             FireFunc
	durableThreshold time.Duration

	mu    sync.Mutex
	slots map[entity.TabID]*timerSlot
	gen   uint64
}

// NewTimerSet creates a TimerSet. alarms may be nil, in which case timers
// are in-process only (degraded mode when storage is unavailable). fire may
// be nil when the set is handed to NewService, which binds its own handler.
func NewTimerSet(clock Clock, alarms repository.AlarmRepository, fire FireFunc) *TimerSet {
	return &TimerSet{
		clock:            clock,
		alarms:           alarms,
		fire:             fire,
		durableThreshold: DefaultDurableThreshold,
		slots:            make(map[entity.TabID]*timerSlot),
	}
}

// Schedule arms a timer for the tab, cancelling any existing one first.
// The durable alarm is best-effort: a storage failure falls back to the
// in-process timer alone.
func (ts *TimerSet) Schedule(ctx context.Context, tabID entity.TabID, delay time.Duration, kind entity.TimerKind) {
	log := logging.FromContext(ctx)
	if delay < 0 {
		delay = 0
	}
	scheduledAt := ts.clock.Now().Add(delay)

	ts.mu.Lock()
	if prior, ok := ts.slots[tabID]; ok {
		prior.inProcess.Stop()
	}
	ts.gen++
	gen := ts.gen
	slot := &timerSlot{gen: gen, kind: kind, scheduledAt: scheduledAt}
	slot.inProcess = ts.clock.AfterFunc(delay, func() {
		ts.onFire(tabID, gen)
	})
	ts.slots[tabID] = slot
	ts.mu.Unlock()

	if ts.alarms == nil {
		return
	}
	if delay >= ts.durableThreshold {
		err := ts.alarms.Upsert(ctx, entity.AlarmRecord{TabID: tabID, Kind: kind, ScheduledAt: scheduledAt})
		if err != nil {
			log.Warn().Err(err).Int("tab_id", int(tabID)).Msg("durable alarm write failed; in-process timer only")
		}
	} else {
		// Short delays never get a durable half; clear any stale row.
		if err := ts.alarms.Delete(ctx, tabID); err != nil {
			log.Debug().Err(err).Int("tab_id", int(tabID)).Msg("stale alarm cleanup failed")
		}
	}
}

// Cancel stops both timer halves for the tab. Calling it when no timer
// exists is a no-op.
func (ts *TimerSet) Cancel(ctx context.Context, tabID entity.TabID) {
	ts.mu.Lock()
	if slot, ok := ts.slots[tabID]; ok {
		slot.inProcess.Stop()
		delete(ts.slots, tabID)
	}
	ts.mu.Unlock()

	if ts.alarms != nil {
		if err := ts.alarms.Delete(ctx, tabID); err != nil {
			logging.FromContext(ctx).Debug().Err(err).Int("tab_id", int(tabID)).Msg("alarm delete failed")
		}
	}
}

// onFire is the single entry point for both timer halves. The generation
// check makes a superseded or duplicate firing a no-op.
func (ts *TimerSet) onFire(tabID entity.TabID, gen uint64) {
	ts.mu.Lock()
	slot, ok := ts.slots[tabID]
	if !ok || slot.gen != gen {
		ts.mu.Unlock()
		return
	}
	kind := slot.kind
	delete(ts.slots, tabID)
	ts.mu.Unlock()

	if ts.alarms != nil {
		// Best-effort; a leftover row is cleaned by the next sweep.
		_ = ts.alarms.Delete(context.Background(), tabID)
	}

	ts.fire(tabID, kind)
}

// Restore re-arms timers from persisted alarms after a restart. Alarms
// already due fire immediately; the rest are re-armed with the reduced
// delay so they fire at the originally intended time.
func (ts *TimerSet) Restore(ctx context.Context) error {
	if ts.alarms == nil {
		return nil
	}
	log := logging.FromContext(ctx)

	alarms, err := ts.alarms.LoadAll(ctx)
	if err != nil {
		return err
	}

	now := ts.clock.Now()
	for _, alarm := range alarms {
		remaining := alarm.Remaining(now)
		if remaining <= 0 {
			log.Debug().Int("tab_id", int(alarm.TabID)).Str("kind", string(alarm.Kind)).
				Msg("restored alarm already due; firing now")
		}
		ts.Schedule(ctx, alarm.TabID, remaining, alarm.Kind)
	}

	log.Info().Int("alarm_count", len(alarms)).Msg("durable alarms restored")
	return nil
}

// Sweep fires any due durable alarm whose in-process half was lost, for
// example after a long process suspension. Runs periodically from the
// serve loop.
func (ts *TimerSet) Sweep(ctx context.Context) {
	if ts.alarms == nil {
		return
	}
	log := logging.FromContext(ctx)

	alarms, err := ts.alarms.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("alarm sweep read failed")
		return
	}

	now := ts.clock.Now()
	for _, alarm := range alarms {
		if alarm.Remaining(now) > 0 {
			continue
		}
		ts.mu.Lock()
		slot, ok := ts.slots[alarm.TabID]
		var gen uint64
		if ok {
			gen = slot.gen
		}
		ts.mu.Unlock()

		if ok {
			// The in-process half exists but is overdue; fire through the
			// guarded path so a racing AfterFunc stays a no-op.
			ts.onFire(alarm.TabID, gen)
		} else {
			// Orphaned row with no slot: clean up and fire directly.
			if err := ts.alarms.Delete(ctx, alarm.TabID); err != nil {
				log.Debug().Err(err).Int("tab_id", int(alarm.TabID)).Msg("orphan alarm cleanup failed")
			}
			ts.fire(alarm.TabID, alarm.Kind)
		}
	}
}

// Active reports whether a timer is currently armed for the tab.
func (ts *TimerSet) Active(tabID entity.TabID) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.slots[tabID]
	return ok
}

// ScheduledAt returns the target fire time for the tab's armed timer.
func (ts *TimerSet) ScheduledAt(tabID entity.TabID) (time.Time, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	slot, ok := ts.slots[tabID]
	if !ok {
		return time.Time{}, false
	}
	return slot.scheduledAt, true
}
