// Package scheduler implements the tab lifecycle and scheduling engine:
// per-tab question/penalty state, timer arming and restoration, and the
// block decision for each tab.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/policy"
	"github.com/wordgate/wordgate/internal/logging"
)

// firstSightGrace is the delay before the first question when the
// first_sight policy is "immediate". A short beat lets the page settle
// instead of interrupting mid-load.
const firstSightGrace = 5 * time.Second

// Service owns all mutable scheduling state. Browser events, timer fires,
// answer submissions and settings changes all serialize on mu, so each
// handler sees and leaves a consistent picture. Ordering across different
// tabs is not guaranteed and not needed (state is keyed per tab).
type Service struct {
	mu        sync.Mutex
	cfg       config.BlockingConfig
	store     *Store
	timers    *TimerSet
	messenger PageMessenger
	clock     Clock

	ctx context.Context // base context carrying the service logger
}

// NewService wires the scheduler and registers itself as the timer fire
// handler. messenger must not be nil; pass a no-op implementation when
// running headless.
func NewService(ctx context.Context, cfg config.BlockingConfig, store *Store, timers *TimerSet, messenger PageMessenger, clock Clock) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		timers:    timers,
		messenger: messenger,
		clock:     clock,
		ctx:       logging.WithComponent(ctx, "scheduler"),
	}
	timers.fire = s.handleTimerFired
	return s
}

// rules derives policy rules from the current config. Caller holds mu.
func (s *Service) rules() policy.Rules {
	return policy.Rules{
		Mode:     policy.Mode(s.cfg.Mode),
		SiteList: s.cfg.SiteList,
	}
}

// OnTabSeen handles both tab activation and completed navigation for URL u.
// A changed URL is a true navigation: fresh state, fresh full-interval
// timer. An unchanged URL is a refresh: state and countdown are preserved
// untouched. Ineligible URLs drop tracking entirely.
func (s *Service) OnTabSeen(ctx context.Context, tabID entity.TabID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logging.FromContext(s.ctx)

	if !policy.IsEligible(url, s.rules()) {
		if s.store.Get(tabID) != nil {
			log.Debug().Int("tab_id", int(tabID)).Str("url", url).Msg("tab left eligible territory; dropping")
			s.timers.Cancel(ctx, tabID)
			s.store.Delete(tabID)
		}
		return
	}

	existing := s.store.Get(tabID)
	if existing != nil && existing.URL == url {
		// Refresh: never reset the countdown or duplicate timers.
		return
	}

	now := s.clock.Now()
	state := &entity.TabState{TabID: tabID, URL: url}
	delay := s.cfg.PeriodicInterval
	switch s.cfg.FirstSight {
	case config.FirstSightImmediate:
		state.LastQuestionTime = now.Add(-s.cfg.PeriodicInterval)
		delay = firstSightGrace
	default:
		state.LastQuestionTime = now
	}

	s.store.Set(tabID, state)
	s.timers.Schedule(ctx, tabID, delay, entity.TimerKindPeriodic)

	log.Debug().Int("tab_id", int(tabID)).Str("url", url).Dur("delay", delay).Msg("tab tracked")
}

// OnTabRemoved tears down tracking for a closed tab. Terminal.
func (s *Service) OnTabRemoved(ctx context.Context, tabID entity.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.Cancel(ctx, tabID)
	s.store.Delete(tabID)
}

// handleTimerFired reacts to either timer half winning the race. Stale
// events (no state for the tab) are dropped silently; the browser event
// stream re-synchronizes on the next navigation or activation.
func (s *Service) handleTimerFired(tabID entity.TabID, kind entity.TimerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.ctx
	log := logging.FromContext(ctx)

	state := s.store.Get(tabID)
	if state == nil {
		log.Debug().Int("tab_id", int(tabID)).Str("kind", string(kind)).Msg("timer fired for untracked tab; dropping")
		return
	}

	switch kind {
	case entity.TimerKindPenalty:
		s.finishPenalty(ctx, state)
	default:
		s.fireQuestion(ctx, state, entity.BlockReasonPeriodic)
	}
}

// fireQuestion marks the tab blocked and asks the page to show a question.
// The message is fire-and-forget: if the tab navigated away in the interim
// the next lifecycle event re-evaluates block status anyway. Caller holds mu.
func (s *Service) fireQuestion(ctx context.Context, state *entity.TabState, reason entity.BlockReason) {
	log := logging.FromContext(ctx)

	// State may be stale; re-validate before blocking.
	if !policy.IsEligible(state.URL, s.rules()) {
		log.Debug().Int("tab_id", int(state.TabID)).Msg("tab no longer eligible at fire time; dropping")
		s.store.Delete(state.TabID)
		return
	}

	state.Block(reason)
	s.store.Persist(ctx)

	if err := s.messenger.ShowQuestion(ctx, state.TabID, reason); err != nil {
		log.Debug().Err(err).Int("tab_id", int(state.TabID)).Msg("question display message not delivered")
	}
}

// finishPenalty clears a wrong-answer lockout. The penalty period counts as
// resolved, not as still owing a question, so the schedule restarts from
// now. Caller holds mu.
func (s *Service) finishPenalty(ctx context.Context, state *entity.TabState) {
	log := logging.FromContext(ctx)

	state.ClearBlock()
	state.LastQuestionTime = s.clock.Now()
	s.timers.Schedule(ctx, state.TabID, s.cfg.PeriodicInterval, entity.TimerKindPeriodic)
	s.store.Persist(ctx)

	if err := s.messenger.Dismiss(ctx, state.TabID); err != nil {
		log.Debug().Err(err).Int("tab_id", int(state.TabID)).Msg("penalty dismiss message not delivered")
	}
}

// ResolveAnswer applies the side effects of an answer whose correctness was
// already computed by the question collaborator.
func (s *Service) ResolveAnswer(ctx context.Context, tabID entity.TabID, isCorrect bool) (entity.BlockDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logging.FromContext(s.ctx)

	state := s.store.Get(tabID)
	if state == nil {
		return entity.Unblocked(), fmt.Errorf("resolve answer: %w (tab %d)", entity.ErrUnknownTab, tabID)
	}

	now := s.clock.Now()

	if isCorrect {
		state.LastQuestionTime = now
		state.QuestionCount++
		state.ClearBlock()
		s.timers.Schedule(ctx, tabID, s.cfg.PeriodicInterval, entity.TimerKindPeriodic)
		s.store.Persist(ctx)

		if err := s.messenger.Dismiss(ctx, tabID); err != nil {
			log.Debug().Err(err).Int("tab_id", int(tabID)).Msg("dismiss message not delivered")
		}
		log.Info().Int("tab_id", int(tabID)).Int("question_count", state.QuestionCount).Msg("answer correct; tab unblocked")
		return decisionFor(state, now), nil
	}

	// A repeated wrong answer recomputes the penalty window; penalties
	// replace, they never stack.
	state.Block(entity.BlockReasonWrongAnswer)
	state.PenaltyEndTime = now.Add(s.cfg.PenaltyDuration)
	s.timers.Schedule(ctx, tabID, s.cfg.PenaltyDuration, entity.TimerKindPenalty)
	s.store.Persist(ctx)

	if err := s.messenger.ShowPenalty(ctx, tabID, state.PenaltyEndTime); err != nil {
		log.Debug().Err(err).Int("tab_id", int(tabID)).Msg("penalty message not delivered")
	}
	log.Info().Int("tab_id", int(tabID)).Time("penalty_end", state.PenaltyEndTime).Msg("answer wrong; penalty armed")
	return decisionFor(state, now), nil
}

// TriggerManual blocks the tab immediately with reason manual, bypassing
// the elapsed-time check. The periodic schedule is untouched beyond the
// normal reschedule on resolution.
func (s *Service) TriggerManual(ctx context.Context, tabID entity.TabID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.store.Get(tabID)
	if state == nil {
		return fmt.Errorf("manual trigger: %w (tab %d)", entity.ErrUnknownTab, tabID)
	}
	s.fireQuestion(ctx, state, entity.BlockReasonManual)
	return nil
}

// ApplyConfig replaces the blocking configuration atomically and re-runs
// eligibility over all tracked tabs. Timers already in flight keep their
// old durations; only timers armed after this call use the new values.
// Newly eligible tabs are picked up lazily on their next event.
func (s *Service) ApplyConfig(ctx context.Context, cfg config.BlockingConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := logging.FromContext(s.ctx)

	s.cfg = cfg

	rules := s.rules()
	dropped := 0
	for _, state := range s.store.All() {
		if policy.IsEligible(state.URL, rules) {
			continue
		}
		s.timers.Cancel(ctx, state.TabID)
		s.store.Delete(state.TabID)
		dropped++
	}
	s.store.Persist(ctx)

	log.Info().
		Str("mode", cfg.Mode).
		Dur("periodic_interval", cfg.PeriodicInterval).
		Dur("penalty_duration", cfg.PenaltyDuration).
		Int("dropped_tabs", dropped).
		Msg("blocking configuration applied")
}

// Restore rebuilds in-memory state after a restart: persisted tab states
// first (dropping ineligible URLs, repairing the zero sentinel), then the
// durable alarms, firing any that came due while the process was down.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	rules := s.rules()
	now := s.clock.Now()
	if err := s.store.Restore(ctx, rules, now); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("restore tab states: %w", err)
	}
	s.mu.Unlock()

	// Timer restoration happens outside mu: already-due alarms fire
	// through handleTimerFired, which takes the lock itself.
	if err := s.timers.Restore(ctx); err != nil {
		return fmt.Errorf("restore alarms: %w", err)
	}
	return nil
}

// Persist flushes the tab state snapshot; used by the periodic persist loop
// and on shutdown.
func (s *Service) Persist(ctx context.Context) {
	s.store.Persist(ctx)
}

// Sweep fires overdue durable alarms; used by the periodic sweep loop.
// Fires run through handleTimerFired, which takes the service lock.
func (s *Service) Sweep(ctx context.Context) {
	s.timers.Sweep(ctx)
}
