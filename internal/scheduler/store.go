package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/policy"
	"github.com/wordgate/wordgate/internal/domain/repository"
	"github.com/wordgate/wordgate/internal/logging"
)

// Store is the tab state store: a RAM-first map with batched persistence.
// Reads never touch the database; Persist snapshots the whole map once a
// minute and after meaningful mutations. Losing at most one period's worth
// of state on a hard crash is acceptable.
type Store struct {
	mu     sync.RWMutex
	states map[entity.TabID]*entity.TabState
	repo   repository.TabStateRepository
}

// NewStore creates a Store. repo may be nil for in-memory-only operation
// when durable storage is unavailable.
func NewStore(repo repository.TabStateRepository) *Store {
	return &Store{
		states: make(map[entity.TabID]*entity.TabState),
		repo:   repo,
	}
}

// Get returns the state for a tab, or nil if untracked.
func (s *Store) Get(tabID entity.TabID) *entity.TabState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[tabID]
}

// Set tracks or replaces the state for a tab.
func (s *Store) Set(tabID entity.TabID, state *entity.TabState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.TabID = tabID
	s.states[tabID] = state
}

// Delete removes a tab from tracking. Unknown tabs are a no-op.
func (s *Store) Delete(tabID entity.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, tabID)
}

// All returns the tracked states. The returned slice is a fresh snapshot;
// the pointed-to states are live and must only be mutated under the
// scheduler service lock.
func (s *Store) All() []*entity.TabState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]*entity.TabState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	return states
}

// Len returns the number of tracked tabs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Persist writes the full map to durable storage. Failures are logged and
// swallowed; the next successful call re-syncs.
func (s *Store) Persist(ctx context.Context) {
	if s.repo == nil {
		return
	}
	snapshot := s.All()
	if err := s.repo.SaveAll(ctx, snapshot); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("tab state persist failed; continuing from memory")
	}
}

// Restore loads persisted state on startup. Entries whose URL is no longer
// eligible under the current rules are dropped, and the legacy
// zero-lastQuestionTime sentinel is repaired to now so the tab is not
// permanently overdue.
func (s *Store) Restore(ctx context.Context, rules policy.Rules, now time.Time) error {
	if s.repo == nil {
		return nil
	}
	log := logging.FromContext(ctx)

	persisted, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored, dropped, repaired := 0, 0, 0
	for _, st := range persisted {
		if !policy.IsEligible(st.URL, rules) {
			dropped++
			continue
		}
		if st.LastQuestionTime.IsZero() {
			st.LastQuestionTime = now
			repaired++
		}
		s.states[st.TabID] = st
		restored++
	}

	log.Info().
		Int("restored", restored).
		Int("dropped_ineligible", dropped).
		Int("repaired_sentinel", repaired).
		Msg("tab states restored")
	return nil
}
