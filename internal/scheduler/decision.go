package scheduler

import (
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/domain/policy"
)

// Evaluate answers "should this tab currently be blocked, and why". It only
// reports previously-decided state; the decision that time is up is made
// exclusively by a timer firing, so there is never a second code path
// computing overdueness against a different clock.
func (s *Service) Evaluate(tabID entity.TabID, url string) entity.BlockDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ineligible URLs are never blocked, overriding any stale state.
	if !policy.IsEligible(url, s.rules()) {
		return entity.Unblocked()
	}

	state := s.store.Get(tabID)
	if state == nil {
		// Untracked tabs have no timer driving them: fail open.
		return entity.Unblocked()
	}

	return decisionFor(state, s.clock.Now())
}

// decisionFor maps a tab state to its block decision at the given instant.
// An active penalty window always reports reason penalty, regardless of the
// stored transitional reason.
func decisionFor(state *entity.TabState, now time.Time) entity.BlockDecision {
	if state.InPenalty(now) {
		return entity.BlockDecision{
			ShouldBlock:    true,
			Reason:         entity.BlockReasonPenalty,
			PenaltyEndTime: state.PenaltyEndTime,
		}
	}
	return entity.BlockDecision{
		ShouldBlock:    state.IsBlocked,
		Reason:         state.BlockReason,
		PenaltyEndTime: state.PenaltyEndTime,
	}
}
