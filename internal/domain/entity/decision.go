package entity

import "time"

// BlockDecision answers "should this tab currently be blocked, and why".
// It reports previously-decided state; it never decides that time is up.
type BlockDecision struct {
	ShouldBlock    bool        `json:"should_block"`
	Reason         BlockReason `json:"reason"`
	PenaltyEndTime time.Time   `json:"penalty_end_time"`
}

// Unblocked is the decision for ineligible or untracked tabs.
func Unblocked() BlockDecision {
	return BlockDecision{}
}
