// Package entity defines the core domain types for the wordgate scheduler.
package entity

import (
	"errors"
	"time"
)

// TabID identifies a single browsing context. It matches the browser's
// numeric tab identifier and is the unit of granularity for blocking.
type TabID int

// BlockReason explains why a tab is currently blocked.
type BlockReason string

const (
	BlockReasonNone        BlockReason = ""
	BlockReasonPeriodic    BlockReason = "periodic"
	BlockReasonWrongAnswer BlockReason = "wrong_answer"
	BlockReasonPenalty     BlockReason = "penalty"
	BlockReasonManual      BlockReason = "manual"
)

var (
	ErrInvalidTabState = errors.New("invalid tab state")
	ErrUnknownTab      = errors.New("unknown tab")
)

// TabState tracks the question schedule for one live, block-eligible tab.
// It is owned by the scheduler service and mutated only under its lock.
type TabState struct {
	TabID            TabID       `json:"tab_id"`
	URL              string      `json:"url"`
	LastQuestionTime time.Time   `json:"last_question_time"`
	QuestionCount    int         `json:"question_count"`
	IsBlocked        bool        `json:"is_blocked"`
	BlockReason      BlockReason `json:"block_reason"`
	PenaltyEndTime   time.Time   `json:"penalty_end_time"`
}

// InPenalty reports whether a wrong-answer lockout is active at the given time.
func (s *TabState) InPenalty(now time.Time) bool {
	return s != nil && !s.PenaltyEndTime.IsZero() && s.PenaltyEndTime.After(now)
}

// ClearBlock resets all blocking fields without touching the schedule.
func (s *TabState) ClearBlock() {
	s.IsBlocked = false
	s.BlockReason = BlockReasonNone
	s.PenaltyEndTime = time.Time{}
}

// Block marks the tab blocked for the given reason.
// Invariant: IsBlocked implies a non-empty reason.
func (s *TabState) Block(reason BlockReason) {
	s.IsBlocked = true
	s.BlockReason = reason
}

func (s *TabState) Validate() error {
	if s == nil {
		return ErrInvalidTabState
	}
	if s.URL == "" {
		return ErrInvalidTabState
	}
	if s.IsBlocked && s.BlockReason == BlockReasonNone {
		return ErrInvalidTabState
	}
	if s.QuestionCount < 0 {
		return ErrInvalidTabState
	}
	return nil
}
