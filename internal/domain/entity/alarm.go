package entity

import "time"

// TimerKind distinguishes the recurring question schedule from the
// one-shot wrong-answer lockout.
type TimerKind string

const (
	TimerKindPeriodic TimerKind = "periodic"
	TimerKindPenalty  TimerKind = "penalty"
)

// AlarmRecord is the durable half of a scheduled timer. Cancel handles are
// not persisted; slots are rebuilt from these records on restore.
type AlarmRecord struct {
	TabID       TabID     `json:"tab_id"`
	Kind        TimerKind `json:"kind"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Remaining returns the time left until the alarm is due. Zero or negative
// means the alarm should fire immediately.
func (a AlarmRecord) Remaining(now time.Time) time.Duration {
	return a.ScheduledAt.Sub(now)
}
