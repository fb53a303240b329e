// Package repository defines persistence interfaces for the scheduler's
// durable state. Implementations live under internal/infrastructure.
package repository

import (
	"context"

	"github.com/wordgate/wordgate/internal/domain/entity"
)

// TabStateRepository persists the per-tab schedule map. The in-memory map
// is authoritative; persistence is best-effort and batched.
type TabStateRepository interface {
	// SaveAll upserts the given states and deletes any persisted tab
	// not present in the slice.
	SaveAll(ctx context.Context, states []*entity.TabState) error
	// LoadAll returns every persisted tab state.
	LoadAll(ctx context.Context) ([]*entity.TabState, error)
	// Delete removes a single tab's state. Missing rows are not an error.
	Delete(ctx context.Context, tabID entity.TabID) error
}

// AlarmRepository persists the durable half of scheduled timers.
type AlarmRepository interface {
	// Upsert records the single active alarm for a tab, replacing any prior one.
	Upsert(ctx context.Context, alarm entity.AlarmRecord) error
	// Delete removes a tab's alarm. Missing rows are not an error.
	Delete(ctx context.Context, tabID entity.TabID) error
	// LoadAll returns every persisted alarm, for restore and sweeping.
	LoadAll(ctx context.Context) ([]entity.AlarmRecord, error)
}
