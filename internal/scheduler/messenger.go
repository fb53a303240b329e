package scheduler

import (
	"context"
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
)

// PageMessenger is the page messaging collaborator: best-effort display
// commands toward a tab's content layer. Delivery failure (tab closed or
// navigated away) is logged by the caller and otherwise ignored; the next
// lifecycle event for the tab reconciles state.
type PageMessenger interface {
	ShowQuestion(ctx context.Context, tabID entity.TabID, reason entity.BlockReason) error
	ShowPenalty(ctx context.Context, tabID entity.TabID, until time.Time) error
	Dismiss(ctx context.Context, tabID entity.TabID) error
}
