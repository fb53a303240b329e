package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wordgate/wordgate/internal/domain/entity"
)

// maxQueuedCommands bounds each tab's outbox. The extension polls every few
// seconds; a backlog deeper than this means the tab is gone and commands
// are droppable noise.
const maxQueuedCommands = 16

// DisplayCommand is one queued instruction for a tab's content layer.
type DisplayCommand struct {
	Op     string             `json:"op"` // show_question, show_penalty, dismiss
	Reason entity.BlockReason `json:"reason,omitempty"`
	Until  *time.Time         `json:"until,omitempty"`
}

// Outbox implements scheduler.PageMessenger over the extension's polling
// model: commands queue per tab until the extension drains them. Delivery
// is best-effort; overflow and drained-never queues are dropped silently,
// which is exactly the contract the scheduler expects.
type Outbox struct {
	mu     sync.Mutex
	queues map[entity.TabID][]DisplayCommand
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{queues: make(map[entity.TabID][]DisplayCommand)}
}

func (o *Outbox) enqueue(tabID entity.TabID, cmd DisplayCommand) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.queues[tabID]
	if len(q) >= maxQueuedCommands {
		return fmt.Errorf("outbox for tab %d full; dropping %s", tabID, cmd.Op)
	}
	o.queues[tabID] = append(q, cmd)
	return nil
}

// ShowQuestion queues a "show question" command.
func (o *Outbox) ShowQuestion(_ context.Context, tabID entity.TabID, reason entity.BlockReason) error {
	return o.enqueue(tabID, DisplayCommand{Op: "show_question", Reason: reason})
}

// ShowPenalty queues a penalty countdown display until the given time.
func (o *Outbox) ShowPenalty(_ context.Context, tabID entity.TabID, until time.Time) error {
	return o.enqueue(tabID, DisplayCommand{Op: "show_penalty", Until: &until})
}

// Dismiss queues an overlay dismissal.
func (o *Outbox) Dismiss(_ context.Context, tabID entity.TabID) error {
	return o.enqueue(tabID, DisplayCommand{Op: "dismiss"})
}

// Drain returns and clears the queued commands for a tab.
func (o *Outbox) Drain(tabID entity.TabID) []DisplayCommand {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.queues[tabID]
	delete(o.queues, tabID)
	return q
}

// Drop discards a closed tab's queue.
func (o *Outbox) Drop(tabID entity.TabID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.queues, tabID)
}
