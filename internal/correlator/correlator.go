// Package correlator pairs device replies with the operations awaiting them.
//
// The wire protocol carries no request ids, so each response category keeps a
// FIFO of waiters and an inbound reply always completes the oldest one. Pairing
// is only correct while callers keep at most one logical request in flight per
// category.
package correlator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rbright/autojs-host/internal/protocol"
)

// ErrOperationAborted is returned to waiters drained by ResetAll.
var ErrOperationAborted = errors.New("operation aborted")

// Category is one correlated response kind.
type Category string

const (
	CategoryResult   Category = "result"
	CategoryStatus   Category = "status"
	CategorySnapshot Category = "snapshot"
)

// Categories lists every correlated category in a stable order.
var Categories = []Category{CategoryResult, CategoryStatus, CategorySnapshot}

type outcome struct {
	cmd protocol.Command
	err error
}

// Waiter is a single-use completion handle owned by the Correlator until fulfilled.
type Waiter struct {
	category Category
	done     chan outcome
}

// Category reports which queue the waiter belongs to.
func (w *Waiter) Category() Category {
	return w.category
}

// Wait blocks until the waiter is fulfilled or ctx ends.
//
// A waiter abandoned through ctx stays queued until its category is reset;
// callers that give up must call ResetAll or the next reply is misdelivered.
func (w *Waiter) Wait(ctx context.Context) (protocol.Command, error) {
	select {
	case o := <-w.done:
		return o.cmd, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Waiter) fulfill(o outcome) {
	w.done <- o
}

// Correlator holds one FIFO of pending waiters per category.
type Correlator struct {
	logger *slog.Logger

	mu     sync.Mutex
	queues map[Category]*queue
}

// New constructs an empty Correlator. A nil logger discards drop reports.
func New(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	queues := make(map[Category]*queue, len(Categories))
	for _, category := range Categories {
		queues[category] = &queue{}
	}
	return &Correlator{logger: logger, queues: queues}
}

// AwaitNext registers a waiter at the tail of category's queue and returns immediately.
func (c *Correlator) AwaitNext(category Category) *Waiter {
	w := &Waiter{category: category, done: make(chan outcome, 1)}

	c.mu.Lock()
	c.queueFor(category).push(w)
	c.mu.Unlock()

	return w
}

// Deliver fulfills the oldest waiter of category with cmd.
//
// It reports false when nobody was waiting; the reply is dropped.
func (c *Correlator) Deliver(category Category, cmd protocol.Command) bool {
	c.mu.Lock()
	w, ok := c.queueFor(category).pop()
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("dropping unexpected reply", "category", string(category), "kind", string(cmd.Kind()))
		return false
	}
	w.fulfill(outcome{cmd: cmd})
	return true
}

// ResetAll rejects every pending waiter of category with ErrOperationAborted.
// Other categories are untouched. It returns the number of waiters rejected.
func (c *Correlator) ResetAll(category Category) int {
	c.mu.Lock()
	drained := c.queueFor(category).drain()
	c.mu.Unlock()

	for _, w := range drained {
		w.fulfill(outcome{err: ErrOperationAborted})
	}
	if len(drained) > 0 {
		c.logger.Info("reset pending waiters", "category", string(category), "count", len(drained))
	}
	return len(drained)
}

// Pending reports how many waiters are queued for category.
func (c *Correlator) Pending(category Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueFor(category).len()
}

// queueFor lazily creates queues for categories outside the default set.
func (c *Correlator) queueFor(category Category) *queue {
	q, ok := c.queues[category]
	if !ok {
		q = &queue{}
		c.queues[category] = q
	}
	return q
}
