package api

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/starford/namespacer/internal/apperr"
	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/notify"
)

// DefaultConfirmTimeout is how long a prompt waits for an answer before the
// batch is cancelled.
const DefaultConfirmTimeout = 10 * time.Minute

// Publisher sends events to connected clients.
type Publisher interface {
	Publish(notify.Event)
}

type pending struct {
	PendingConfirmation
	answer chan bool
}

// Confirmations is a batch.Confirmer answered over HTTP. Each prompt is
// announced as a confirm.requested event and waits until a client resolves
// it, the timeout passes or the batch context ends.
type Confirmations struct {
	pub     Publisher
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pending
}

var _ batch.Confirmer = (*Confirmations)(nil)

// NewConfirmations creates a registry. pub may be nil.
func NewConfirmations(pub Publisher, timeout time.Duration) *Confirmations {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &Confirmations{
		pub:     pub,
		timeout: timeout,
		now:     time.Now,
		pending: make(map[int64]*pending),
	}
}

// Confirm registers p and blocks for the answer.
func (c *Confirmations) Confirm(ctx context.Context, p batch.Prompt) (bool, error) {
	c.mu.Lock()
	c.nextID++
	req := &pending{
		PendingConfirmation: PendingConfirmation{ID: c.nextID, Prompt: p, CreatedAt: c.now()},
		answer:              make(chan bool, 1),
	}
	c.pending[req.ID] = req
	c.mu.Unlock()

	if c.pub != nil {
		c.pub.Publish(notify.Event{Type: notify.EventConfirmRequested, Data: req.PendingConfirmation})
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case ok := <-req.answer:
		return ok, nil
	case <-timer.C:
		c.drop(req.ID)
		return false, fmt.Errorf("confirmation %d timed out: %w", req.ID, apperr.ErrCancelled)
	case <-ctx.Done():
		c.drop(req.ID)
		return false, ctx.Err()
	}
}

// Resolve answers the prompt with the given id.
func (c *Confirmations) Resolve(id int64, confirm bool) error {
	c.mu.Lock()
	req, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("confirmation %d: %w", id, apperr.ErrNotFound)
	}
	req.answer <- confirm
	return nil
}

// List returns the pending prompts, oldest first.
func (c *Confirmations) List() []PendingConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingConfirmation, 0, len(c.pending))
	for _, req := range c.pending {
		out = append(out, req.PendingConfirmation)
	}
	slices.SortFunc(out, func(a, b PendingConfirmation) int {
		return int(a.ID - b.ID)
	})
	return out
}

func (c *Confirmations) drop(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
