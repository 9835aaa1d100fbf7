package presenter

import (
	"context"

	"smartdocs/internal/reconcile"
)

// Answer is one reply on a Channel presenter.
type Answer struct {
	Decision reconcile.Decision
	Err      error
}

// Channel hands comparisons to another goroutine and waits for its answer.
// Closing the answer channel abandons the walk.
type Channel struct {
	requests chan reconcile.Comparison
	answers  chan Answer
}

// NewChannel returns a Channel with unbuffered request and answer channels.
func NewChannel() *Channel {
	return &Channel{
		requests: make(chan reconcile.Comparison),
		answers:  make(chan Answer),
	}
}

// Requests yields each comparison as the walk reaches it.
func (c *Channel) Requests() <-chan reconcile.Comparison { return c.requests }

// Answers takes exactly one reply per request.
func (c *Channel) Answers() chan<- Answer { return c.answers }

func (c *Channel) Present(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
	select {
	case <-ctx.Done():
		return reconcile.Reject, ctx.Err()
	case c.requests <- cmp:
	}
	select {
	case <-ctx.Done():
		return reconcile.Reject, ctx.Err()
	case a, ok := <-c.answers:
		if !ok {
			return reconcile.Reject, reconcile.ErrAbandoned
		}
		return a.Decision, a.Err
	}
}
