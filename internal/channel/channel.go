package channel

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send after the consumer has been closed.
//
// In normal operation the consumer outlives every producer, so seeing this
// error means an ownership invariant was broken.
var ErrClosed = errors.New("channel: consumer closed")

// queue is the shared state behind a handle pair.
//
// The queue is unbounded so a burst of uploads between two ticks never blocks
// the browser side.
type queue[T any] struct {
	mu     sync.Mutex
	values []T
	closed bool

	// sent and taken count accepted and delivered values for diagnostics.
	sent  atomic.Int64
	taken atomic.Int64
}

// Producer is the sending half of a channel.
//
// Thread-safety: Send may be called from any goroutine. Each long-lived
// handler should own its own Producer obtained through Clone.
type Producer[T any] struct {
	q *queue[T]
}

// Consumer is the receiving half of a channel.
//
// Thread-safety: TryTake, Len and Close are safe from any goroutine, but the
// design assumes a single logical consumer (the engine tick loop).
type Consumer[T any] struct {
	q *queue[T]
}

// Stats is a point-in-time view of channel counters.
type Stats struct {
	Sent    int64
	Taken   int64
	Pending int
	Closed  bool
}

// New creates a connected producer/consumer pair over an empty queue.
func New[T any]() (*Producer[T], *Consumer[T]) {
	q := &queue[T]{
		values: make([]T, 0, 16),
	}
	return &Producer[T]{q: q}, &Consumer[T]{q: q}
}

// Send appends v to the back of the queue.
// Returns ErrClosed if the consumer has been closed; v is not enqueued.
func (p *Producer[T]) Send(v T) error {
	q := p.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	q.values = append(q.values, v)
	q.sent.Add(1)
	return nil
}

// Clone returns a new producer handle onto the same queue.
func (p *Producer[T]) Clone() *Producer[T] {
	return &Producer[T]{q: p.q}
}

// TryTake removes and returns the oldest pending value.
// Returns (zero, false) immediately if nothing is pending.
func (c *Consumer[T]) TryTake() (T, bool) {
	q := c.q
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.values) == 0 {
		return zero, false
	}

	v := q.values[0]

	// Zero the slot so the backing array does not pin whatever v references.
	q.values[0] = zero

	if len(q.values) == 1 {
		q.values = q.values[:0]
	} else {
		q.values = q.values[1:]
	}

	q.taken.Add(1)
	return v, true
}

// Len returns the number of pending values.
func (c *Consumer[T]) Len() int {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	return len(c.q.values)
}

// Close marks the consumer as gone. Later Sends fail with ErrClosed.
// Values already pending remain takeable. Close is idempotent.
func (c *Consumer[T]) Close() error {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	c.q.closed = true
	return nil
}

// Stats returns the current counters.
func (c *Consumer[T]) Stats() Stats {
	q := c.q
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Sent:    q.sent.Load(),
		Taken:   q.taken.Load(),
		Pending: len(q.values),
		Closed:  q.closed,
	}
}
