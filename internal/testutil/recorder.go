package testutil

import (
	"context"
	"sync"
)

// Received is one value observed by a Recorder.
type Received[T any] struct {
	Tick  int64
	Value T
}

// Recorder collects the values a poll handler is given.
//
// Its Handle method matches the bridge handler signature, so tests pass
// rec.Handle wherever a handler is expected.
type Recorder[T any] struct {
	mu   sync.Mutex
	seen []Received[T]
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Handle records v.
func (r *Recorder[T]) Handle(_ context.Context, tick int64, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, Received[T]{Tick: tick, Value: v})
	return nil
}

// Received returns a copy of everything recorded so far.
func (r *Recorder[T]) Received() []Received[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received[T](nil), r.seen...)
}

// Values returns the recorded values in order.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.seen))
	for i, rec := range r.seen {
		out[i] = rec.Value
	}
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
