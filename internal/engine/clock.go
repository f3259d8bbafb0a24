package engine

import "sync/atomic"

// Clock counts engine ticks.
//
// Ticks are numbered from 1. The tick number is the only notion of time the
// scheduled systems see, so two runs that feed the same uploads between the
// same ticks observe the same sequence.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), though
// only the tick loop advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock that has not ticked yet.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose last completed tick is start.
// Used to resume tick numbering, e.g. after a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick number.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the last tick number without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
