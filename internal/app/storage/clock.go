package storage

import (
	"sync"
	"time"
)

// Clock hands out creation timestamps. Readings are UTC and never go back
// in time, even when the wall clock is adjusted backwards.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock returns a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockFunc returns a clock backed by fn. Used in tests.
func NewClockFunc(fn func() time.Time) *Clock {
	return &Clock{now: fn}
}

// Now returns the next creation timestamp.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Postgres timestamptz keeps microseconds.
	t := c.now().UTC().Truncate(time.Microsecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
