// Package testutil provides deterministic clocks and id generators shared by
// tests across packages.
package testutil

import (
	"sync"
	"time"
)

// TickingClock is a thread-safe deterministic wall clock for tests.
//
// Every call to Now advances the clock by a fixed step, so a sequence of
// appends gets strictly increasing, reproducible timestamps. The same test
// run twice produces byte-identical event logs.
type TickingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int
}

// NewTickingClock creates a clock whose first Now() returns start and whose
// every subsequent call advances by step.
func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{start: start, step: step}
}

// DefaultTickingClock returns a clock starting at a fixed reference instant,
// ticking one second per call. Suitable for golden tests.
func DefaultTickingClock() *TickingClock {
	return NewTickingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)
}

// Now returns the current instant and advances the clock one step.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Current returns the instant the next Now() will report, without advancing.
func (c *TickingClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.calls) * c.step)
}

// Reset rewinds the clock to its start instant.
func (c *TickingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
