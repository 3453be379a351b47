package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a SteppingClock: 2026-01-01T00:00:00Z.
var Epoch = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock provides a thread-safe deterministic wall clock for tests.
//
// Each call to Now returns the previous reading plus a fixed step, so rows
// stamped in sequence get strictly increasing timestamps that are
// identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewSteppingClock creates a clock starting at Epoch that advances one
// second per reading.
//
// The first call to Now() returns Epoch + 1s.
func NewSteppingClock() *SteppingClock {
	return NewSteppingClockAt(Epoch, time.Second)
}

// NewSteppingClockAt creates a clock with an explicit start and step.
func NewSteppingClockAt(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{start: start.UTC(), step: step}
}

// Now advances the clock by one step and returns the new reading.
// Its signature matches time.Now so it can be passed to store.WithClock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Current returns the latest reading without advancing.
func (c *SteppingClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Advance moves the clock forward by n steps without producing a reading.
// Useful to open a visible gap between two stamped rows.
func (c *SteppingClock) Advance(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks += int64(n)
}

// Reset rewinds the clock to its start.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
