// Package testutil provides the manual clock and system builder shared by
// payhatch tests and the conformance harness.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a chrono.Clock whose time only moves when a test says so.
//
// Cooldown tests jump it across windows the way a chain test suite jumps
// block time.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// Epoch is the fixed starting instant for deterministic tests and golden
// traces.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewManualClock creates a clock frozen at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// NewManualClockAt creates a clock frozen at the given instant.
func NewManualClockAt(at time.Time) *ManualClock {
	return &ManualClock{now: at}
}

// Now returns the frozen instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance jumps the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set freezes the clock at a specific instant.
func (c *ManualClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}
