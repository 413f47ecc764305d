package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant DeterministicClock reports.
var Epoch = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that starts at Epoch and
// advances by a fixed step on every call to Now.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	step time.Duration
	next time.Time
}

// NewDeterministicClock creates a clock starting at Epoch that advances by
// one second per reading.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Second, next: Epoch}
}

// NewFrozenClock creates a clock that always reports t.
func NewFrozenClock(t time.Time) *DeterministicClock {
	return &DeterministicClock{next: t}
}

// Now returns the current reading and advances the clock.
// Matches the func() time.Time shape expected by store.WithClock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Reset rewinds the clock to Epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Epoch
}
