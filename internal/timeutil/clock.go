// Package timeutil provides a testable abstraction over the monotonic clock
// that timestamps pointer samples.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time, carrying a monotonic reading where the
	// implementation has one.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Monotonic turns a Clock into a millisecond reading function anchored at
// the moment it was created.
type Monotonic struct {
	clock  Clock
	origin time.Time
}

// NewMonotonic anchors a millisecond reader at clock.Now().
func NewMonotonic(clock Clock) *Monotonic {
	if clock == nil {
		clock = RealClock{}
	}
	return &Monotonic{clock: clock, origin: clock.Now()}
}

// ReadMillis returns milliseconds elapsed since the reader was created.
func (m *Monotonic) ReadMillis() float64 {
	return Millis(m.clock.Since(m.origin))
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time. Setting it backwards is
// allowed so callers can exercise non-monotonic readings.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AdvanceMillis moves the mock clock by ms milliseconds.
func (c *MockClock) AdvanceMillis(ms float64) {
	c.Advance(time.Duration(ms * float64(time.Millisecond)))
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
