// Package internal provides shared utilities for the portal packages.
package internal

import "time"

// Clock abstracts time observation and suspension so that every polling
// loop in the tool (OTP delivery, stream indicators, calendar navigation)
// can be driven deterministically in tests.
type Clock interface {
	// Now returns the current time. Implementations must return
	// monotonically increasing values.
	Now() time.Time

	// Sleep suspends the caller for the given duration. A zero or
	// negative duration returns immediately.
	Sleep(d time.Duration)
}

// MonotonicClock is the production Clock. Go's time.Now carries a
// monotonic reading, so elapsed-time math is safe against wall-clock
// adjustments.
type MonotonicClock struct{}

// Now returns the current system time.
func (MonotonicClock) Now() time.Time { return time.Now() }

// Sleep blocks for d using the runtime timer.
func (MonotonicClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// MockClock is a Clock for tests. Sleep advances the clock instead of
// blocking, so retry loops that would span minutes run instantly while
// still observing correct elapsed time. Not safe for concurrent use.
type MockClock struct {
	current time.Time
	slept   time.Duration
}

// NewMockClock creates a MockClock starting at t. A zero t starts at a
// fixed reference instant to avoid zero-time edge cases.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		t = time.Unix(1_700_000_000, 0) // 2023-11-14
	}
	return &MockClock{current: t}
}

// Now returns the mock clock's current time.
func (m *MockClock) Now() time.Time { return m.current }

// Sleep advances the clock by d and records it as slept time.
func (m *MockClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	m.current = m.current.Add(d)
	m.slept += d
}

// Advance moves the clock forward without counting as sleep.
// Panics if d is negative to maintain monotonicity.
func (m *MockClock) Advance(d time.Duration) {
	if d < 0 {
		panic("MockClock.Advance: duration must be non-negative")
	}
	m.current = m.current.Add(d)
}

// Slept reports the total duration passed to Sleep.
func (m *MockClock) Slept() time.Duration { return m.slept }
