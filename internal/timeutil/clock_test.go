package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(1500 * time.Microsecond); got != 1.5 {
		t.Errorf("Millis(1.5ms) = %v, want 1.5", got)
	}
	if got := Millis(0); got != 0 {
		t.Errorf("Millis(0) = %v, want 0", got)
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(5 * time.Second)
	if got := clock.Since(start); got != 5*time.Second {
		t.Errorf("Since() = %v, want 5s", got)
	}

	clock.AdvanceMillis(12.5)
	if got := clock.Since(start); got != 5*time.Second+12500*time.Microsecond {
		t.Errorf("Since() = %v, want 5.0125s", got)
	}
}

func TestMockClock_SetBackwards(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Set(start.Add(-time.Second))

	if got := clock.Since(start); got != -time.Second {
		t.Errorf("Since() = %v, want -1s", got)
	}
}

func TestMonotonic_ReadMillis(t *testing.T) {
	clock := NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMonotonic(clock)

	if got := m.ReadMillis(); got != 0 {
		t.Errorf("ReadMillis() = %v, want 0", got)
	}
	clock.AdvanceMillis(16)
	if got := m.ReadMillis(); got != 16 {
		t.Errorf("ReadMillis() = %v, want 16", got)
	}
}

func TestMonotonic_NilClockUsesRealClock(t *testing.T) {
	m := NewMonotonic(nil)
	if got := m.ReadMillis(); got < 0 {
		t.Errorf("ReadMillis() = %v, want >= 0", got)
	}
}
