package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClockSince(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	start := time.Now().Add(-time.Second)
	if d := c.Since(start); d < time.Second {
		t.Errorf("RealClock.Since() = %v, want >= 1s", d)
	}
}

func TestMockClockAdvance(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewMockClock(base)

	if got := c.Now(); !got.Equal(base) {
		t.Errorf("Now() = %v, want %v", got, base)
	}

	c.Advance(2 * time.Second)
	if got := c.Since(base); got != 2*time.Second {
		t.Errorf("Since(base) = %v, want 2s", got)
	}
}

func TestMockClockSet(t *testing.T) {
	t.Parallel()

	c := NewMockClock(time.Unix(0, 0))
	target := time.Unix(100, 0)
	c.Set(target)
	if got := c.Now(); !got.Equal(target) {
		t.Errorf("Now() after Set = %v, want %v", got, target)
	}
}

func TestMockClockSleepAdvancesAndRecords(t *testing.T) {
	t.Parallel()

	base := time.Unix(1000, 0)
	c := NewMockClock(base)

	c.Sleep(10 * time.Millisecond)
	c.Sleep(20 * time.Millisecond)

	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 10*time.Millisecond || sleeps[1] != 20*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [10ms 20ms]", sleeps)
	}

	want := base.Add(30 * time.Millisecond)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after sleeps = %v, want %v", got, want)
	}
}
