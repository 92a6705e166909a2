package core

import (
	"testing"
	"time"
)

func TestBusyDelayPolls(t *testing.T) {
	var clock uint32 = 0xFFFFFFF0 // spans the counter wrap
	polls := 0
	d := &BusyDelay{
		Now: func() uint32 {
			clock += 4
			return clock
		},
		Poll: func() { polls++ },
	}

	start := clock
	d.Delay(100)
	if elapsed := clock - start; elapsed < 100 {
		t.Errorf("Returned after %d ticks", elapsed)
	}
	if polls == 0 {
		t.Error("Poll never ran")
	}
	t.Logf("%d polls", polls)
}

func TestBusyDelayZero(t *testing.T) {
	polls := 0
	d := &BusyDelay{Now: func() uint32 { return 5 }, Poll: func() { polls++ }}
	d.Delay(0)
	if polls != 0 {
		t.Errorf("Zero delay polled %d times", polls)
	}
}

// fakeClock advances only when slept on or worked
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func newFakeMonotonic() (*MonotonicDelay, *fakeClock) {
	c := &fakeClock{now: time.Unix(1000, 0)}
	return &MonotonicDelay{now: c.Now, sleep: c.Sleep}, c
}

func TestMonotonicDelayNoDrift(t *testing.T) {
	m, c := newFakeMonotonic()
	start := c.now

	for i := 0; i < 10; i++ {
		m.Delay(DefaultTickPeriod)
		c.now = c.now.Add(3 * time.Millisecond) // work inside the tick
	}
	m.Delay(0)

	// Work time is absorbed by shorter sleeps
	if elapsed := c.now.Sub(start); elapsed != 103*time.Millisecond {
		t.Errorf("Expected 103ms including the last tick's work, got %v", elapsed)
	}
	if c.slept[1] != 7*time.Millisecond {
		t.Errorf("Expected 7ms sleep after 3ms of work, got %v", c.slept[1])
	}
}

func TestMonotonicDelayOverrun(t *testing.T) {
	m, c := newFakeMonotonic()

	m.Delay(DefaultTickPeriod)
	c.now = c.now.Add(50 * time.Millisecond) // long stall

	m.Delay(DefaultTickPeriod)
	if len(c.slept) != 1 {
		t.Errorf("Overrun tick should not sleep, slept %v", c.slept)
	}

	// Cadence restarts from the stall instead of bursting
	m.Delay(DefaultTickPeriod)
	if got := c.slept[len(c.slept)-1]; got != 10*time.Millisecond {
		t.Errorf("Expected a full tick after overrun, got %v", got)
	}
}

func TestMonotonicDelayRestart(t *testing.T) {
	m, c := newFakeMonotonic()
	m.Delay(DefaultTickPeriod)

	c.now = c.now.Add(time.Second)
	m.Restart()
	m.Delay(DefaultTickPeriod)

	if got := c.slept[len(c.slept)-1]; got != 10*time.Millisecond {
		t.Errorf("Expected 10ms after restart, got %v", got)
	}
}

func TestTimerConversions(t *testing.T) {
	if TimerFromDuration(750*time.Millisecond) != DefaultDebounceHold {
		t.Errorf("750ms = %d ticks", TimerFromDuration(750*time.Millisecond))
	}
	if TicksToDuration(DefaultTickPeriod) != 10*time.Millisecond {
		t.Errorf("Tick period = %v", TicksToDuration(DefaultTickPeriod))
	}
	if TimerToUS(TimerFromUS(1234)) != 1234 {
		t.Error("US conversion does not round trip")
	}
}

func TestMonotonicDelayPollSlices(t *testing.T) {
	m, c := newFakeMonotonic()
	polls := 0
	m.Poll = func() { polls++ }
	m.Slice = 4 * time.Millisecond

	m.Delay(DefaultTickPeriod)

	want := []time.Duration{4 * time.Millisecond, 4 * time.Millisecond, 2 * time.Millisecond}
	if len(c.slept) != len(want) {
		t.Fatalf("Expected slices %v, got %v", want, c.slept)
	}
	for i := range want {
		if c.slept[i] != want[i] {
			t.Errorf("Slice %d: expected %v, got %v", i, want[i], c.slept[i])
		}
	}
	if polls != 3 {
		t.Errorf("Expected a poll after each slice, got %d", polls)
	}
}
