//go:build !tinygo

package core

import "time"

// HostClock stands in for the MCU microsecond counter on hosted builds
type HostClock struct {
	start time.Time
	now   func() time.Time
}

// NewHostClock starts counting from now
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now(), now: time.Now}
}

// Ticks returns timer ticks since start; wraps like the hardware counter
func (c *HostClock) Ticks() uint32 {
	return TimerFromDuration(c.now().Sub(c.start))
}

// Poll refreshes the core time and runs due scheduler timers.
// Use it as MonotonicDelay.Poll.
func (c *HostClock) Poll() {
	SetTime(c.Ticks())
	ProcessTimers()
}
