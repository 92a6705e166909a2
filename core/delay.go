package core

import "time"

// Delay blocks the caller for a number of timer ticks.
// It is the only suspension point of the recorder loop.
type Delay interface {
	Delay(ticks uint32)
}

// BusyDelay spins on a tick source until the requested time has passed.
// Poll runs on every spin; MCU targets use it to refresh the system time,
// service due scheduler timers and drain the host link.
type BusyDelay struct {
	Now  func() uint32
	Poll func()
}

// Delay spins for ticks timer ticks
func (d *BusyDelay) Delay(ticks uint32) {
	now := d.Now
	if now == nil {
		now = GetTime
	}
	start := now()
	for now()-start < ticks {
		if d.Poll != nil {
			d.Poll()
		}
	}
}

// MonotonicDelay keeps a fixed cadence on an OS-hosted target.
// Each call advances a deadline by the requested ticks and sleeps until it,
// so time spent working between calls does not accumulate as drift.
// A caller that overruns a deadline restarts the cadence from now rather
// than bursting to catch up.
type MonotonicDelay struct {
	// Poll, when set, runs after every sleep of at most Slice. Hosted
	// targets use it to service the core timer list from the loop's
	// goroutine.
	Poll  func()
	Slice time.Duration

	now      func() time.Time
	sleep    func(time.Duration)
	deadline time.Time
}

// NewMonotonicDelay creates a delay driven by the monotonic wall clock
func NewMonotonicDelay() *MonotonicDelay {
	return &MonotonicDelay{
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Delay sleeps until the next deadline
func (m *MonotonicDelay) Delay(ticks uint32) {
	now := m.now()
	if m.deadline.IsZero() {
		m.deadline = now
	}
	m.deadline = m.deadline.Add(TicksToDuration(ticks))
	if m.deadline.Before(now) {
		m.deadline = now
	}

	for {
		wait := m.deadline.Sub(m.now())
		if wait <= 0 {
			return
		}
		if m.Poll != nil && m.Slice > 0 && wait > m.Slice {
			wait = m.Slice
		}
		m.sleep(wait)
		if m.Poll != nil {
			m.Poll()
		}
	}
}

// Restart forgets the current deadline
func (m *MonotonicDelay) Restart() {
	m.deadline = time.Time{}
}
