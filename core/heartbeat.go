// Heartbeat LED support
// Toggles a status LED from a periodic compare event as a liveness signal.
// It shares no state with the recorder.
package core

// HeartbeatInterval is the default toggle period (one second)
const HeartbeatInterval = TimerFreq

// Heartbeat owns the status LED and its compare target.
// The 64-bit compare value is kept as two 32-bit halves, the way the
// hardware compare register is written.
type Heartbeat struct {
	gpio     GPIODriver
	pin      GPIOPin
	interval uint64

	compareHi uint32
	compareLo uint32

	level bool   // Current pin level; LED is active-low
	fired uint32 // Number of firings since Arm
	timer Timer
}

// NewHeartbeat creates a heartbeat on pin toggling every interval ticks
func NewHeartbeat(gpio GPIODriver, pin GPIOPin, interval uint32) *Heartbeat {
	if interval == 0 {
		interval = HeartbeatInterval
	}
	return &Heartbeat{
		gpio:     gpio,
		pin:      pin,
		interval: uint64(interval),
		level:    true,
	}
}

// Configure sets the LED pin up as an output, LED off
func (h *Heartbeat) Configure() error {
	if err := h.gpio.ConfigureOutput(h.pin); err != nil {
		return err
	}
	h.level = true
	return h.gpio.SetPin(h.pin, h.level)
}

// Arm sets the first compare target one interval after now
func (h *Heartbeat) Arm(now uint64) {
	h.setCompare(now + h.interval)
	h.fired = 0
}

// Compare returns the 64-bit compare target
func (h *Heartbeat) Compare() uint64 {
	return uint64(h.compareHi)<<32 | uint64(h.compareLo)
}

func (h *Heartbeat) setCompare(next uint64) {
	h.compareHi = uint32(next >> 32)
	h.compareLo = uint32(next)
}

// Fire toggles the LED and advances the compare target by one interval
func (h *Heartbeat) Fire() {
	h.level = !h.level
	if err := h.gpio.SetPin(h.pin, h.level); err != nil {
		RecordTiming(EvtPinError, 0, GetTime(), uint32(h.pin), 0)
	}

	h.setCompare(h.Compare() + h.interval)
	h.fired++
	RecordTiming(EvtHeartbeat, 0, GetTime(), h.fired, h.compareLo)
}

// Fired returns the number of firings since the last Arm
func (h *Heartbeat) Fired() uint32 {
	return h.fired
}

// Lit reports whether the LED is currently on
func (h *Heartbeat) Lit() bool {
	return !h.level
}

// Attach arms the heartbeat from the current uptime and schedules it on
// the core timer list. The low half of the compare target is the wake time.
func (h *Heartbeat) Attach() {
	h.Arm(GetUptime())
	h.timer.Next = nil
	h.timer.WakeTime = h.compareLo
	h.timer.Handler = h.event
	ScheduleTimer(&h.timer)
}

// Detach removes the heartbeat from the timer list
func (h *Heartbeat) Detach() {
	CancelTimer(&h.timer)
}

// event is the scheduler callback
func (h *Heartbeat) event(t *Timer) uint8 {
	h.Fire()
	t.WakeTime = h.compareLo
	return SF_RESCHEDULE
}
