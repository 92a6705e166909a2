// Input recorder/player
// Samples the controller on a fixed cadence, records it into the buffer,
// replays it, and drives the injection lines.
package core

import (
	"context"
	"errors"
	"sync/atomic"
)

// Default timing, in timer ticks
const (
	DefaultTickPeriod   = TimerFreq / 100   // 100 Hz sampling
	DefaultDebounceHold = TimerFreq * 3 / 4 // 750 ms hold after a mode button press
)

var (
	ErrNotIdle = errors.New("recorder not idle")
	ErrBadMode = errors.New("invalid recorder mode")
)

// Options holds the recorder timing and capacity policy
type Options struct {
	TickPeriod   uint32 // Cadence delay at the top of each tick
	DebounceHold uint32 // Hold after a mode button press; sampling is frozen meanwhile
	Overflow     OverflowPolicy
}

// DefaultOptions returns the standard 100 Hz configuration
func DefaultOptions() Options {
	return Options{
		TickPeriod:   DefaultTickPeriod,
		DebounceHold: DefaultDebounceHold,
		Overflow:     OverflowStop,
	}
}

// Frame describes the outcome of one tick
type Frame struct {
	Tick  uint32
	Mode  Mode        // Mode after the tick
	Index int         // Cursor after the tick
	Live  InputVector // Live controller read
	Out   InputVector // Vector driven onto the injection lines
}

// Stats counts notable recorder activity
type Stats struct {
	Ticks       uint32
	ModeChanges uint32
	Overflows   uint32
	PinErrors   uint32
}

// modeButton tracks one debounced mode button
type modeButton struct {
	pin    GPIOPin
	target Mode
	armed  bool // Cleared after a press until the button is seen released
}

// Recorder is the input recorder/player state machine.
// All methods except RequestMode must be called from the loop's own
// thread of control.
type Recorder struct {
	gpio  GPIODriver
	pins  PinMap
	delay Delay
	opts  Options

	out       OutputDriver
	customOut bool

	mode   Mode
	buf    *Buffer
	record modeButton
	play   modeButton

	// Pending remote mode request, stored as mode+1 (0 = none)
	request uint32

	last  Frame
	stats Stats
}

// NewRecorder creates a recorder using the given capabilities
func NewRecorder(gpio GPIODriver, pins PinMap, delay Delay, opts Options) *Recorder {
	if opts.TickPeriod == 0 {
		opts.TickPeriod = DefaultTickPeriod
	}
	return &Recorder{
		gpio:  gpio,
		pins:  pins,
		delay: delay,
		opts:  opts,
		out: &pinOutputs{
			gpio:   gpio,
			pins:   pins.Outputs,
			invert: pins.InvertOutputs,
		},
		buf:    NewBuffer(opts.Overflow),
		record: modeButton{pin: pins.RecordButton, target: ModeRecording, armed: true},
		play:   modeButton{pin: pins.PlayButton, target: ModePlaying, armed: true},
	}
}

// SetOutputDriver replaces the per-pin injection driver.
// Call before Configure; the replacement owns the output pins.
func (r *Recorder) SetOutputDriver(d OutputDriver) {
	r.out = d
	r.customOut = true
}

// Configure sets up every pin the recorder uses and drives a safe state:
// LEDs off, injection lines inactive
func (r *Recorder) Configure() error {
	inputs := append(r.pins.Inputs[:], r.pins.RecordButton, r.pins.PlayButton)
	for _, pin := range inputs {
		if err := r.gpio.ConfigureInputPullUp(pin); err != nil {
			return err
		}
	}

	for _, pin := range []GPIOPin{r.pins.RecordLED, r.pins.PlayLED} {
		if err := r.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
		if err := r.gpio.SetPin(pin, true); err != nil {
			return err
		}
	}

	if !r.customOut {
		for _, pin := range r.pins.Outputs {
			if err := r.gpio.ConfigureOutput(pin); err != nil {
				return err
			}
		}
	}
	return r.out.Drive(0)
}

// Mode returns the current operating mode
func (r *Recorder) Mode() Mode {
	return r.mode
}

// Index returns the buffer cursor
func (r *Recorder) Index() int {
	return r.buf.Index()
}

// Capacity returns the buffer capacity
func (r *Recorder) Capacity() int {
	return r.buf.Capacity()
}

// Options returns the recorder options
func (r *Recorder) Options() Options {
	return r.opts
}

// LastFrame returns the outcome of the most recent tick
func (r *Recorder) LastFrame() Frame {
	return r.last
}

// Stats returns activity counters
func (r *Recorder) Stats() Stats {
	return r.stats
}

// RequestMode asks for a mode switch at the next tick. Unlike the buttons
// the request is absolute: asking for the current mode changes nothing.
// Safe to call from another goroutine.
func (r *Recorder) RequestMode(m Mode) error {
	if !m.Valid() {
		return ErrBadMode
	}
	atomic.StoreUint32(&r.request, uint32(m)+1)
	return nil
}

// Run steps the recorder until ctx is cancelled
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.Step()
	}
}

// Step executes one tick:
//  1. wait out the cadence delay
//  2. poll the record and play buttons
//  3. read the live inputs
//  4. record the live vector when recording
//  5. replace it with the stored vector when playing
//  6. drive the injection lines
func (r *Recorder) Step() Frame {
	r.delay.Delay(r.opts.TickPeriod)

	r.pollButton(&r.record)
	r.pollButton(&r.play)
	r.applyRequest()

	live := r.readInputs()
	out := live

	if r.mode == ModeRecording {
		r.setLED(r.pins.RecordLED, true)
		if !r.buf.Store(live) {
			r.overflow()
		}
	} else {
		r.setLED(r.pins.RecordLED, false)
	}

	if r.mode == ModePlaying {
		r.setLED(r.pins.PlayLED, true)
		v, more := r.buf.Load()
		out = v
		if !more {
			r.overflow()
		}
	} else {
		r.setLED(r.pins.PlayLED, false)
	}

	if err := r.out.Drive(out); err != nil {
		r.driveError(out)
	}

	r.stats.Ticks++
	r.last = Frame{
		Tick:  r.stats.Ticks,
		Mode:  r.mode,
		Index: r.buf.Index(),
		Live:  live,
		Out:   out,
	}
	return r.last
}

// pollButton handles one mode button. A press on an armed button holds for
// the debounce window, then toggles the mode. The button re-arms once it is
// seen released.
func (r *Recorder) pollButton(b *modeButton) {
	if !r.readActive(b.pin) {
		b.armed = true
		return
	}
	if !b.armed {
		return
	}

	b.armed = false
	RecordTiming(EvtDebounce, uint8(r.mode), GetTime(), uint32(b.pin), 0)
	r.delay.Delay(r.opts.DebounceHold)
	r.setMode(toggleMode(r.mode, b.target))
}

// applyRequest applies a pending remote mode request
func (r *Recorder) applyRequest() {
	req := atomic.SwapUint32(&r.request, 0)
	if req == 0 {
		return
	}
	m := Mode(req - 1)
	RecordTiming(EvtRemoteMode, uint8(r.mode), GetTime(), uint32(m), 0)
	if m != r.mode {
		r.setMode(m)
	}
}

// setMode switches mode. Entering recording or playing rewinds the cursor;
// leaving to idle keeps it.
func (r *Recorder) setMode(to Mode) {
	from := r.mode
	r.mode = to
	if to != ModeIdle {
		r.buf.Reset()
	}
	r.stats.ModeChanges++
	RecordTiming(EvtModeChange, uint8(to), GetTime(), uint32(from), uint32(to))
	DebugAsync("[REC] " + from.String() + " -> " + to.String())
}

// overflow handles the cursor running out under OverflowStop
func (r *Recorder) overflow() {
	r.stats.Overflows++
	RecordTiming(EvtOverflow, uint8(r.mode), GetTime(), uint32(r.buf.Index()), uint32(r.buf.Policy()))
	r.setMode(ModeIdle)
}

// readInputs samples the five live lines
func (r *Recorder) readInputs() InputVector {
	var v InputVector
	for i, pin := range r.pins.Inputs {
		v = v.With(Line(i), r.readActive(pin))
	}
	return v
}

// readActive reads an active-low input. A failed read counts as released.
func (r *Recorder) readActive(pin GPIOPin) bool {
	level, err := r.gpio.GetPin(pin)
	if err != nil {
		r.pinError(pin)
		return false
	}
	return !level
}

// setLED drives an active-low indicator
func (r *Recorder) setLED(pin GPIOPin, on bool) {
	if err := r.gpio.SetPin(pin, !on); err != nil {
		r.pinError(pin)
	}
}

func (r *Recorder) pinError(pin GPIOPin) {
	r.stats.PinErrors++
	RecordTiming(EvtPinError, uint8(r.mode), GetTime(), uint32(pin), 0)
}

// driveError records a failed output drive. The backend does not say which
// line failed, so the event carries the vector instead of a pin.
func (r *Recorder) driveError(v InputVector) {
	r.stats.PinErrors++
	RecordTiming(EvtDriveError, uint8(r.mode), GetTime(), uint32(v), 0)
}

// ReadRecording copies buffer contents starting at offset into dst
func (r *Recorder) ReadRecording(offset int, dst []byte) (int, error) {
	return r.buf.ReadAt(offset, dst)
}

// WriteRecording replaces buffer contents starting at offset.
// Only allowed while idle.
func (r *Recorder) WriteRecording(offset int, src []byte) error {
	if r.mode != ModeIdle {
		return ErrNotIdle
	}
	return r.buf.WriteAt(offset, src)
}

// ClearRecording zeroes the buffer. Only allowed while idle.
func (r *Recorder) ClearRecording() error {
	if r.mode != ModeIdle {
		return ErrNotIdle
	}
	r.buf.Clear()
	return nil
}
