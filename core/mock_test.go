package core

import "errors"

var errMockPin = errors.New("mock pin failure")

// mockGPIO keeps pin levels in memory. Configured inputs idle high
// (pull-up); failing pins return errMockPin.
type mockGPIO struct {
	levels  map[GPIOPin]bool
	outputs map[GPIOPin]bool
	inputs  map[GPIOPin]bool
	writes  map[GPIOPin]int
	failing map[GPIOPin]bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		levels:  make(map[GPIOPin]bool),
		outputs: make(map[GPIOPin]bool),
		inputs:  make(map[GPIOPin]bool),
		writes:  make(map[GPIOPin]int),
		failing: make(map[GPIOPin]bool),
	}
}

func (m *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	if m.failing[pin] {
		return errMockPin
	}
	m.outputs[pin] = true
	return nil
}

func (m *mockGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	if m.failing[pin] {
		return errMockPin
	}
	m.inputs[pin] = true
	m.levels[pin] = true
	return nil
}

func (m *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	if m.failing[pin] {
		return errMockPin
	}
	m.levels[pin] = value
	m.writes[pin]++
	return nil
}

func (m *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	if m.failing[pin] {
		return false, errMockPin
	}
	return m.levels[pin], nil
}

// press drives an active-low input
func (m *mockGPIO) press(pin GPIOPin, down bool) {
	m.levels[pin] = !down
}

// setLive presents v on the five controller inputs
func (m *mockGPIO) setLive(pins PinMap, v InputVector) {
	for i, pin := range pins.Inputs {
		m.press(pin, v.Active(Line(i)))
	}
}

// driven reads back the vector on the injection outputs
func (m *mockGPIO) driven(pins PinMap) InputVector {
	var v InputVector
	for i, pin := range pins.Outputs {
		v = v.With(Line(i), m.levels[pin] != pins.InvertOutputs)
	}
	return v
}

// fakeDelay records every requested delay and returns immediately
type fakeDelay struct {
	calls []uint32
}

func (d *fakeDelay) Delay(ticks uint32) {
	d.calls = append(d.calls, ticks)
}

// count returns how many delays of exactly ticks were requested
func (d *fakeDelay) count(ticks uint32) int {
	n := 0
	for _, c := range d.calls {
		if c == ticks {
			n++
		}
	}
	return n
}

// captureOutput records every vector handed to an OutputDriver
type captureOutput struct {
	driven []InputVector
	err    error
}

func (c *captureOutput) Drive(v InputVector) error {
	c.driven = append(c.driven, v)
	return c.err
}

// testOptions uses distinct tick and hold values so delays can be told apart
func testOptions(policy OverflowPolicy) Options {
	return Options{
		TickPeriod:   DefaultTickPeriod,
		DebounceHold: DefaultDebounceHold,
		Overflow:     policy,
	}
}

func newTestRecorder(policy OverflowPolicy) (*Recorder, *mockGPIO, *fakeDelay) {
	gpio := newMockGPIO()
	delay := &fakeDelay{}
	r := NewRecorder(gpio, DefaultPinMap(), delay, testOptions(policy))
	if err := r.Configure(); err != nil {
		panic(err)
	}
	return r, gpio, delay
}
