package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin level
	GetPin(pin GPIOPin) (bool, error)
}

// OutputDriver drives the five injection lines from a single vector.
// The default implementation writes each line through a GPIODriver;
// targets may substitute one that updates all lines at once.
type OutputDriver interface {
	Drive(v InputVector) error
}

// pinOutputs drives the injection lines one pin at a time
type pinOutputs struct {
	gpio   GPIODriver
	pins   [NumLines]GPIOPin
	invert bool
}

// Drive sets every line whose bit is 1 and clears the others
func (p *pinOutputs) Drive(v InputVector) error {
	var firstErr error
	for i, pin := range p.pins {
		level := v.Active(Line(i))
		if p.invert {
			level = !level
		}
		if err := p.gpio.SetPin(pin, level); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
