//go:build rp2040 || rp2350

package pio

import (
	"device/rp"
	"machine"

	"joyrec/core"
)

// OutputSIO drives the injection lines through the SIO set and clear
// registers. Unlike OutputPIO the pins may be anywhere.
type OutputSIO struct {
	pins   [core.NumLines]core.GPIOPin
	invert bool
}

// NewOutputSIO configures the output pins, every line inactive
func NewOutputSIO(pm core.PinMap) *OutputSIO {
	o := &OutputSIO{pins: pm.Outputs, invert: pm.InvertOutputs}
	for _, pin := range o.pins {
		machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	o.Drive(0)
	return o
}

// Drive updates every line with one clear and one set write
func (o *OutputSIO) Drive(v core.InputVector) error {
	set, clr := lineMasks(o.pins, v, o.invert)
	rp.SIO.GPIO_OUT_CLR.Set(clr)
	rp.SIO.GPIO_OUT_SET.Set(set)
	return nil
}
