//go:build linux && !tinygo

package main

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"joyrec/core"
)

var errPinNotConfigured = errors.New("gpio pin not configured")

// PeriphGPIODriver implements core.GPIODriver on periph.io pins.
// core.GPIOPin n is the pin registered as "GPIOn" (BCM numbering on a
// Raspberry Pi).
type PeriphGPIODriver struct {
	lookup func(name string) gpio.PinIO
	pins   map[core.GPIOPin]gpio.PinIO
}

// NewPeriphGPIODriver uses the pins registered by host.Init
func NewPeriphGPIODriver() *PeriphGPIODriver {
	return newPeriphGPIODriver(gpioreg.ByName)
}

func newPeriphGPIODriver(lookup func(name string) gpio.PinIO) *PeriphGPIODriver {
	return &PeriphGPIODriver{
		lookup: lookup,
		pins:   make(map[core.GPIOPin]gpio.PinIO),
	}
}

func (d *PeriphGPIODriver) resolve(pin core.GPIOPin) (gpio.PinIO, error) {
	if p, ok := d.pins[pin]; ok {
		return p, nil
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := d.lookup(name)
	if p == nil {
		return nil, fmt.Errorf("no pin %s", name)
	}
	d.pins[pin] = p
	return p, nil
}

// ConfigureOutput configures a pin as a digital output, driven high
func (d *PeriphGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	p, err := d.resolve(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.High); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	return nil
}

// ConfigureInputPullUp configures a pin as an input with pull-up resistor
func (d *PeriphGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	p, err := d.resolve(pin)
	if err != nil {
		return err
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *PeriphGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := d.pins[pin]
	if !ok {
		return errPinNotConfigured
	}
	return p.Out(gpio.Level(value))
}

// GetPin reads the current pin level
func (d *PeriphGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	p, ok := d.pins[pin]
	if !ok {
		return false, errPinNotConfigured
	}
	return p.Read() == gpio.High, nil
}
