package main

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"joyrec/core"
)

// keyboardGPIO backs the recorder's pins with the terminal. Terminals
// report key presses but not releases, so a press holds its pin low for
// hold after the last repeat.
type keyboardGPIO struct {
	mu   sync.Mutex
	now  func() time.Time
	hold time.Duration

	inputs  map[core.GPIOPin]bool
	outputs map[core.GPIOPin]bool
	levels  map[core.GPIOPin]bool
	held    map[core.GPIOPin]time.Time // release deadline of a pressed input
}

func newKeyboardGPIO(hold time.Duration) *keyboardGPIO {
	return &keyboardGPIO{
		now:     time.Now,
		hold:    hold,
		inputs:  make(map[core.GPIOPin]bool),
		outputs: make(map[core.GPIOPin]bool),
		levels:  make(map[core.GPIOPin]bool),
		held:    make(map[core.GPIOPin]time.Time),
	}
}

func (k *keyboardGPIO) ConfigureOutput(pin core.GPIOPin) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.outputs[pin] = true
	return nil
}

func (k *keyboardGPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.inputs[pin] = true
	return nil
}

func (k *keyboardGPIO) SetPin(pin core.GPIOPin, value bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.levels[pin] = value
	return nil
}

// GetPin reads an input low while its key is held; pull-ups read high
func (k *keyboardGPIO) GetPin(pin core.GPIOPin) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.inputs[pin] {
		return !k.now().Before(k.held[pin]), nil
	}
	return k.levels[pin], nil
}

// press holds an input low
func (k *keyboardGPIO) press(pin core.GPIOPin) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.held[pin] = k.now().Add(k.hold)
}

// level returns the last level written to an output
func (k *keyboardGPIO) level(pin core.GPIOPin) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.levels[pin]
}

// keyAction is what a key press does
type keyAction int

const (
	actionNone keyAction = iota
	actionPin
	actionQuit
)

// keyMap resolves key events against the pin map
type keyMap struct {
	pins core.PinMap
}

// resolve maps arrows and WASD to the directions, space and x to fire,
// r and p to the mode buttons, and q, Esc or Ctrl-C to quit
func (m keyMap) resolve(ev *tcell.EventKey) (keyAction, core.GPIOPin) {
	switch ev.Key() {
	case tcell.KeyUp:
		return actionPin, m.pins.Inputs[core.LineUp]
	case tcell.KeyDown:
		return actionPin, m.pins.Inputs[core.LineDown]
	case tcell.KeyLeft:
		return actionPin, m.pins.Inputs[core.LineLeft]
	case tcell.KeyRight:
		return actionPin, m.pins.Inputs[core.LineRight]
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actionQuit, 0
	case tcell.KeyRune:
	default:
		return actionNone, 0
	}

	switch ev.Rune() {
	case 'w', 'W':
		return actionPin, m.pins.Inputs[core.LineUp]
	case 's', 'S':
		return actionPin, m.pins.Inputs[core.LineDown]
	case 'a', 'A':
		return actionPin, m.pins.Inputs[core.LineLeft]
	case 'd', 'D':
		return actionPin, m.pins.Inputs[core.LineRight]
	case ' ', 'x', 'X':
		return actionPin, m.pins.Inputs[core.LineFire]
	case 'r', 'R':
		return actionPin, m.pins.RecordButton
	case 'p', 'P':
		return actionPin, m.pins.PlayButton
	case 'q', 'Q':
		return actionQuit, 0
	}
	return actionNone, 0
}
