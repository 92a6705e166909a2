//go:build rp2040 || rp2350

package pio

import (
	"errors"
	"machine"

	"joyrec/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

var ErrNoStateMachine = errors.New("no free PIO state machine")

// buildOutputProgram latches one FIFO word onto five consecutive pins:
//
//	.wrap_target
//	pull block
//	out pins, 5
//	.wrap
func buildOutputProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestPins, 5).Encode(), // 1: out pins, 5
	}
}

// OutputPIO drives the injection lines from a PIO state machine.
// The output pins must be consecutive.
type OutputPIO struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	base   machine.Pin
	invert bool
	pioNum uint8
	smNum  uint8
	offset uint8
}

// NewOutputPIO claims a state machine for the pins in pm
func NewOutputPIO(pm core.PinMap) (*OutputPIO, error) {
	base, ok := pm.OutputsConsecutive()
	if !ok {
		return nil, errors.New("PIO outputs need consecutive pins")
	}

	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, ErrNoStateMachine
	}

	pioHW := rp2pio.PIO0
	if pioNum == 1 {
		pioHW = rp2pio.PIO1
	}

	return &OutputPIO{
		pio:    pioHW,
		sm:     pioHW.StateMachine(smNum),
		base:   machine.Pin(base),
		invert: pm.InvertOutputs,
		pioNum: pioNum,
		smNum:  smNum,
	}, nil
}

// Init loads the program and starts the state machine with every line
// inactive
func (o *OutputPIO) Init() error {
	o.sm.TryClaim()

	program := buildOutputProgram()
	offset, err := o.pio.AddProgram(program, -1)
	if err != nil {
		releasePIO(o.pioNum, o.smNum)
		return err
	}
	o.offset = offset

	for i := machine.Pin(0); i < core.NumLines; i++ {
		(o.base + i).Configure(machine.PinConfig{Mode: o.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(o.base, core.NumLines)
	// Shift right so bit 0 (up) lands on the base pin
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)

	o.sm.Init(offset, cfg)

	// Pin directions and levels are only settable after Init
	o.sm.SetPindirsConsecutive(o.base, core.NumLines, true)
	o.sm.SetEnabled(true)

	o.put(pioWord(0, o.invert))
	return nil
}

// Drive latches v onto the five lines at once
func (o *OutputPIO) Drive(v core.InputVector) error {
	o.put(pioWord(v, o.invert))
	return nil
}

func (o *OutputPIO) put(w uint32) {
	// The program drains a word per pull; the FIFO is never full for long
	for o.sm.IsTxFIFOFull() {
	}
	o.sm.TxPut(w)
}

// Stop halts the state machine and frees it
func (o *OutputPIO) Stop() {
	o.sm.SetEnabled(false)
	o.sm.ClearFIFOs()
	releasePIO(o.pioNum, o.smNum)
}
