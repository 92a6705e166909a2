package core

// PinMap assigns hardware pins to the recorder's lines, buttons and LEDs.
// Inputs, buttons and LEDs are active-low. Injection outputs are set when
// their line is active unless InvertOutputs is true.
type PinMap struct {
	Inputs  [NumLines]GPIOPin // up, down, left, right, fire
	Outputs [NumLines]GPIOPin // injection lines, same order as Inputs

	RecordButton GPIOPin
	PlayButton   GPIOPin

	RecordLED    GPIOPin
	PlayLED      GPIOPin
	HeartbeatLED GPIOPin

	InvertOutputs bool
}

// DefaultPinMap returns the reference wiring for the RP2040 board.
// Outputs sit on consecutive pins so a PIO program can drive them together.
func DefaultPinMap() PinMap {
	return PinMap{
		Inputs:       [NumLines]GPIOPin{2, 3, 4, 5, 6},
		Outputs:      [NumLines]GPIOPin{10, 11, 12, 13, 14},
		RecordButton: 7,
		PlayButton:   8,
		RecordLED:    18,
		PlayLED:      19,
		HeartbeatLED: 20,
	}
}

// OutputsConsecutive reports whether the output pins form one ascending run
// and returns the first pin of the run
func (p PinMap) OutputsConsecutive() (GPIOPin, bool) {
	base := p.Outputs[0]
	for i, pin := range p.Outputs {
		if pin != base+GPIOPin(i) {
			return 0, false
		}
	}
	return base, true
}
