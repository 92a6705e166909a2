// Package pio drives the five injection lines from RP2040 hardware in one
// operation, either through a PIO state machine or the SIO set/clear
// registers, so a changing vector never shows a half-updated state.
package pio

import "joyrec/core"

// pioWord is the FIFO word for v: bit n drives output pin base+n
func pioWord(v core.InputVector, invert bool) uint32 {
	w := uint32(v.Byte())
	if invert {
		w ^= 0x1F
	}
	return w
}

// lineMasks splits v into the SIO set and clear masks for pins
func lineMasks(pins [core.NumLines]core.GPIOPin, v core.InputVector, invert bool) (set, clr uint32) {
	for i, pin := range pins {
		mask := uint32(1) << pin
		if v.Active(core.Line(i)) != invert {
			set |= mask
		} else {
			clr |= mask
		}
	}
	return set, clr
}

var (
	// PIO allocation tracking
	// RP2040/RP2350 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// allocatePIO allocates a PIO state machine
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	for i := 0; i < 8; i++ { // 2 PIO × 4 SM = 8 total
		pioNum := nextPIONum
		smNum := nextSMNum

		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}
	return 0, 0, false
}

// releasePIO returns a state machine to the pool
func releasePIO(pioNum, smNum uint8) {
	pioAllocations[pioNum][smNum] = false
}

// ResetPIOAllocations resets all PIO allocations (for testing)
func ResetPIOAllocations() {
	pioAllocations = [2][4]bool{}
	nextPIONum = 0
	nextSMNum = 0
}
