package core

// Line identifies one of the five direction/fire lines
type Line uint8

// Controller lines in bit order
const (
	LineUp Line = iota
	LineDown
	LineLeft
	LineRight
	LineFire

	NumLines = 5
)

var lineNames = [NumLines]string{"up", "down", "left", "right", "fire"}

// String returns the line name
func (l Line) String() string {
	if int(l) < NumLines {
		return lineNames[l]
	}
	return "line" + itoa(int(l))
}

// InputVector is the packed state of the five lines at one sampling instant.
// Bit n is set when Line(n) is active (pressed).
type InputVector uint8

// Line bit masks
const (
	BitUp    InputVector = 1 << LineUp
	BitDown  InputVector = 1 << LineDown
	BitLeft  InputVector = 1 << LineLeft
	BitRight InputVector = 1 << LineRight
	BitFire  InputVector = 1 << LineFire

	vectorMask InputVector = 0x1F
)

// PackInput builds a vector from individual line states
func PackInput(up, down, left, right, fire bool) InputVector {
	var v InputVector
	if up {
		v |= BitUp
	}
	if down {
		v |= BitDown
	}
	if left {
		v |= BitLeft
	}
	if right {
		v |= BitRight
	}
	if fire {
		v |= BitFire
	}
	return v
}

// UnpackInput converts a stored byte back into a vector.
// Bits above the five lines are discarded.
func UnpackInput(b byte) InputVector {
	return InputVector(b) & vectorMask
}

// Byte returns the one-byte storage form of the vector
func (v InputVector) Byte() byte {
	return byte(v & vectorMask)
}

// Active reports whether the given line is active
func (v InputVector) Active(l Line) bool {
	return v&(1<<l) != 0
}

// With returns a copy of v with line l set to active
func (v InputVector) With(l Line, active bool) InputVector {
	if active {
		return v | 1<<l
	}
	return v &^ (1 << l)
}

// String renders the vector as five characters, e.g. "U---F"
func (v InputVector) String() string {
	const marks = "UDLRF"
	buf := [NumLines]byte{}
	for i := 0; i < NumLines; i++ {
		if v.Active(Line(i)) {
			buf[i] = marks[i]
		} else {
			buf[i] = '-'
		}
	}
	return string(buf[:])
}
