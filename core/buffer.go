package core

import "errors"

// BufferCapacity is the number of one-byte slots in the recording buffer.
// At the default 100 Hz cadence this holds a little over two minutes.
const BufferCapacity = 12800

var (
	ErrOutOfRange = errors.New("offset out of range")
)

// OverflowPolicy selects what happens when the cursor reaches capacity
type OverflowPolicy uint8

const (
	// OverflowStop ends the session after the last slot
	OverflowStop OverflowPolicy = iota
	// OverflowWrap restarts the cursor at slot 0
	OverflowWrap
	// OverflowSaturate pins the cursor on the last slot
	OverflowSaturate
)

var overflowNames = []string{"stop", "wrap", "saturate"}

// String returns the policy name
func (p OverflowPolicy) String() string {
	if int(p) < len(overflowNames) {
		return overflowNames[p]
	}
	return "policy" + itoa(int(p))
}

// ParseOverflowPolicy converts a policy name to its value
func ParseOverflowPolicy(name string) (OverflowPolicy, bool) {
	for i, n := range overflowNames {
		if n == name {
			return OverflowPolicy(i), true
		}
	}
	return OverflowStop, false
}

// Buffer is the fixed recording arena with a bounds-checked cursor.
// The cursor is shared by recording and playback and only ever points
// inside the arena, except after an OverflowStop session has run out,
// when it rests at capacity until the next Reset.
type Buffer struct {
	data   [BufferCapacity]byte
	cursor int
	policy OverflowPolicy
}

// NewBuffer creates an empty buffer using the given overflow policy
func NewBuffer(policy OverflowPolicy) *Buffer {
	return &Buffer{policy: policy}
}

// Capacity returns the number of slots
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Index returns the current cursor position
func (b *Buffer) Index() int {
	return b.cursor
}

// Policy returns the overflow policy
func (b *Buffer) Policy() OverflowPolicy {
	return b.policy
}

// Exhausted reports whether an OverflowStop session has used every slot
func (b *Buffer) Exhausted() bool {
	return b.cursor >= len(b.data)
}

// Reset rewinds the cursor to slot 0. Contents are kept.
func (b *Buffer) Reset() {
	b.cursor = 0
}

// Store writes v at the cursor and advances it.
// It returns false once no further slot is available under OverflowStop.
func (b *Buffer) Store(v InputVector) bool {
	if b.Exhausted() {
		return false
	}
	b.data[b.cursor] = v.Byte()
	return b.advance()
}

// Load reads the vector at the cursor and advances it.
// more is false once no further slot is available under OverflowStop;
// the returned vector is still valid unless the buffer was already exhausted.
func (b *Buffer) Load() (v InputVector, more bool) {
	if b.Exhausted() {
		return 0, false
	}
	v = UnpackInput(b.data[b.cursor])
	return v, b.advance()
}

// advance moves the cursor forward applying the overflow policy
func (b *Buffer) advance() bool {
	b.cursor++
	if b.cursor < len(b.data) {
		return true
	}

	switch b.policy {
	case OverflowWrap:
		b.cursor = 0
		return true
	case OverflowSaturate:
		b.cursor = len(b.data) - 1
		return true
	default:
		return false
	}
}

// ReadAt copies stored bytes starting at offset into dst.
// It returns the number of bytes copied.
func (b *Buffer) ReadAt(offset int, dst []byte) (int, error) {
	if offset < 0 || offset > len(b.data) {
		return 0, ErrOutOfRange
	}
	return copy(dst, b.data[offset:]), nil
}

// WriteAt replaces stored bytes starting at offset.
// Values are masked to the five line bits.
func (b *Buffer) WriteAt(offset int, src []byte) error {
	if offset < 0 || offset > len(b.data) || len(src) > len(b.data)-offset {
		return ErrOutOfRange
	}
	for i, v := range src {
		b.data[offset+i] = UnpackInput(v).Byte()
	}
	return nil
}

// Clear zeroes every slot and rewinds the cursor
func (b *Buffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.cursor = 0
}
