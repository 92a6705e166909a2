package core

import "testing"

func TestPackUnpackInput(t *testing.T) {
	testCases := []struct {
		up, down, left, right, fire bool
		expected                    InputVector
		str                         string
	}{
		{false, false, false, false, false, 0x00, "-----"},
		{true, false, false, false, false, 0x01, "U----"},
		{false, true, false, false, false, 0x02, "-D---"},
		{false, false, false, false, true, 0x10, "----F"},
		{true, false, true, false, true, 0x15, "U-L-F"},
		{true, true, true, true, true, 0x1F, "UDLRF"},
	}

	for _, tc := range testCases {
		v := PackInput(tc.up, tc.down, tc.left, tc.right, tc.fire)
		if v != tc.expected {
			t.Errorf("PackInput = %#x, expected %#x", uint8(v), uint8(tc.expected))
		}
		if v.String() != tc.str {
			t.Errorf("String() = %q, expected %q", v.String(), tc.str)
		}
		if UnpackInput(v.Byte()) != v {
			t.Errorf("UnpackInput(%#x) did not round trip", v.Byte())
		}
	}
}

func TestUnpackInputMasksHighBits(t *testing.T) {
	if v := UnpackInput(0xE1); v != BitUp {
		t.Errorf("Expected only up, got %v", v)
	}
}

func TestInputVectorWith(t *testing.T) {
	var v InputVector
	v = v.With(LineRight, true).With(LineFire, true)
	if !v.Active(LineRight) || !v.Active(LineFire) || v.Active(LineUp) {
		t.Errorf("Unexpected vector %v", v)
	}
	v = v.With(LineRight, false)
	if v != BitFire {
		t.Errorf("Expected fire only, got %v", v)
	}
}

func TestLineNames(t *testing.T) {
	if LineUp.String() != "up" || LineFire.String() != "fire" {
		t.Errorf("Unexpected names %q %q", LineUp, LineFire)
	}
	if Line(9).String() != "line9" {
		t.Errorf("Unexpected out-of-range name %q", Line(9))
	}
}
