package core

import "testing"

func TestToggleMode(t *testing.T) {
	testCases := []struct {
		current, target, expected Mode
	}{
		{ModeIdle, ModeRecording, ModeRecording},
		{ModeIdle, ModePlaying, ModePlaying},
		{ModeRecording, ModeRecording, ModeIdle},
		{ModeRecording, ModePlaying, ModePlaying},
		{ModePlaying, ModePlaying, ModeIdle},
		{ModePlaying, ModeRecording, ModeRecording},
	}

	for _, tc := range testCases {
		if got := toggleMode(tc.current, tc.target); got != tc.expected {
			t.Errorf("toggleMode(%v, %v) = %v, expected %v", tc.current, tc.target, got, tc.expected)
		}
	}
}

func TestModeNames(t *testing.T) {
	names := ModeNames()
	if len(names) != 3 || names[ModeIdle] != "idle" || names[ModePlaying] != "playing" {
		t.Errorf("Unexpected names %v", names)
	}

	// Callers get their own copy
	names[0] = "x"
	if ModeIdle.String() != "idle" {
		t.Error("ModeNames exposed internal state")
	}

	if Mode(3).Valid() || Mode(3).String() != "mode3" {
		t.Errorf("Mode(3) should be invalid, got %q", Mode(3))
	}
}
