package main

import (
	"errors"
	"strings"
	"testing"

	"joyrec/core"
	"joyrec/host/mcu"
)

func TestCheckRecording(t *testing.T) {
	if err := checkRecording([]byte{0x00, 0x01, 0x1F, 0x10}); err != nil {
		t.Errorf("Valid recording rejected: %v", err)
	}
	err := checkRecording([]byte{0x01, 0x20})
	if err == nil || !strings.Contains(err.Error(), "byte 1") {
		t.Errorf("Expected rejection of byte 1, got %v", err)
	}
}

func TestFormatStatus(t *testing.T) {
	text := formatStatus(&mcu.Status{
		Mode:     "playing",
		Index:    42,
		Capacity: 12800,
		Live:     core.BitUp,
		Out:      core.BitFire,
	})
	for _, want := range []string{"playing", "42 / 12800", core.BitUp.String(), core.BitFire.String()} {
		if !strings.Contains(text, want) {
			t.Errorf("Status missing %q:\n%s", want, text)
		}
	}
}

func TestModeAliases(t *testing.T) {
	for alias, mode := range modeAliases {
		if _, ok := modeIndex(mode); !ok {
			t.Errorf("Alias %q maps to unknown mode %q", alias, mode)
		}
	}
}

func modeIndex(name string) (int, bool) {
	for i, n := range core.ModeNames() {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func TestUsageErrors(t *testing.T) {
	m := mcu.NewMCU()
	for _, args := range [][]string{{"dump"}, {"load", "a", "b"}} {
		if err := runCommand(m, args); !errors.Is(err, errUsage) {
			t.Errorf("%v: expected usage error, got %v", args, err)
		}
	}
	if err := runCommand(m, []string{"frobnicate"}); err == nil {
		t.Error("Unknown command accepted")
	}
}
