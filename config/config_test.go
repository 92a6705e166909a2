package config

import (
	"errors"
	"testing"

	"joyrec/core"
)

func TestDefaultConfigMatchesPinMap(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	pins, err := cfg.PinMap()
	if err != nil {
		t.Fatalf("PinMap: %v", err)
	}
	if pins != core.DefaultPinMap() {
		t.Errorf("Default config pins %+v differ from core.DefaultPinMap", pins)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts != core.DefaultOptions() {
		t.Errorf("Default options %+v differ from core.DefaultOptions", opts)
	}
	if cfg.HeartbeatInterval() != core.HeartbeatInterval {
		t.Errorf("Heartbeat interval %d", cfg.HeartbeatInterval())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"overflow": "wrap", "tick_hz": 50}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.RecordButton != "gpio7" || cfg.Inputs.Fire != "gpio6" {
		t.Errorf("Defaults not applied: %+v", cfg)
	}
	opts, _ := cfg.Options()
	if opts.Overflow != core.OverflowWrap || opts.TickPeriod != 20000 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.DebounceHold != core.DefaultDebounceHold {
		t.Errorf("Debounce default not applied: %d", opts.DebounceHold)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{
		"inputs": {"up": "GPIO17", "down": "27", "left": "gpio22", "right": "gpio23", "fire": "gpio24"},
		"outputs": {"up": "gpio5", "down": "gpio6", "left": "gpio12", "right": "gpio13", "fire": "gpio16"},
		"record_button": "gpio25",
		"play_button": "gpio26",
		"record_led": "gpio9",
		"play_led": "gpio10",
		"heartbeat_led": "gpio11",
		"invert_outputs": true,
		"debounce_ms": 0
	}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	pins, _ := cfg.PinMap()
	if pins.Inputs[core.LineUp] != 17 || pins.Inputs[core.LineDown] != 27 || !pins.InvertOutputs {
		t.Errorf("Unexpected pins %+v", pins)
	}
	opts, _ := cfg.Options()
	if opts.DebounceHold != 0 {
		t.Errorf("Explicit zero debounce must be kept, got %d", opts.DebounceHold)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	testCases := []struct {
		name string
		json string
		err  error
	}{
		{"bad pin", `{"record_button": "pa3"}`, ErrBadPin},
		{"duplicate", `{"play_button": "gpio7"}`, ErrDuplicatePin},
		{"policy", `{"overflow": "loop"}`, ErrBadPolicy},
		{"tick", `{"tick_hz": -1}`, ErrBadTiming},
		{"debounce", `{"debounce_ms": -5}`, ErrBadTiming},
	}

	for _, tc := range testCases {
		_, err := LoadConfig([]byte(tc.json))
		if !errors.Is(err, tc.err) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.err, err)
		}
	}

	if _, err := LoadConfig([]byte(`{`)); err == nil {
		t.Error("Malformed JSON accepted")
	}
}

func TestPIOBackendNeedsConsecutiveOutputs(t *testing.T) {
	if _, err := LoadConfig([]byte(`{"output_backend": "pio"}`)); err != nil {
		t.Errorf("Default outputs are consecutive: %v", err)
	}

	_, err := LoadConfig([]byte(`{"output_backend": "pio", "outputs": {"fire": "gpio21"}}`))
	if err == nil {
		t.Error("Non-consecutive outputs accepted for pio")
	}
}

func TestParsePin(t *testing.T) {
	testCases := map[string]core.GPIOPin{
		"gpio0":    0,
		"GPIO17":   17,
		" gpio28 ": 28,
		"4":        4,
	}
	for name, want := range testCases {
		got, err := ParsePin(name)
		if err != nil || got != want {
			t.Errorf("ParsePin(%q) = %d, %v", name, got, err)
		}
	}

	for _, bad := range []string{"", "gpio", "gpio-1", "gpio999", "led"} {
		if _, err := ParsePin(bad); !errors.Is(err, ErrBadPin) {
			t.Errorf("ParsePin(%q) should fail, got %v", bad, err)
		}
	}
}
