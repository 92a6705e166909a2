// Package config loads the device description: pin assignment, timing and
// capacity policy. Targets turn it into core.PinMap and core.Options.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"joyrec/core"
)

var (
	ErrBadPin       = errors.New("invalid pin name")
	ErrDuplicatePin = errors.New("pin assigned twice")
	ErrBadPolicy    = errors.New("unknown overflow policy")
	ErrBadTiming    = errors.New("invalid timing")
)

// LinePins names one pin per controller line
type LinePins struct {
	Up    string `json:"up"`
	Down  string `json:"down"`
	Left  string `json:"left"`
	Right string `json:"right"`
	Fire  string `json:"fire"`
}

func (l LinePins) names() [core.NumLines]string {
	return [core.NumLines]string{l.Up, l.Down, l.Left, l.Right, l.Fire}
}

// DeviceConfig is the JSON device description
type DeviceConfig struct {
	Inputs  LinePins `json:"inputs"`
	Outputs LinePins `json:"outputs"`

	RecordButton string `json:"record_button"`
	PlayButton   string `json:"play_button"`
	RecordLED    string `json:"record_led"`
	PlayLED      string `json:"play_led"`
	HeartbeatLED string `json:"heartbeat_led"`

	InvertOutputs bool `json:"invert_outputs"`

	TickHz      int    `json:"tick_hz"`      // Sampling rate
	DebounceMS  *int   `json:"debounce_ms"`  // Hold after a mode button press; 0 disables
	HeartbeatMS int    `json:"heartbeat_ms"` // LED toggle period
	Overflow    string `json:"overflow"`     // stop, wrap or saturate

	OutputBackend string `json:"output_backend"` // gpio, sio or pio (sio and pio are RP2040 only)
	Display       bool   `json:"display"`        // ST7735 status panel (RP2040 only)
	Debug         bool   `json:"debug"`
}

// LoadConfig parses a JSON document and fills in defaults
func LoadConfig(jsonData []byte) (*DeviceConfig, error) {
	var config DeviceConfig
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills empty fields from the reference configuration
func applyDefaults(config *DeviceConfig) {
	def := DefaultConfig()

	fillLines(&config.Inputs, def.Inputs)
	fillLines(&config.Outputs, def.Outputs)

	fill(&config.RecordButton, def.RecordButton)
	fill(&config.PlayButton, def.PlayButton)
	fill(&config.RecordLED, def.RecordLED)
	fill(&config.PlayLED, def.PlayLED)
	fill(&config.HeartbeatLED, def.HeartbeatLED)

	if config.TickHz == 0 {
		config.TickHz = def.TickHz
	}
	if config.DebounceMS == nil {
		config.DebounceMS = def.DebounceMS
	}
	if config.HeartbeatMS == 0 {
		config.HeartbeatMS = def.HeartbeatMS
	}
	fill(&config.Overflow, def.Overflow)
	fill(&config.OutputBackend, def.OutputBackend)
}

func fill(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func fillLines(l *LinePins, def LinePins) {
	fill(&l.Up, def.Up)
	fill(&l.Down, def.Down)
	fill(&l.Left, def.Left)
	fill(&l.Right, def.Right)
	fill(&l.Fire, def.Fire)
}

// DefaultConfig returns the reference RP2040 wiring at 100 Hz
func DefaultConfig() *DeviceConfig {
	debounce := 750
	return &DeviceConfig{
		Inputs:        LinePins{Up: "gpio2", Down: "gpio3", Left: "gpio4", Right: "gpio5", Fire: "gpio6"},
		Outputs:       LinePins{Up: "gpio10", Down: "gpio11", Left: "gpio12", Right: "gpio13", Fire: "gpio14"},
		RecordButton:  "gpio7",
		PlayButton:    "gpio8",
		RecordLED:     "gpio18",
		PlayLED:       "gpio19",
		HeartbeatLED:  "gpio20",
		TickHz:        100,
		DebounceMS:    &debounce,
		HeartbeatMS:   1000,
		Overflow:      core.OverflowStop.String(),
		OutputBackend: "gpio",
	}
}

// ParsePin accepts "gpio17", "GPIO17" or "17"
func ParsePin(name string) (core.GPIOPin, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPin, name)
	}
	return core.GPIOPin(n), nil
}

// PinMap resolves the pin names
func (c *DeviceConfig) PinMap() (core.PinMap, error) {
	var pins core.PinMap
	var err error

	in, out := c.Inputs.names(), c.Outputs.names()
	for i := 0; i < core.NumLines; i++ {
		if pins.Inputs[i], err = ParsePin(in[i]); err != nil {
			return pins, fmt.Errorf("input %v: %w", core.Line(i), err)
		}
		if pins.Outputs[i], err = ParsePin(out[i]); err != nil {
			return pins, fmt.Errorf("output %v: %w", core.Line(i), err)
		}
	}

	singles := []struct {
		name string
		src  string
		dst  *core.GPIOPin
	}{
		{"record_button", c.RecordButton, &pins.RecordButton},
		{"play_button", c.PlayButton, &pins.PlayButton},
		{"record_led", c.RecordLED, &pins.RecordLED},
		{"play_led", c.PlayLED, &pins.PlayLED},
		{"heartbeat_led", c.HeartbeatLED, &pins.HeartbeatLED},
	}
	for _, s := range singles {
		if *s.dst, err = ParsePin(s.src); err != nil {
			return pins, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	pins.InvertOutputs = c.InvertOutputs
	return pins, nil
}

// Options converts the timing fields to timer ticks
func (c *DeviceConfig) Options() (core.Options, error) {
	policy, ok := core.ParseOverflowPolicy(c.Overflow)
	if !ok {
		return core.Options{}, fmt.Errorf("%w: %q", ErrBadPolicy, c.Overflow)
	}
	if c.TickHz <= 0 || c.TickHz > core.TimerFreq {
		return core.Options{}, fmt.Errorf("%w: tick_hz %d", ErrBadTiming, c.TickHz)
	}
	debounce := 0
	if c.DebounceMS != nil {
		debounce = *c.DebounceMS
	}
	if debounce < 0 {
		return core.Options{}, fmt.Errorf("%w: debounce_ms %d", ErrBadTiming, debounce)
	}

	return core.Options{
		TickPeriod:   uint32(core.TimerFreq / c.TickHz),
		DebounceHold: core.TimerFromUS(uint32(debounce) * 1000),
		Overflow:     policy,
	}, nil
}

// HeartbeatInterval returns the LED toggle period in timer ticks
func (c *DeviceConfig) HeartbeatInterval() uint32 {
	if c.HeartbeatMS <= 0 {
		return core.HeartbeatInterval
	}
	return core.TimerFromUS(uint32(c.HeartbeatMS) * 1000)
}

// Validate checks that every pin parses, no pin is used twice and the
// timing is usable
func (c *DeviceConfig) Validate() error {
	pins, err := c.PinMap()
	if err != nil {
		return err
	}
	if _, err := c.Options(); err != nil {
		return err
	}

	used := make(map[core.GPIOPin]string)
	claim := func(pin core.GPIOPin, what string) error {
		if prev, ok := used[pin]; ok {
			return fmt.Errorf("%w: gpio%d (%s and %s)", ErrDuplicatePin, pin, prev, what)
		}
		used[pin] = what
		return nil
	}
	for i := 0; i < core.NumLines; i++ {
		if err := claim(pins.Inputs[i], "input "+core.Line(i).String()); err != nil {
			return err
		}
		if err := claim(pins.Outputs[i], "output "+core.Line(i).String()); err != nil {
			return err
		}
	}
	for _, p := range []struct {
		pin  core.GPIOPin
		name string
	}{
		{pins.RecordButton, "record_button"},
		{pins.PlayButton, "play_button"},
		{pins.RecordLED, "record_led"},
		{pins.PlayLED, "play_led"},
		{pins.HeartbeatLED, "heartbeat_led"},
	} {
		if err := claim(p.pin, p.name); err != nil {
			return err
		}
	}

	switch c.OutputBackend {
	case "gpio", "sio":
	case "pio":
		if _, ok := pins.OutputsConsecutive(); !ok {
			return errors.New("pio output backend needs consecutive output pins")
		}
	default:
		return fmt.Errorf("unknown output backend %q", c.OutputBackend)
	}
	return nil
}
