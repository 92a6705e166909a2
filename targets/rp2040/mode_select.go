//go:build rp2040 || rp2350

package main

import (
	"joyrec/config"
)

// deviceJSON overrides the built-in configuration, e.g.
//
//	tinygo flash -target pico -ldflags '-X main.deviceJSON={"overflow":"wrap"}' ./targets/rp2040
var deviceJSON string

// ModeConfig determines how the firmware runs
type ModeConfig struct {
	Device *config.DeviceConfig

	// Error from loading deviceJSON; the defaults are used instead
	LoadErr error
}

// GetMode returns the device configuration
func GetMode() ModeConfig {
	if deviceJSON == "" {
		return ModeConfig{Device: config.DefaultConfig()}
	}
	cfg, err := config.LoadConfig([]byte(deviceJSON))
	if err != nil {
		return ModeConfig{Device: config.DefaultConfig(), LoadErr: err}
	}
	return ModeConfig{Device: cfg}
}
