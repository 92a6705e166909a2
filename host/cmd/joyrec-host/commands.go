package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"joyrec/core"
	"joyrec/host/mcu"
)

var errUsage = errors.New("usage")

// modeAliases maps CLI words to recorder_mode names
var modeAliases = map[string]string{
	"idle":   "idle",
	"stop":   "idle",
	"record": "recording",
	"play":   "playing",
}

// runCommand executes one CLI command against the device
func runCommand(m *mcu.MCU, args []string) error {
	cmd := args[0]

	if mode, ok := modeAliases[cmd]; ok {
		if err := m.SetMode(mode); err != nil {
			return err
		}
		fmt.Printf("Requested %s\n", mode)
		return nil
	}

	switch cmd {
	case "status":
		st, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Print(formatStatus(st))

	case "dump":
		if len(args) != 2 {
			return fmt.Errorf("%w: dump FILE", errUsage)
		}
		data, err := m.Download(printProgress)
		fmt.Println()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %d samples (%s) to %s\n", len(data), sampleDuration(m, len(data)), args[1])

	case "load":
		if len(args) != 2 {
			return fmt.Errorf("%w: load FILE", errUsage)
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := checkRecording(data); err != nil {
			return fmt.Errorf("%s: %w", args[1], err)
		}
		if err := m.Upload(data, printProgress); err != nil {
			fmt.Println()
			return err
		}
		fmt.Printf("\nUploaded %d samples\n", len(data))

	case "clear":
		if err := m.Clear(); err != nil {
			return err
		}
		fmt.Println("Recording cleared")

	case "uptime":
		ticks, err := m.Uptime()
		if err != nil {
			return err
		}
		freq, ok := m.GetDictionary().ConfigUint("CLOCK_FREQ")
		if !ok || freq == 0 {
			freq = core.TimerFreq
		}
		fmt.Printf("Uptime: %s\n", time.Duration(ticks*uint64(time.Second)/uint64(freq)).Round(time.Millisecond))

	case "debug":
		return m.DebugDump()

	case "dict":
		m.GetDictionary().Print(os.Stdout)

	case "raw":
		raw := m.GetDictionaryRaw()
		fmt.Printf("Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
	return nil
}

func formatStatus(st *mcu.Status) string {
	return fmt.Sprintf("Mode:   %s\nCursor: %d / %d\nLive:   %s\nOut:    %s\n",
		st.Mode, st.Index, st.Capacity, st.Live, st.Out)
}

func printProgress(done, total int) {
	fmt.Printf("  %d / %d bytes\r", done, total)
}

// checkRecording rejects files that cannot be a recording: every sample is
// a five bit vector
func checkRecording(data []byte) error {
	for i, b := range data {
		if core.UnpackInput(b).Byte() != b {
			return fmt.Errorf("byte %d (0x%02x) is not an input vector", i, b)
		}
	}
	return nil
}

// sampleDuration converts a sample count to play time using the device's
// tick period
func sampleDuration(m *mcu.MCU, samples int) time.Duration {
	period, ok := m.GetDictionary().ConfigUint("TICK_PERIOD")
	if !ok {
		period = core.DefaultTickPeriod
	}
	return time.Duration(samples) * core.TicksToDuration(period)
}
