//go:build linux && !tinygo

// Command joyrec-linux runs the recorder on a Linux board's GPIO header
// through periph.io.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/host/v3"

	"joyrec/config"
	"joyrec/core"
)

var (
	configPath = flag.String("config", "", "Device configuration JSON (default: built-in pin map)")
	debug      = flag.Bool("debug", false, "Log mode changes and the timing ring")
)

// pollSlice bounds how late a heartbeat can fire during a long wait
const pollSlice = 5 * time.Millisecond

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		*debug = true
	}

	pins, err := cfg.PinMap()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts, err := cfg.Options()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.OutputBackend != "gpio" {
		log.Printf("output backend %q is RP2040 only, using gpio", cfg.OutputBackend)
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("periph: %v", err)
	}

	core.SetDebugWriter(func(s string) { log.Println(s) })
	core.SetDebugEnabled(*debug)
	if *debug {
		core.InitAsyncDebug()
	}

	clock := core.NewHostClock()
	core.TimerInit()
	clock.Poll()

	delay := core.NewMonotonicDelay()
	delay.Poll = clock.Poll
	delay.Slice = pollSlice

	gpioDriver := NewPeriphGPIODriver()
	rec := core.NewRecorder(gpioDriver, pins, delay, opts)
	if err := rec.Configure(); err != nil {
		log.Fatalf("gpio: %v", err)
	}

	heartbeat := core.NewHeartbeat(gpioDriver, pins.HeartbeatLED, cfg.HeartbeatInterval())
	if err := heartbeat.Configure(); err != nil {
		log.Fatalf("gpio: %v", err)
	}
	heartbeat.Attach()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("sampling every %v, overflow %s", core.TicksToDuration(opts.TickPeriod), opts.Overflow)

	err = rec.Run(ctx)
	heartbeat.Detach()

	// Leave the outputs released and the LEDs dark
	if err := rec.Configure(); err != nil {
		log.Printf("gpio: %v", err)
	}
	if err := heartbeat.Configure(); err != nil {
		log.Printf("gpio: %v", err)
	}

	if *debug {
		core.DumpTimingRing()
	}
	st := rec.Stats()
	log.Printf("stopped after %d ticks, %d mode changes, %d overflows, %d pin errors",
		st.Ticks, st.ModeChanges, st.Overflows, st.PinErrors)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.DeviceConfig, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}
