// Command joyrec-sim runs the recorder in a terminal: the keyboard is the
// controller and the screen shows the mode, cursor, lines and LEDs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"joyrec/config"
	"joyrec/core"
)

var (
	configPath = flag.String("config", "", "Device configuration JSON (default: built-in)")
	overflow   = flag.String("overflow", "", "Override the overflow policy (stop, wrap, saturate)")
	hold       = flag.Duration("hold", 120*time.Millisecond, "How long a key press holds its line")
	loadPath   = flag.String("load", "", "Recording to load before starting")
	savePath   = flag.String("save", "", "Write the recording here on exit")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pins, err := cfg.PinMap()
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	clock := core.NewHostClock()
	core.TimerInit()
	clock.Poll()

	delay := core.NewMonotonicDelay()
	delay.Poll = clock.Poll
	delay.Slice = 5 * time.Millisecond

	keys := newKeyboardGPIO(*hold)
	rec := core.NewRecorder(keys, pins, delay, opts)
	if err := rec.Configure(); err != nil {
		return err
	}
	if *loadPath != "" {
		data, err := os.ReadFile(*loadPath)
		if err != nil {
			return err
		}
		if err := rec.WriteRecording(0, data); err != nil {
			return fmt.Errorf("%s: %w", *loadPath, err)
		}
	}

	heartbeat := core.NewHeartbeat(keys, pins.HeartbeatLED, cfg.HeartbeatInterval())
	if err := heartbeat.Configure(); err != nil {
		return err
	}
	heartbeat.Attach()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	sim := &simulator{
		screen: screen,
		keys:   keys,
		keyMap: keyMap{pins: pins},
		pins:   pins,
		view: viewState{
			capacity: rec.Capacity(),
			policy:   opts.Overflow,
		},
	}
	if err := sim.run(rec); err != nil {
		return err
	}
	heartbeat.Detach()

	if *savePath != "" {
		data := make([]byte, rec.Capacity())
		if _, err := rec.ReadRecording(0, data); err != nil {
			return err
		}
		return os.WriteFile(*savePath, data, 0o644)
	}
	return nil
}

func loadConfig() (*config.DeviceConfig, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.LoadConfig(data); err != nil {
			return nil, err
		}
	}
	if *overflow != "" {
		cfg.Overflow = *overflow
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// simulator owns the screen; the recorder runs on its own goroutine and
// hands frames over a channel
type simulator struct {
	screen tcell.Screen
	keys   *keyboardGPIO
	keyMap keyMap
	pins   core.PinMap
	view   viewState
}

func (s *simulator) run(rec *core.Recorder) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan core.Frame, 1)
	done := make(chan error, 1)
	go func() {
		done <- stepLoop(ctx, rec, frames)
	}()

	events := make(chan tcell.Event, 8)
	quit := make(chan struct{})
	go s.screen.ChannelEvents(events, quit)
	defer close(quit)

	refresh := time.NewTicker(50 * time.Millisecond)
	defer refresh.Stop()

	s.redraw()
	for {
		select {
		case ev := <-events:
			if s.handleEvent(ev) {
				cancel()
				err := <-done
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		case f := <-frames:
			s.view.frame = f
		case <-refresh.C:
			s.redraw()
		case err := <-done:
			return err
		}
	}
}

// stepLoop runs the recorder, offering each frame without blocking
func stepLoop(ctx context.Context, rec *core.Recorder, frames chan core.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		f := rec.Step()
		select {
		case frames <- f:
		default:
			// Drop the stale frame in favour of this one
			select {
			case <-frames:
			default:
			}
			frames <- f
		}
	}
}

// handleEvent reacts to one terminal event and reports whether to quit
func (s *simulator) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.screen.Sync()
	case *tcell.EventKey:
		action, pin := s.keyMap.resolve(ev)
		switch action {
		case actionQuit:
			return true
		case actionPin:
			s.keys.press(pin)
		}
	}
	return false
}

func (s *simulator) redraw() {
	// LEDs are active-low
	s.view.recordLED = !s.keys.level(s.pins.RecordLED)
	s.view.playLED = !s.keys.level(s.pins.PlayLED)
	s.view.heartbeat = !s.keys.level(s.pins.HeartbeatLED)
	draw(s.screen, s.view)
}
