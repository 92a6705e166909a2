//go:build rp2040 || rp2350

package main

import (
	"machine"
	"runtime"
	"time"

	"joyrec/core"
	"joyrec/protocol"
	"joyrec/targets/pio"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32
	loopPanics       uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable the watchdog so state from a previous run cannot reset us
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()

	mode := GetMode()
	cfg := mode.Device
	if cfg.Debug {
		InitDebugUART()
		core.SetDebugWriter(DebugPrintln)
		core.SetDebugEnabled(true)
		core.InitAsyncDebug()
	}
	if mode.LoadErr != nil {
		core.DebugPrintln("[CFG] " + mode.LoadErr.Error() + ", using defaults")
	}

	pins, err := cfg.PinMap()
	if err != nil {
		fatal("[CFG] " + err.Error())
	}
	opts, err := cfg.Options()
	if err != nil {
		fatal("[CFG] " + err.Error())
	}

	gpioDriver := NewRPGPIODriver()

	// The recorder's only suspension point. Every spin refreshes the clock,
	// services the host link and runs due timers (the heartbeat).
	delay := &core.BusyDelay{
		Now:  GetHardwareTime,
		Poll: poll,
	}

	rec := core.NewRecorder(gpioDriver, pins, delay, opts)
	switch cfg.OutputBackend {
	case "pio":
		out, err := pio.NewOutputPIO(pins)
		if err == nil {
			err = out.Init()
		}
		if err != nil {
			fatal("[PIO] " + err.Error())
		}
		rec.SetOutputDriver(out)
	case "sio":
		rec.SetOutputDriver(pio.NewOutputSIO(pins))
	}
	if err := rec.Configure(); err != nil {
		fatal("[GPIO] " + err.Error())
	}

	heartbeat := core.NewHeartbeat(gpioDriver, pins.HeartbeatLED, cfg.HeartbeatInterval())
	if err := heartbeat.Configure(); err != nil {
		fatal("[GPIO] " + err.Error())
	}

	core.InitCoreCommands()
	core.InitRecorderCommands(rec)

	// Build and cache the compressed dictionary once everything is registered
	core.GetGlobalDictionary().BuildDictionary()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		// Clear buffers on host reset
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// Push ACKs out immediately; the host waits for them before reading responses
	transport.SetFlushCallback(writeUSB)
	core.SetGlobalTransport(transport)

	var display *StatusDisplay
	if cfg.Display {
		display = NewStatusDisplay(rec.Capacity())
	}

	UpdateSystemTime()
	heartbeat.Attach()

	for {
		// Recover from panics in the loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					loopPanics++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			frame := rec.Step()
			if display != nil {
				display.Update(frame)
			}
		}()
	}
}

// poll runs on every spin of the busy delay
func poll() {
	UpdateSystemTime()
	readUSB()

	if inputBuffer.Available() > 0 {
		transport.Receive(inputBuffer)
		messagesReceived++
	}

	if len(outputBuffer.Result()) > 0 {
		writeUSB()
		messagesSent++
	}

	core.ProcessTimers()

	// Let the async debug writer run
	runtime.Gosched()
}

// readUSB moves pending USB bytes into the input buffer
func readUSB() {
	for USBAvailable() > 0 {
		data, err := USBRead()
		if err != nil {
			msgerrors++
			return
		}

		// Data after a disconnect starts a fresh session
		if usbWasDisconnected {
			usbWasDisconnected = false
			inputBuffer.Reset()
			outputBuffer.Reset()
			transport.Reset()
			messagesReceived = 0
			messagesSent = 0
			consecutiveWriteFailures = 0
		}

		if inputBuffer.Write([]byte{data}) == 0 {
			// Buffer full
			msgerrors++
			return
		}
	}
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely disconnected; drop stale data after repeated failures
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}

// fatal reports a startup error and blinks the on-board LED forever
func fatal(msg string) {
	core.DebugPrintln(msg)
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
