package mcu

import (
	"net"
	"testing"

	"joyrec/core"
	"joyrec/protocol"
)

// stubGPIO reads every input as released
type stubGPIO struct{}

func (stubGPIO) ConfigureOutput(pin core.GPIOPin) error      { return nil }
func (stubGPIO) ConfigureInputPullUp(pin core.GPIOPin) error { return nil }
func (stubGPIO) SetPin(pin core.GPIOPin, value bool) error   { return nil }
func (stubGPIO) GetPin(pin core.GPIOPin) (bool, error)       { return true, nil }

type nopDelay struct{}

func (nopDelay) Delay(ticks uint32) {}

// startDevice runs the firmware command set on the far end of a pipe.
// The recorder takes one tick after every read from the link.
func startDevice(t *testing.T) *MCU {
	t.Helper()

	rec := core.NewRecorder(stubGPIO{}, core.DefaultPinMap(), nopDelay{}, core.DefaultOptions())
	core.InitCoreCommands()
	core.RegisterConstant("MCU", "test")
	core.InitRecorderCommands(rec)

	out := protocol.NewScratchOutput()
	tr := protocol.NewTransport(out, func(cmdID uint16, data *[]byte) error {
		return core.DispatchCommand(cmdID, data)
	})
	core.SetGlobalTransport(tr)

	hostConn, devConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fifo := protocol.NewFifoBuffer(256)
		buf := make([]byte, 64)
		for {
			n, err := devConn.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			tr.Receive(fifo)
			rec.Step()
			if out.CurPosition() > 0 {
				if _, err := devConn.Write(out.Result()); err != nil {
					return
				}
				out.Reset()
			}
		}
	}()

	m := NewMCU()
	m.Attach(hostConn)
	t.Cleanup(func() {
		m.Close()
		devConn.Close()
		<-done
		core.SetGlobalTransport(nil)
	})
	return m
}
