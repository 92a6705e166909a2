package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

type recordedCommand struct {
	id  uint16
	arg uint32
}

// newTestTransport returns a device transport whose handler decodes one
// uint argument per command
func newTestTransport() (*Transport, *ScratchOutput, *[]recordedCommand) {
	out := NewScratchOutput()
	var got []recordedCommand
	tr := NewTransport(out, func(cmdID uint16, data *[]byte) error {
		arg, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		got = append(got, recordedCommand{cmdID, arg})
		return nil
	})
	return tr, out, &got
}

func commandBlock(seq uint8, cmdID uint16, arg uint32) []byte {
	msg, _ := buildCommandMessage(seq, cmdID, func(o OutputBuffer) {
		EncodeVLQUint(o, arg)
	})
	return msg
}

func TestTransportDispatchAndAck(t *testing.T) {
	tr, out, got := newTestTransport()

	input := NewSliceInputBuffer(commandBlock(MessageDest, 3, 500))
	tr.Receive(input)

	if len(*got) != 1 || (*got)[0] != (recordedCommand{3, 500}) {
		t.Fatalf("Expected command 3 with arg 500, got %v", *got)
	}
	if input.Available() != 0 {
		t.Errorf("Block not consumed: %d bytes left", input.Available())
	}
	if ack := encodeBlock(MessageDest+1, nil); !bytes.Equal(out.Result(), ack) {
		t.Errorf("Expected ACK %v, got %v", ack, out.Result())
	}
}

func TestTransportStaleSequenceNaks(t *testing.T) {
	tr, out, got := newTestTransport()

	tr.Receive(NewSliceInputBuffer(commandBlock(MessageDest, 1, 1)))
	out.Reset()

	// Expected 0x11; 0x13 must be ignored and answered with 0x11
	tr.Receive(NewSliceInputBuffer(commandBlock(MessageDest+3, 1, 2)))

	if len(*got) != 1 {
		t.Errorf("Out-of-order block dispatched: %v", *got)
	}
	if nak := encodeBlock(MessageDest+1, nil); !bytes.Equal(out.Result(), nak) {
		t.Errorf("Expected NAK %v, got %v", nak, out.Result())
	}
}

func TestTransportHostRestart(t *testing.T) {
	resets := 0
	tr, _, got := newTestTransport()
	tr.SetResetCallback(func() { resets++ })

	tr.Receive(NewSliceInputBuffer(commandBlock(MessageDest, 1, 1)))
	tr.Receive(NewSliceInputBuffer(commandBlock(MessageDest, 1, 2)))

	if resets != 1 {
		t.Errorf("Expected one reset callback, got %d", resets)
	}
	if len(*got) != 2 {
		t.Errorf("Block after restart should dispatch, got %v", *got)
	}
}

func TestTransportPartialBlock(t *testing.T) {
	tr, _, got := newTestTransport()
	block := commandBlock(MessageDest, 2, 9)

	fifo := NewFifoBuffer(128)
	fifo.Write(block[:4])
	tr.Receive(fifo)

	if len(*got) != 0 || fifo.Available() != 4 {
		t.Fatalf("Partial block: dispatched %v, %d bytes buffered", *got, fifo.Available())
	}

	fifo.Write(block[4:])
	tr.Receive(fifo)
	if len(*got) != 1 || !fifo.IsEmpty() {
		t.Errorf("Completed block: dispatched %v, %d bytes buffered", *got, fifo.Available())
	}
}

func TestTransportResyncAfterCorruption(t *testing.T) {
	tr, _, got := newTestTransport()

	bad := commandBlock(MessageDest, 1, 1)
	bad[2] ^= 0xFF // break the CRC

	stream := append([]byte{}, bad...)
	stream = append(stream, commandBlock(MessageDest, 4, 77)...)
	tr.Receive(NewSliceInputBuffer(stream))

	if len(*got) != 1 || (*got)[0] != (recordedCommand{4, 77}) {
		t.Errorf("Expected only the good block to dispatch, got %v", *got)
	}
}

func TestTransportHandlerError(t *testing.T) {
	errBoom := errors.New("boom")
	out := NewScratchOutput()
	tr := NewTransport(out, func(uint16, *[]byte) error { return errBoom })

	tr.Receive(NewSliceInputBuffer(commandBlock(MessageDest, 1, 1)))

	if !errors.Is(tr.LastError(), errBoom) {
		t.Errorf("Expected handler error to be kept, got %v", tr.LastError())
	}
	if !tr.isSynchronized() {
		t.Error("Handler errors must not desynchronize the link")
	}
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	tr, out, _ := newTestTransport()

	tr.SendCommand(9, func(o OutputBuffer) {
		EncodeVLQUint(o, 12345)
		EncodeVLQBytes(o, []byte{1, 2, 16})
	})

	block := out.Result()
	if n := scanBlock(block); n != len(block) {
		t.Fatalf("scanBlock = %d, block is %d bytes", n, len(block))
	}

	msg := &Message{Payload: block[MessageHeaderSize : len(block)-MessageTrailerSize]}
	id, args, err := msg.CommandID()
	if err != nil || id != 9 {
		t.Fatalf("CommandID = %d, %v", id, err)
	}
	if v, _ := DecodeVLQUint(&args); v != 12345 {
		t.Errorf("Expected 12345, got %d", v)
	}
	if b, _ := DecodeVLQBytes(&args); !bytes.Equal(b, []byte{1, 2, 16}) {
		t.Errorf("Expected [1 2 16], got %v", b)
	}
}

func TestBuildCommandMessageTooLong(t *testing.T) {
	_, err := buildCommandMessage(MessageDest, 1, func(o OutputBuffer) {
		EncodeVLQBytes(o, make([]byte, MessagePayloadMax))
	})
	if err == nil {
		t.Error("Oversized payload should be rejected")
	}
}

// runDevice serves a device transport on conn until the connection closes
func runDevice(conn net.Conn, tr *Transport, out *ScratchOutput) {
	fifo := NewFifoBuffer(256)
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		fifo.Write(buf[:n])
		tr.Receive(fifo)
		if out.CurPosition() > 0 {
			if _, err := conn.Write(out.Result()); err != nil {
				return
			}
			out.Reset()
		}
	}
}

func TestHostTransportCall(t *testing.T) {
	hostConn, devConn := net.Pipe()

	out := NewScratchOutput()
	var tr *Transport
	tr = NewTransport(out, func(cmdID uint16, data *[]byte) error {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return err
		}
		tr.SendCommand(cmdID+1, func(o OutputBuffer) {
			EncodeVLQUint(o, v+1)
		})
		return nil
	})
	go runDevice(devConn, tr, out)

	host := NewHostTransport(hostConn)
	defer host.Close()

	for i := uint32(0); i < 20; i++ {
		args, err := host.Call(5, func(o OutputBuffer) { EncodeVLQUint(o, i) }, 6)
		if err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if v, _ := DecodeVLQUint(&args); v != i+1 {
			t.Errorf("Call %d: expected %d, got %d", i, i+1, v)
		}
	}

	// 20 commands wrap the 16-value sequence space
	if seq := host.CurrentSequence(); seq != MessageDest|uint8(20&MessageSeqMask) {
		t.Errorf("Unexpected host sequence 0x%02x", seq)
	}
}

func TestHostTransportAckTimeout(t *testing.T) {
	hostConn, devConn := net.Pipe()
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := devConn.Read(buf); err != nil {
				return
			}
		}
	}()

	host := NewHostTransport(hostConn)
	defer host.Close()

	err := host.SendCommandWithTimeout(1, nil, 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}
