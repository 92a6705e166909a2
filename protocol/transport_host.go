package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrTimeout = errors.New("link timeout")
	ErrClosed  = errors.New("transport closed")
)

// DefaultTimeout bounds each ACK and response wait
const DefaultTimeout = 2 * time.Second

// ResponseHandler sees every response as it arrives, ahead of the
// synchronous receive queue
type ResponseHandler func(cmdID uint16, data *[]byte) error

// Message is one received block
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte
	CRC      uint16
}

// CommandID decodes the leading command ID, returning it and the remaining
// argument bytes
func (m *Message) CommandID() (uint16, []byte, error) {
	data := m.Payload
	id, err := DecodeVLQUint(&data)
	return uint16(id), data, err
}

// HostTransport is the host side of the link: it frames commands, waits for
// the device's ACK and queues responses
type HostTransport struct {
	port io.ReadWriteCloser

	currentSeq   uint32 // atomic; sequence of the next command (0x10-0x1F)
	synchronized uint32 // atomic bool

	input *FifoBuffer

	ackChan      chan *Message
	responseChan chan *Message

	responseHandler ResponseHandler

	writeMutex sync.Mutex
	readMutex  sync.Mutex

	closeOnce sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewHostTransport starts a reader goroutine on port
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:         port,
		currentSeq:   MessageDest,
		synchronized: 1,
		input:        NewFifoBuffer(1024),
		ackChan:      make(chan *Message, 1),
		responseChan: make(chan *Message, 64),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// SendCommand sends a command and waits for its ACK
func (t *HostTransport) SendCommand(cmdID uint16, args func(output OutputBuffer)) error {
	return t.SendCommandWithTimeout(cmdID, args, DefaultTimeout)
}

// SendCommandWithTimeout sends a command and waits up to timeout for its ACK
func (t *HostTransport) SendCommandWithTimeout(cmdID uint16, args func(output OutputBuffer), timeout time.Duration) error {
	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()

	seq := uint8(atomic.LoadUint32(&t.currentSeq))
	msg, err := buildCommandMessage(seq, cmdID, args)
	if err != nil {
		return fmt.Errorf("build command %d: %w", cmdID, err)
	}

	n, err := t.port.Write(msg)
	if err != nil {
		return fmt.Errorf("write command %d: %w", cmdID, err)
	}
	if n != len(msg) {
		return fmt.Errorf("write command %d: short write %d/%d", cmdID, n, len(msg))
	}

	return t.waitForAck(seq, timeout)
}

// buildCommandMessage frames cmdID and its arguments as one block
func buildCommandMessage(seq uint8, cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()
	if len(payload) > MessagePayloadMax {
		return nil, fmt.Errorf("payload %d bytes exceeds %d", len(payload), MessagePayloadMax)
	}
	return encodeBlock(seq, payload), nil
}

// waitForAck waits for the device to acknowledge seq. The ACK carries the
// sequence the device expects next.
func (t *HostTransport) waitForAck(seq uint8, timeout time.Duration) error {
	want := nextSeq(seq)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case ack := <-t.ackChan:
			if ack.Sequence != want {
				// NAK for an older block; keep waiting
				continue
			}
			atomic.StoreUint32(&t.currentSeq, uint32(want))
			return nil
		case <-deadline.C:
			return fmt.Errorf("ACK for seq 0x%02x: %w", seq, ErrTimeout)
		case <-t.stopChan:
			return ErrClosed
		}
	}
}

// ReceiveResponse returns the next queued response
func (t *HostTransport) ReceiveResponse(timeout time.Duration) (*Message, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case resp := <-t.responseChan:
		return resp, nil
	case <-deadline.C:
		return nil, fmt.Errorf("response: %w", ErrTimeout)
	case <-t.stopChan:
		return nil, ErrClosed
	}
}

// WaitResponse discards queued responses until one with respID arrives and
// returns its argument bytes
func (t *HostTransport) WaitResponse(respID uint16, timeout time.Duration) ([]byte, error) {
	end := time.Now().Add(timeout)
	for {
		remaining := time.Until(end)
		if remaining <= 0 {
			return nil, fmt.Errorf("response %d: %w", respID, ErrTimeout)
		}
		msg, err := t.ReceiveResponse(remaining)
		if err != nil {
			return nil, err
		}
		id, args, err := msg.CommandID()
		if err != nil || id != respID {
			continue
		}
		return args, nil
	}
}

// Call sends a command and waits for the named response ID
func (t *HostTransport) Call(cmdID uint16, args func(output OutputBuffer), respID uint16) ([]byte, error) {
	t.DrainResponses()
	if err := t.SendCommand(cmdID, args); err != nil {
		return nil, err
	}
	return t.WaitResponse(respID, DefaultTimeout)
}

// DrainResponses drops every queued response
func (t *HostTransport) DrainResponses() {
	for {
		select {
		case <-t.responseChan:
		default:
			return
		}
	}
}

// SetResponseHandler installs an asynchronous response observer
func (t *HostTransport) SetResponseHandler(handler ResponseHandler) {
	t.readMutex.Lock()
	t.responseHandler = handler
	t.readMutex.Unlock()
}

func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buf := make([]byte, 256)
	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n > 0 {
			t.feed(buf[:n])
		}
	}
}

// feed appends received bytes and dispatches every complete block
func (t *HostTransport) feed(chunk []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	for len(chunk) > 0 {
		n := t.input.Write(chunk)
		chunk = chunk[n:]
		t.processMessages()
		if n == 0 && len(chunk) > 0 {
			// Ring full of garbage
			t.input.Reset()
		}
	}
}

func (t *HostTransport) processMessages() {
	data := t.input.Data()

	for len(data) > 0 {
		if atomic.LoadUint32(&t.synchronized) == 0 {
			var ok bool
			data, ok = skipToSync(data)
			if ok {
				atomic.StoreUint32(&t.synchronized, 1)
			}
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msgLen := scanBlock(data)
		if msgLen == 0 {
			break
		}
		if msgLen < 0 {
			atomic.StoreUint32(&t.synchronized, 0)
			continue
		}

		payload := make([]byte, msgLen-MessageLengthMin)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		msg := &Message{
			Length:   data[MessagePositionLen],
			Sequence: data[MessagePositionSeq],
			Payload:  payload,
			CRC:      uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1]),
		}
		data = data[msgLen:]
		t.dispatchMessage(msg)
	}

	if consumed := t.input.Available() - len(data); consumed > 0 {
		t.input.Pop(consumed)
	}
}

// dispatchMessage routes empty blocks to the ACK channel and everything
// else to the response queue
func (t *HostTransport) dispatchMessage(msg *Message) {
	if len(msg.Payload) == 0 {
		select {
		case t.ackChan <- msg:
		default:
			// Replace a stale ACK nobody consumed
			select {
			case <-t.ackChan:
			default:
			}
			t.ackChan <- msg
		}
		return
	}

	if t.responseHandler != nil {
		if id, args, err := msg.CommandID(); err == nil {
			_ = t.responseHandler(id, &args)
		}
	}

	select {
	case t.responseChan <- msg:
	default:
		select {
		case <-t.responseChan:
		default:
		}
		t.responseChan <- msg
	}
}

// Close stops the reader and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		if t.port != nil {
			err = t.port.Close()
		}
		<-t.doneChan
	})
	return err
}

// Reset restarts the sequence and drops buffered state. The next command is
// sent with sequence 0x10, which the device treats as a host restart.
func (t *HostTransport) Reset() {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	atomic.StoreUint32(&t.synchronized, 1)
	atomic.StoreUint32(&t.currentSeq, MessageDest)
	t.input.Reset()
	for len(t.ackChan) > 0 {
		<-t.ackChan
	}
	t.DrainResponses()
}

// CurrentSequence returns the sequence the next command will carry
func (t *HostTransport) CurrentSequence() uint8 {
	return uint8(atomic.LoadUint32(&t.currentSeq))
}
