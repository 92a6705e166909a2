// Package mcu talks to the recorder firmware over the framed link:
// dictionary retrieval, status, mode requests and recording transfer.
package mcu

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"time"

	"joyrec/core"
	"joyrec/host/serial"
	"joyrec/protocol"
)

// Fixed IDs, usable before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
	maxDictionarySize  = 64 * 1024
)

var (
	ErrNotConnected   = errors.New("not connected to MCU")
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrUnknownCommand = errors.New("command not in dictionary")

	// Device result codes
	ErrNotIdle    = errors.New("device not idle")
	ErrOutOfRange = errors.New("offset out of range")
	ErrBadMode    = errors.New("invalid mode")
)

// MCU represents a connection to the recorder firmware
type MCU struct {
	// Transport layer
	transport *protocol.HostTransport

	port io.ReadWriteCloser

	// Dictionary data
	dictionary     *Dictionary
	dictionaryData []byte

	connected bool

	// Timeout bounds each command round trip
	Timeout time.Duration
}

// Status is the decoded recorder_status response
type Status struct {
	Mode     string
	Index    int
	Capacity int
	Live     core.InputVector
	Out      core.InputVector
}

// NewMCU creates a new MCU instance (not yet connected)
func NewMCU() *MCU {
	return &MCU{Timeout: protocol.DefaultTimeout}
}

// Connect connects to an MCU via serial port
func (m *MCU) Connect(device string) error {
	return m.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to an MCU with a custom serial config
func (m *MCU) ConnectWithConfig(cfg *serial.Config) error {
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	m.Attach(port)

	// Give the MCU time to initialize if it just enumerated
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Attach runs the link over an already open stream
func (m *MCU) Attach(port io.ReadWriteCloser) {
	m.port = port
	m.transport = protocol.NewHostTransport(port)
	m.connected = true
}

// Close closes the connection to the MCU
func (m *MCU) Close() error {
	if !m.connected {
		return nil
	}
	m.connected = false
	return m.transport.Close()
}

// IsConnected returns whether the MCU is connected
func (m *MCU) IsConnected() bool {
	return m.connected
}

// RetrieveDictionary reads the dictionary through identify and parses it.
// progress, when set, is called with the number of bytes read so far.
func (m *MCU) RetrieveDictionary(progress func(int)) error {
	if !m.connected {
		return ErrNotConnected
	}

	var dictBuffer bytes.Buffer
	offset := uint32(0)

	for offset < maxDictionarySize {
		chunk, err := m.sendIdentify(offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("dictionary chunk at %d: %w", offset, err)
		}
		dictBuffer.Write(chunk)
		offset += uint32(len(chunk))
		if progress != nil {
			progress(int(offset))
		}
		if len(chunk) < identifyChunk {
			break
		}
	}

	raw := dictBuffer.Bytes()
	data, err := inflate(raw)
	if err != nil {
		return fmt.Errorf("decompress dictionary: %w", err)
	}

	dict, err := ParseDictionary(data)
	if err != nil {
		return err
	}
	m.dictionaryData = data
	m.dictionary = dict
	return nil
}

// sendIdentify reads one dictionary chunk. identify and its response have
// fixed IDs so they work before the dictionary is known.
func (m *MCU) sendIdentify(offset uint32, count uint8) ([]byte, error) {
	m.transport.DrainResponses()
	err := m.transport.SendCommandWithTimeout(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, uint32(count))
	}, m.Timeout)
	if err != nil {
		return nil, err
	}

	payload, err := m.transport.WaitResponse(identifyResponseID, m.Timeout)
	if err != nil {
		return nil, err
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("decode offset: %w", err)
	}
	if respOffset != offset {
		return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
	}

	return protocol.DecodeVLQBytes(&payload)
}

// inflate undoes the firmware's zlib wrapping; plain JSON passes through
func inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x78 {
		return data, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// GetDictionary returns the parsed dictionary
func (m *MCU) GetDictionary() *Dictionary {
	return m.dictionary
}

// GetDictionaryRaw returns the uncompressed dictionary JSON
func (m *MCU) GetDictionaryRaw() []byte {
	return m.dictionaryData
}

// call sends a dictionary command and waits for the named response
func (m *MCU) call(command string, args func(output protocol.OutputBuffer), response string) ([]byte, error) {
	if !m.connected {
		return nil, ErrNotConnected
	}
	if m.dictionary == nil {
		return nil, ErrNoDictionary
	}

	cmdID, ok := m.dictionary.CommandID(command)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	respID, ok := m.dictionary.ResponseID(response)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, response)
	}

	m.transport.DrainResponses()
	if err := m.transport.SendCommandWithTimeout(uint16(cmdID), args, m.Timeout); err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	payload, err := m.transport.WaitResponse(uint16(respID), m.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	return payload, nil
}

// callResult runs a command answered by recorder_result
func (m *MCU) callResult(command string, args func(output protocol.OutputBuffer)) error {
	payload, err := m.call(command, args, "recorder_result")
	if err != nil {
		return err
	}
	status, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return fmt.Errorf("%s: decode result: %w", command, err)
	}
	if err := resultError(status); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// resultError maps a recorder_result status code
func resultError(status uint32) error {
	switch status {
	case core.ResultOK:
		return nil
	case core.ResultNotIdle:
		return ErrNotIdle
	case core.ResultOutOfRange:
		return ErrOutOfRange
	case core.ResultBadMode:
		return ErrBadMode
	default:
		return fmt.Errorf("unknown result code %d", status)
	}
}

// Status queries the recorder state
func (m *MCU) Status() (*Status, error) {
	payload, err := m.call("recorder_query", nil, "recorder_status")
	if err != nil {
		return nil, err
	}

	var fields [5]uint32
	for i := range fields {
		if fields[i], err = protocol.DecodeVLQUint(&payload); err != nil {
			return nil, fmt.Errorf("recorder_status: %w", err)
		}
	}

	return &Status{
		Mode:     m.dictionary.EnumName("recorder_mode", int(fields[0])),
		Index:    int(fields[1]),
		Capacity: int(fields[2]),
		Live:     core.UnpackInput(byte(fields[3])),
		Out:      core.UnpackInput(byte(fields[4])),
	}, nil
}

// SetMode requests a mode by its dictionary name ("idle", "recording",
// "playing"). The device applies it on its next tick.
func (m *MCU) SetMode(mode string) error {
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	code, ok := m.dictionary.EnumValue("recorder_mode", mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrBadMode, mode)
	}
	return m.callResult("recorder_set_mode", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(code))
	})
}

// Clear zeroes the device buffer
func (m *MCU) Clear() error {
	return m.callResult("recorder_clear", nil)
}

// chunkSize returns the transfer chunk the firmware advertises
func (m *MCU) chunkSize() int {
	if n, ok := m.dictionary.ConfigUint("RECORDER_CHUNK_MAX"); ok && n > 0 {
		return int(n)
	}
	return core.RecorderChunkMax
}

// readChunk reads up to count bytes at offset
func (m *MCU) readChunk(offset, count int) ([]byte, error) {
	payload, err := m.call("recorder_read", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(offset))
		protocol.EncodeVLQUint(output, uint32(count))
	}, "recorder_data")
	if err != nil {
		return nil, err
	}

	respOffset, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return nil, fmt.Errorf("recorder_data: %w", err)
	}
	if int(respOffset) != offset {
		return nil, fmt.Errorf("recorder_data: offset mismatch: expected %d, got %d", offset, respOffset)
	}
	return protocol.DecodeVLQBytes(&payload)
}

// Download reads the whole device buffer. progress, when set, is called
// with the bytes transferred so far and the total.
func (m *MCU) Download(progress func(done, total int)) ([]byte, error) {
	st, err := m.Status()
	if err != nil {
		return nil, err
	}

	chunk := m.chunkSize()
	data := make([]byte, 0, st.Capacity)
	for len(data) < st.Capacity {
		count := chunk
		if rest := st.Capacity - len(data); rest < count {
			count = rest
		}
		part, err := m.readChunk(len(data), count)
		if err != nil {
			return nil, err
		}
		if len(part) == 0 {
			return nil, fmt.Errorf("%w: empty chunk at %d", ErrOutOfRange, len(data))
		}
		data = append(data, part...)
		if progress != nil {
			progress(len(data), st.Capacity)
		}
	}
	return data, nil
}

// Upload writes data to the device buffer from offset 0. The device must be
// idle and data must fit its capacity.
func (m *MCU) Upload(data []byte, progress func(done, total int)) error {
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	if capacity, ok := m.dictionary.ConfigUint("BUFFER_CAPACITY"); ok && len(data) > int(capacity) {
		return fmt.Errorf("%w: %d bytes exceeds capacity %d", ErrOutOfRange, len(data), capacity)
	}

	chunk := m.chunkSize()
	for offset := 0; offset < len(data); offset += chunk {
		end := offset + chunk
		if end > len(data) {
			end = len(data)
		}
		part := data[offset:end]
		err := m.callResult("recorder_write", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(offset))
			protocol.EncodeVLQBytes(output, part)
		})
		if err != nil {
			return fmt.Errorf("at %d: %w", offset, err)
		}
		if progress != nil {
			progress(end, len(data))
		}
	}
	return nil
}

// Uptime returns the device uptime in timer ticks
func (m *MCU) Uptime() (uint64, error) {
	payload, err := m.call("get_uptime", nil, "uptime")
	if err != nil {
		return 0, err
	}
	high, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, err
	}
	low, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, err
	}
	return uint64(high)<<32 | uint64(low), nil
}

// DebugDump asks the firmware to print its timing ring on its debug output
func (m *MCU) DebugDump() error {
	if m.dictionary == nil {
		return ErrNoDictionary
	}
	cmdID, ok := m.dictionary.CommandID("debug_dump")
	if !ok {
		return fmt.Errorf("%w: debug_dump", ErrUnknownCommand)
	}
	return m.transport.SendCommandWithTimeout(uint16(cmdID), nil, m.Timeout)
}
