package core

import (
	"joyrec/protocol"
)

// RecorderChunkMax is the largest recorder_read/recorder_write payload
// that fits one link block alongside its header arguments
const RecorderChunkMax = 48

// Result codes carried by recorder_result
const (
	ResultOK         = 0
	ResultNotIdle    = 1
	ResultOutOfRange = 2
	ResultBadMode    = 3
)

// ResponseSender frames a response onto the link
type ResponseSender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

// Global transport for sending responses (set by main)
var globalTransport ResponseSender

// SetGlobalTransport sets the transport used by SendResponse
func SetGlobalTransport(transport ResponseSender) {
	globalTransport = transport
}

// SendResponse sends a registered response through the global transport.
// Sending an unregistered response is a programming error.
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		panic("response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

// InitCoreCommands registers the link bootstrap and clock commands.
// Registration order matters: hosts expect identify_response as ID 0 and
// identify as ID 1 before they have read the dictionary.
func InitCoreCommands() {
	RegisterResponse("identify_response", "offset=%u data=%*s")       // ID 0
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify) // ID 1

	RegisterCommand("get_uptime", "", handleGetUptime)
	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("debug_dump", "", handleDebugDump)

	RegisterResponse("uptime", "high=%u clock=%u")
	RegisterResponse("clock", "clock=%u")

	// MCU is registered by the target
	RegisterConstant("CLOCK_FREQ", uint32(TimerFreq))
}

// handleIdentify returns one chunk of the compressed dictionary
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := GetGlobalDictionary().GetChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetUptime(data *[]byte) error {
	uptime := GetUptime()
	SendResponse("uptime", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(uptime>>32))
		protocol.EncodeVLQUint(output, uint32(uptime))
	})
	return nil
}

func handleGetClock(data *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleDebugDump(data *[]byte) error {
	DumpTimingRing()
	return nil
}

// recorderCommands binds the recorder_* handlers to one recorder.
// Handlers run from the link poll inside the recorder's delay, so they
// share the loop's thread of control.
type recorderCommands struct {
	rec *Recorder
}

// InitRecorderCommands registers the recorder commands, responses and
// dictionary constants for r
func InitRecorderCommands(r *Recorder) {
	rc := &recorderCommands{rec: r}

	RegisterCommand("recorder_query", "", rc.handleQuery)
	RegisterCommand("recorder_set_mode", "mode=%c", rc.handleSetMode)
	RegisterCommand("recorder_read", "offset=%u count=%c", rc.handleRead)
	RegisterCommand("recorder_write", "offset=%u data=%*s", rc.handleWrite)
	RegisterCommand("recorder_clear", "", rc.handleClear)

	RegisterResponse("recorder_status", "mode=%c index=%u capacity=%u live=%c out=%c")
	RegisterResponse("recorder_data", "offset=%u data=%*s")
	RegisterResponse("recorder_result", "status=%c")

	opts := r.Options()
	RegisterConstant("BUFFER_CAPACITY", uint32(r.Capacity()))
	RegisterConstant("RECORDER_CHUNK_MAX", uint32(RecorderChunkMax))
	RegisterConstant("TICK_PERIOD", opts.TickPeriod)
	RegisterConstant("DEBOUNCE_HOLD", opts.DebounceHold)
	RegisterConstant("OVERFLOW_POLICY", opts.Overflow.String())

	RegisterEnumeration("recorder_mode", ModeNames())
	RegisterEnumeration("overflow_policy", overflowNames)
}

func (rc *recorderCommands) handleQuery(data *[]byte) error {
	frame := rc.rec.LastFrame()
	SendResponse("recorder_status", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(rc.rec.Mode()))
		protocol.EncodeVLQUint(output, uint32(rc.rec.Index()))
		protocol.EncodeVLQUint(output, uint32(rc.rec.Capacity()))
		protocol.EncodeVLQUint(output, uint32(frame.Live))
		protocol.EncodeVLQUint(output, uint32(frame.Out))
	})
	return nil
}

func (rc *recorderCommands) handleSetMode(data *[]byte) error {
	mode, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if mode >= numModes {
		sendResult(ErrBadMode)
		return nil
	}
	sendResult(rc.rec.RequestMode(Mode(mode)))
	return nil
}

func (rc *recorderCommands) handleRead(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > RecorderChunkMax {
		count = RecorderChunkMax
	}

	var buf [RecorderChunkMax]byte
	n, err := rc.rec.ReadRecording(int(offset), buf[:count])
	if err != nil {
		// Past the end reads as an empty chunk
		n = 0
	}
	SendResponse("recorder_data", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, buf[:n])
	})
	return nil
}

func (rc *recorderCommands) handleWrite(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	chunk, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	sendResult(rc.rec.WriteRecording(int(offset), chunk))
	return nil
}

func (rc *recorderCommands) handleClear(data *[]byte) error {
	sendResult(rc.rec.ClearRecording())
	return nil
}

// sendResult reports the outcome of a state-changing recorder command
func sendResult(err error) {
	status := uint32(ResultOK)
	switch err {
	case nil:
	case ErrNotIdle:
		status = ResultNotIdle
	case ErrOutOfRange:
		status = ResultOutOfRange
	default:
		status = ResultBadMode
	}
	SendResponse("recorder_result", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, status)
	})
}
