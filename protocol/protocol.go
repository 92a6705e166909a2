// Package protocol implements the framed host link spoken over USB CDC or a
// serial port: VLQ-encoded arguments inside CRC16-checked, sequenced blocks.
package protocol

// Version is the firmware version reported in the dictionary
const Version = "joyrec-0.1.0"

// Block layout
//
//	<len> <seq> <payload...> <crc hi> <crc lo> <sync>
const (
	MessageMax = 512 // Size of a scratch output buffer; fits several blocks

	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1

	MessageValueSync = 0x7E
	MessageDest      = 0x10
	MessageSeqMask   = 0x0F
)

// nextSeq advances a sequence byte within 0x10-0x1F
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// encodeBlock wraps payload into a complete block
func encodeBlock(seq uint8, payload []byte) []byte {
	msgLen := MessageHeaderSize + len(payload) + MessageTrailerSize
	block := make([]byte, 0, msgLen)
	block = append(block, uint8(msgLen), seq)
	block = append(block, payload...)
	crc := CRC16(block)
	return append(block, uint8(crc>>8), uint8(crc), MessageValueSync)
}

// scanBlock looks for one block at the front of data.
// It returns the block length, or 0 when more bytes are needed,
// or -1 when the front of data cannot start a valid block.
func scanBlock(data []byte) int {
	if len(data) < MessageLengthMin {
		return 0
	}
	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return -1
	}
	if data[MessagePositionSeq]&^MessageSeqMask != MessageDest {
		return -1
	}
	if len(data) < msgLen {
		return 0
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return -1
	}
	frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
		uint16(data[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
		return -1
	}
	return msgLen
}

// skipToSync drops bytes up to and including the next sync byte.
// ok is false when no sync byte was found.
func skipToSync(data []byte) (rest []byte, ok bool) {
	for i, b := range data {
		if b == MessageValueSync {
			return data[i+1:], true
		}
	}
	return nil, false
}
