// Package tinycompress writes zlib streams made of stored (uncompressed)
// DEFLATE blocks. Any zlib reader accepts the output, and the writer needs
// no tables, which keeps it small enough for TinyGo firmware.
package tinycompress

import (
	"errors"
	"hash"
	"hash/adler32"
	"io"
)

// MaxBlockSize is the largest payload a stored block can carry
const MaxBlockSize = 0xFFFF

var ErrClosed = errors.New("tinycompress: write after close")

// Writer buffers input and emits one zlib stream on Close
type Writer struct {
	w      io.Writer
	adler  hash.Hash32
	buf    []byte
	header bool
	closed bool
}

// NewWriter returns a Writer that writes the stream to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:     w,
		adler: adler32.New(),
	}
}

// Write buffers p. Full blocks are flushed as non-final blocks.
func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	z.adler.Write(p)
	z.buf = append(z.buf, p...)

	// Keep at least one byte back so Close always has a final block
	for len(z.buf) > MaxBlockSize {
		if err := z.writeBlock(z.buf[:MaxBlockSize], false); err != nil {
			return 0, err
		}
		z.buf = z.buf[MaxBlockSize:]
	}
	return len(p), nil
}

// Close writes the final block and the Adler-32 trailer
func (z *Writer) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true

	if err := z.writeBlock(z.buf, true); err != nil {
		return err
	}
	z.buf = nil

	sum := z.adler.Sum32()
	_, err := z.w.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	return err
}

func (z *Writer) writeBlock(data []byte, final bool) error {
	hdr := make([]byte, 0, 7)
	if !z.header {
		// CMF/FLG: deflate, 32K window, default level
		hdr = append(hdr, 0x78, 0x9C)
		z.header = true
	}
	var bfinal byte
	if final {
		bfinal = 0x01
	}
	n := uint16(len(data))
	hdr = append(hdr, bfinal, byte(n), byte(n>>8), byte(^n), byte(^n>>8))

	if _, err := z.w.Write(hdr); err != nil {
		return err
	}
	_, err := z.w.Write(data)
	return err
}

// Compress returns data as a complete zlib stream
func Compress(data []byte) []byte {
	var out sliceWriter
	w := NewWriter(&out)
	w.Write(data)
	w.Close()
	return out
}

type sliceWriter []byte

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s = append(*s, p...)
	return len(p), nil
}
