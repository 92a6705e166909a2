package serial

import (
	"errors"
	"io"
)

// isTimeout reports whether err is the end-of-data tarm/serial returns
// when a read timeout expires with nothing received
func isTimeout(err error) bool {
	return errors.Is(err, io.EOF)
}
