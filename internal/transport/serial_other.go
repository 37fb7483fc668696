//go:build !linux

package transport

import (
	"fmt"
	"os"

	ncerr "ttyrelay/internal/errors"
)

var baudRates = map[int]uint32{
	9600: 0, 19200: 0, 38400: 0, 57600: 0, 115200: 0,
}

// SerialPort is unavailable on this platform.
type SerialPort struct {
	*os.File
}

// OpenSerial reports that serial lines are not supported here.
func OpenSerial(path string, baud int) (*SerialPort, error) {
	return nil, fmt.Errorf("serial %s: %w", path, ncerr.ErrNotSupported)
}

// Link is never reached on this platform.
func (p *SerialPort) Link() *Link { return &Link{ReadWriteCloser: p} }
