package transport

import (
	"fmt"
	"sort"
)

// LineControl is the out-of-band control a serial line offers on top
// of its byte stream.
type LineControl interface {
	// Baud returns the current line speed.
	Baud() int

	// SetBaud changes the line speed.
	SetBaud(baud int) error

	// SetRTS and SetDTR raise or drop the modem control lines.
	SetRTS(on bool) error
	SetDTR(on bool) error

	// Modem reports the current state of RTS and DTR.
	Modem() (rts, dtr bool, err error)
}

// SupportedBauds lists the line speeds OpenSerial accepts, ascending.
func SupportedBauds() []int {
	out := make([]int, 0, len(baudRates))
	for b := range baudRates {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// CheckBaud reports whether baud is one of SupportedBauds.
func CheckBaud(baud int) error {
	if _, ok := baudRates[baud]; !ok {
		return fmt.Errorf("unsupported baud rate %d", baud)
	}
	return nil
}
