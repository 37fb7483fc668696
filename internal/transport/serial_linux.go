//go:build linux

package transport

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	ncerr "ttyrelay/internal/errors"
)

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// SerialPort is an open serial device in raw 8N1 mode.
type SerialPort struct {
	*os.File
	path string

	mu   sync.Mutex
	baud int
}

var _ LineControl = (*SerialPort)(nil)

// OpenSerial opens path, puts the line in raw 8N1 mode at baud, and
// raises RTS and DTR where the device has them.
func OpenSerial(path string, baud int) (*SerialPort, error) {
	if err := CheckBaud(baud); err != nil {
		return nil, err
	}

	// O_NONBLOCK keeps open from waiting on carrier detect and lets the
	// runtime poller service reads, so Close unblocks a pending Read.
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	p := &SerialPort{File: f, path: path}
	err = p.control(func(fd int) error {
		t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return fmt.Errorf("not a terminal device (TCGETS): %w", err)
		}
		makeRaw(t)
		setSpeed(t, baudRates[baud])
		if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
			return fmt.Errorf("configure line (TCSETS): %w", err)
		}
		// Devices without modem lines (USB CDC without them, ptys)
		// refuse this; the line still works.
		unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_RTS|unix.TIOCM_DTR) //nolint:errcheck
		return nil
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serial %s: %w", path, err)
	}
	p.baud = baud
	return p, nil
}

// Link wraps the port for relaying.
func (p *SerialPort) Link() *Link {
	return &Link{
		ReadWriteCloser: p,
		Name:            "serial " + p.path,
		Break:           p.SendBreak,
		Line:            p,
	}
}

// Baud implements LineControl.
func (p *SerialPort) Baud() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baud
}

// SetBaud implements LineControl.
func (p *SerialPort) SetBaud(baud int) error {
	if err := CheckBaud(baud); err != nil {
		return err
	}
	err := p.control(func(fd int) error {
		t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
		if err != nil {
			return err
		}
		setSpeed(t, baudRates[baud])
		return unix.IoctlSetTermios(fd, unix.TCSETS, t)
	})
	if err != nil {
		return ncerr.WrapTransport("serial "+p.path, "control", err)
	}
	p.mu.Lock()
	p.baud = baud
	p.mu.Unlock()
	return nil
}

// SetRTS implements LineControl.
func (p *SerialPort) SetRTS(on bool) error { return p.setModem(unix.TIOCM_RTS, on) }

// SetDTR implements LineControl.
func (p *SerialPort) SetDTR(on bool) error { return p.setModem(unix.TIOCM_DTR, on) }

// Modem implements LineControl.
func (p *SerialPort) Modem() (rts, dtr bool, err error) {
	var bits int
	err = p.control(func(fd int) error {
		var err error
		bits, err = unix.IoctlGetInt(fd, unix.TIOCMGET)
		return err
	})
	if err != nil {
		return false, false, ncerr.WrapTransport("serial "+p.path, "control", err)
	}
	return bits&unix.TIOCM_RTS != 0, bits&unix.TIOCM_DTR != 0, nil
}

// SendBreak holds the line in break for about a quarter second.
func (p *SerialPort) SendBreak() error {
	return p.control(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCSBRK, 0)
	})
}

func (p *SerialPort) setModem(bit int, on bool) error {
	req := uint(unix.TIOCMBIC)
	if on {
		req = unix.TIOCMBIS
	}
	err := p.control(func(fd int) error {
		return unix.IoctlSetPointerInt(fd, req, bit)
	})
	if err != nil {
		return ncerr.WrapTransport("serial "+p.path, "control", err)
	}
	return nil
}

// control runs fn on the raw descriptor without taking it out of
// non-blocking mode, which File.Fd would do.
func (p *SerialPort) control(fn func(fd int) error) error {
	return withFd(p.File, fn)
}

// makeRaw is cfmakeraw(3) plus CLOCAL and CREAD, with one-byte reads.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

func setSpeed(t *unix.Termios, speed uint32) {
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
}
