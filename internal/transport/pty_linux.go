//go:build linux

package transport

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"ttyrelay/util"
)

// StartPTY runs line through the shell on a fresh pseudo-terminal and
// links the master side.  The child gets the pty as its controlling
// terminal, so job control and line editing work as on a console.
func StartPTY(ctx context.Context, line string, cols, rows uint16, logger *util.Logger) (*Link, error) {
	master, slavePath, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("pty %q: %w", line, err)
	}

	slave, err := os.OpenFile(slavePath, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, fmt.Errorf("open pty slave %s: %w", slavePath, err)
	}

	if cols > 0 && rows > 0 {
		if err := setWindowSize(master, cols, rows); err != nil {
			logger.Debug("pty: set window size: %v", err)
		}
	}

	cmd := shellCommand(ctx, line)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in the child is the slave
	}

	logger.Debug("pty: %s on %s", cmd.String(), slavePath)
	if err := cmd.Start(); err != nil {
		slave.Close()
		master.Close()
		return nil, fmt.Errorf("pty %q: %w", line, err)
	}
	// The child holds its own copies of the slave.
	slave.Close()

	return &Link{
		ReadWriteCloser: util.NewDuplex(master, master, master, reaper(cmd, logger)),
		Name:            "pty " + line,
		Break: func() error {
			// A break on a console interrupts the foreground job.
			_, err := master.Write([]byte{0x03})
			return err
		},
		Resize: func(cols, rows int) error {
			return setWindowSize(master, uint16(cols), uint16(rows))
		},
	}, nil
}

// openPTY allocates a master/slave pair through /dev/ptmx and returns
// the master and the slave's path.
func openPTY() (*os.File, string, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, "", fmt.Errorf("open /dev/ptmx: %w", err)
	}

	var n int
	err = withFd(master, func(fd int) error {
		var err error
		if n, err = unix.IoctlGetInt(fd, unix.TIOCGPTN); err != nil {
			return fmt.Errorf("get pty number (TIOCGPTN): %w", err)
		}
		if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
			return fmt.Errorf("unlock pty slave (TIOCSPTLCK): %w", err)
		}
		return nil
	})
	if err != nil {
		master.Close()
		return nil, "", err
	}
	return master, fmt.Sprintf("/dev/pts/%d", n), nil
}

func setWindowSize(f *os.File, cols, rows uint16) error {
	return withFd(f, func(fd int) error {
		return unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, &unix.Winsize{Col: cols, Row: rows})
	})
}

func withFd(f *os.File, fn func(fd int) error) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var ferr error
	if err := rc.Control(func(fd uintptr) { ferr = fn(int(fd)) }); err != nil {
		return err
	}
	return ferr
}
