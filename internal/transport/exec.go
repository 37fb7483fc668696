package transport

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"ttyrelay/util"
)

// shellCommand runs line through the system shell.
func shellCommand(ctx context.Context, line string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd.exe", "/C", line)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", line)
}

// StartCommand runs line through the shell with its stdin and stdout as
// the link's byte stream.  Its stderr becomes the link's out-of-band
// stream.  Closing the link closes stdin, then kills the child if it
// has not exited.
func StartCommand(ctx context.Context, line string, logger *util.Logger) (*Link, error) {
	cmd := shellCommand(ctx, line)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", line, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", line, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", line, err)
	}

	logger.Debug("exec: %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec %q: %w", line, err)
	}

	return &Link{
		ReadWriteCloser: util.NewDuplex(stdout, stdin, stdin, reaper(cmd, logger)),
		Name:            "exec " + line,
		Stderr:          stderr,
	}, nil
}

// reaper stops cmd if it is still running and waits for it.  A child
// that ignores SIGTERM is killed after killGrace.
func reaper(cmd *exec.Cmd, logger *util.Logger) util.CloserFunc {
	return func() error {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		var err error
		select {
		case err = <-done:
		case <-time.After(reapDelay):
			cmd.Process.Signal(syscall.SIGTERM) //nolint:errcheck
			select {
			case err = <-done:
			case <-time.After(killGrace):
				cmd.Process.Kill() //nolint:errcheck
				err = <-done
			}
		}

		logger.Debug("exec: %s exited: %v", cmd.Path, err)
		if isSignalExit(err) {
			return nil
		}
		return err
	}
}

const (
	reapDelay = 100 * time.Millisecond
	killGrace = 2 * time.Second
)

// isSignalExit reports whether err is the child dying from SIGTERM or
// SIGKILL, which is how teardown ends it.
func isSignalExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() &&
		(status.Signal() == syscall.SIGTERM || status.Signal() == syscall.SIGKILL)
}
