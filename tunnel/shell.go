package tunnel

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "ttyrelay/internal/errors"
)

// ShellOptions describes the remote session a relay opens.
type ShellOptions struct {
	Term       string // TERM for the pty request; empty requests no pty
	Cols, Rows int
	Command    string // run instead of the login shell when set
}

// Shell is an interactive session on an SSHClient.  Its stdin and
// stdout form the byte stream; stderr is kept apart.
type Shell struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	stderr  io.Reader

	closeOnce sync.Once
	closeErr  error
}

// OpenShell starts a session, with a pty when opts.Term is set.
func (c *SSHClient) OpenShell(opts ShellOptions) (*Shell, error) {
	client, err := c.current()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, ncerr.WrapSSH("session", c.config.Host, c.config.Port, err)
	}
	sh := &Shell{session: session}

	fail := func(op string, err error) (*Shell, error) {
		session.Close()
		return nil, ncerr.WrapSSH(op, c.config.Host, c.config.Port, err)
	}

	if sh.stdin, err = session.StdinPipe(); err != nil {
		return fail("session", err)
	}
	if sh.stdout, err = session.StdoutPipe(); err != nil {
		return fail("session", err)
	}
	if sh.stderr, err = session.StderrPipe(); err != nil {
		return fail("session", err)
	}

	if opts.Term != "" {
		cols, rows := opts.Cols, opts.Rows
		if cols <= 0 || rows <= 0 {
			cols, rows = 80, 24
		}
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 38400,
			ssh.TTY_OP_OSPEED: 38400,
		}
		if err := session.RequestPty(opts.Term, rows, cols, modes); err != nil {
			return fail("pty-req", err)
		}
	}

	if opts.Command != "" {
		c.logger.Debug("SSH: exec %q on %s", opts.Command, c.config.Host)
		err = session.Start(opts.Command)
	} else {
		c.logger.Debug("SSH: shell on %s", c.config.Host)
		err = session.Shell()
	}
	if err != nil {
		return fail("shell", err)
	}
	return sh, nil
}

// Read reads the session's stdout.
func (s *Shell) Read(p []byte) (int, error) { return s.stdout.Read(p) }

// Write writes to the session's stdin.
func (s *Shell) Write(p []byte) (int, error) { return s.stdin.Write(p) }

// Stderr is the session's extended data stream.
func (s *Shell) Stderr() io.Reader { return s.stderr }

// Break asks the server to send a break of length d to the session
// (RFC 4335).  ErrNotSupported means the server refused it.
func (s *Shell) Break(d time.Duration) error {
	payload := ssh.Marshal(struct{ Length uint32 }{uint32(d / time.Millisecond)})
	ok, err := s.session.SendRequest("break", true, payload)
	if err != nil {
		return fmt.Errorf("break: %w", err)
	}
	if !ok {
		return fmt.Errorf("break: %w", ncerr.ErrNotSupported)
	}
	return nil
}

// Resize reports a new terminal size to the server.
func (s *Shell) Resize(cols, rows int) error {
	return s.session.WindowChange(rows, cols)
}

// Wait blocks until the remote command exits.
func (s *Shell) Wait() error { return s.session.Wait() }

// Close sends EOF on stdin and closes the session.
func (s *Shell) Close() error {
	s.closeOnce.Do(func() {
		s.stdin.Close()
		err := s.session.Close()
		if errors.Is(err, io.EOF) {
			err = nil
		}
		s.closeErr = err
	})
	return s.closeErr
}
