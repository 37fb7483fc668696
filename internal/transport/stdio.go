package transport

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"ttyrelay/util"
)

// Terminal is the local side of the relay: the process's stdin and
// stdout, with stdin optionally in raw mode.
type Terminal struct {
	in  *os.File
	out io.Writer

	mu       sync.Mutex
	oldState *term.State
	logger   *util.Logger
}

// OpenTerminal links in and out.  With raw set and in a terminal, every
// keystroke (including the escape character and ^C) reaches the relay
// unprocessed until Restore or Close.
func OpenTerminal(in *os.File, out io.Writer, raw bool, logger *util.Logger) (*Terminal, error) {
	t := &Terminal{in: in, out: out, logger: logger}
	if raw && term.IsTerminal(int(in.Fd())) {
		st, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return nil, err
		}
		t.oldState = st
		logger.SetRaw(true)
		logger.Debug("terminal: raw mode on")
	}
	return t, nil
}

// TerminalSize returns the width and height of the terminal on f, or
// zeros when f is not a terminal.
func TerminalSize(f *os.File) (cols, rows int) {
	w, h, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0
	}
	return w, h
}

// Read implements io.Reader.
func (t *Terminal) Read(p []byte) (int, error) { return t.in.Read(p) }

// Write implements io.Writer.
func (t *Terminal) Write(p []byte) (int, error) { return t.out.Write(p) }

// Restore leaves raw mode.  It is safe to call more than once.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.oldState == nil {
		return nil
	}
	err := term.Restore(int(t.in.Fd()), t.oldState)
	t.oldState = nil
	t.logger.SetRaw(false)
	t.logger.Debug("terminal: raw mode off")
	return err
}

// Close restores the terminal.  stdin and stdout stay open.
func (t *Terminal) Close() error { return t.Restore() }

// Link wraps the terminal for relaying.
func (t *Terminal) Link() *Link {
	return &Link{ReadWriteCloser: t, Name: "stdio"}
}
