// Package session is the user side of a relay: it shows endpoint
// messages and out-of-band data to the person at the terminal and
// turns a shutdown request into stopping the event loop.
//
// Sessions decouple the relay from concrete I/O; a test can hand one
// buffers where the CLI hands it the terminal and stderr.
package session

import (
	"io"
	"sync"

	"ttyrelay/relay"
	"ttyrelay/util"
)

// Session implements relay.UserHandler and relay.OOBDataHandler for one
// relay run.
type Session struct {
	Stdout io.Writer // escape command output
	Stderr io.Writer // out-of-band data from either side
	Logger *util.Logger

	stop func()

	mu       sync.Mutex
	ended    bool
	graceful bool
	by       string
	problems []string
}

var (
	_ relay.UserHandler    = (*Session)(nil)
	_ relay.OOBDataHandler = (*Session)(nil)
)

// New creates a Session.  stop is called once, on the first shutdown
// request; it is typically the event loop's Stop.
func New(stdout, stderr io.Writer, logger *util.Logger, stop func()) *Session {
	return &Session{
		Stdout:   stdout,
		Stderr:   stderr,
		Logger:   logger,
		stop:     stop,
		graceful: true,
	}
}

// Out implements relay.UserHandler.
func (s *Session) Out(_ *relay.Endpoint, msg string) {
	io.WriteString(s.Stdout, msg) //nolint:errcheck
}

// Err implements relay.UserHandler.
func (s *Session) Err(e *relay.Endpoint, msg string) {
	s.mu.Lock()
	s.problems = append(s.problems, msg)
	s.mu.Unlock()
	s.Logger.Error("%s: %s", label(e), msg)
}

// OOBData implements relay.OOBDataHandler.
func (s *Session) OOBData(_ *relay.Endpoint, data []byte) {
	if s.Stderr != nil {
		s.Stderr.Write(data) //nolint:errcheck
	}
}

// Shutdown implements relay.UserHandler.  A non-graceful request
// downgrades the result even after a graceful one.
func (s *Session) Shutdown(e *relay.Endpoint, graceful bool) {
	s.mu.Lock()
	first := !s.ended
	s.ended = true
	s.graceful = s.graceful && graceful
	if first {
		s.by = label(e)
	}
	s.mu.Unlock()

	if first {
		s.Logger.Verbose("%s ended the relay (graceful=%v)", label(e), graceful)
		if s.stop != nil {
			s.stop()
		}
	}
}

// Result reports whether a shutdown was requested, whether every
// request was graceful, and which endpoint asked first.
func (s *Session) Result() (ended, graceful bool, by string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended, s.graceful, s.by
}

// Problems returns the error messages reported so far.
func (s *Session) Problems() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.problems...)
}

func label(e *relay.Endpoint) string {
	if e == nil || e.Name() == "" {
		return "relay"
	}
	return e.Name()
}
