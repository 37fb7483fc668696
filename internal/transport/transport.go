// Package transport opens the byte streams at either end of a relay and
// adapts them to relay.Transport.
//
// Openers (TCP, TLS, SSH-tunnelled TCP, serial lines, child processes,
// the local terminal) each produce a Link.  A Link is wrapped in a
// Stream, which runs the blocking I/O on helper goroutines and delivers
// relay events on the event loop.
package transport

import (
	"context"
	"io"
	"net"

	"ttyrelay/relay"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer, a TLS dialer layered on another Dialer, and an
// SSH-tunnelled dialer that routes traffic through a jump host.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}

// Link is an opened endpoint, ready to be wrapped in a Stream.
type Link struct {
	io.ReadWriteCloser

	// Name labels the link in logs and errors.
	Name string

	// Break sends a protocol break.  Nil when the link has none.
	Break func() error

	// Stderr is a secondary output stream (a child's or an SSH
	// session's stderr), delivered as out-of-band data.  May be nil.
	Stderr io.Reader

	// Line is set for serial links.
	Line LineControl

	// Resize reports a new local terminal size to the far end.  Nil
	// when the link has no notion of a window.
	Resize func(cols, rows int) error
}

// NewStream wraps the link in a Stream on loop, carrying over its name,
// break and stderr.
func (l *Link) NewStream(loop Poster, opts StreamOptions) *Stream {
	if opts.Name == "" {
		opts.Name = l.Name
	}
	if opts.Break == nil {
		opts.Break = l.Break
	}
	s := NewStream(l, loop, opts)
	if l.Stderr != nil {
		s.AddSource(l.Stderr, relay.AuxOOB)
	}
	return s
}
