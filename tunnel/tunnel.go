// Package tunnel manages SSH client connections backed by
// golang.org/x/crypto/ssh.  A connection serves either as a jump host
// that forwards TCP dials, or as a relay target through an interactive
// shell session.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is a connection to a jump host that forwards TCP dials.
type Tunnel interface {
	Connect(ctx context.Context) error
	Dial(ctx context.Context, network, address string) (net.Conn, error)
	Close() error

	// IsAlive reports whether the connection is up.  Done is closed
	// once it has dropped.
	IsAlive() bool
	Done() <-chan struct{}
}

var _ Tunnel = (*SSHClient)(nil)
