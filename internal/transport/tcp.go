package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	ncerr "ttyrelay/internal/errors"
)

// TCPDialer establishes plain TCP connections, optionally binding to a
// specific source port.
type TCPDialer struct {
	Timeout   time.Duration
	LocalPort int           // optional source-port binding (0 = ephemeral)
	KeepAlive time.Duration // 0 = system default, negative disables
}

// Dial connects to address over TCP.  Interactive traffic is mostly
// single keystrokes, so Nagle's algorithm is turned off.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}

	if d.LocalPort > 0 {
		local := fmt.Sprintf(":%d", d.LocalPort)
		a, err := net.ResolveTCPAddr(network, local)
		if err != nil {
			return nil, fmt.Errorf("resolve local addr: %w", err)
		}
		dialer.LocalAddr = a
	}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true) //nolint:errcheck
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// DialLink dials address with d and wraps the connection in a Link.
func DialLink(ctx context.Context, d Dialer, scheme, address string) (*Link, error) {
	conn, err := d.Dial(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return &Link{
		ReadWriteCloser: conn,
		Name:            scheme + " " + address,
	}, nil
}
