package transport

import (
	"context"
	"crypto/tls"
	"net"

	ncerr "ttyrelay/internal/errors"
)

// TLSDialer layers a TLS client handshake over another Dialer, so TLS
// works both directly and through an SSH jump host.
type TLSDialer struct {
	Base   Dialer
	Config *tls.Config
}

// Dial connects with the base dialer and completes the handshake before
// returning.  The server name defaults to the host part of address.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	raw, err := d.Base.Dial(ctx, network, address)
	if err != nil {
		return nil, err
	}

	cfg := d.Config.Clone()
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			host = address
		}
		cfg.ServerName = host
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, ncerr.Wrap("handshake", address, err)
	}
	return conn, nil
}

// Close closes the base dialer.
func (d *TLSDialer) Close() error { return d.Base.Close() }
