package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"ttyrelay/tunnel"
	"ttyrelay/util"
)

// SSHDialer routes connections through an SSH jump host.  The client is
// connected lazily on the first Dial call, reconnected if it dropped,
// and torn down on Close.
type SSHDialer struct {
	client    tunnel.Tunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH jump host.  Nothing is dialed until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		client: tunnel.NewSSHClient(cfg, logger),
		config: cfg,
		logger: logger,
	}
}

// connect establishes the SSH connection if not already up.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.client.IsAlive() {
		return nil
	}

	d.logger.Verbose("connecting to jump host %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	if err := d.client.Connect(ctx); err != nil {
		return fmt.Errorf("jump host: %w", err)
	}

	d.connected = true
	d.logger.Verbose("jump host connected")
	return nil
}

// Dial connects to address through the jump host.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.client.Dial(ctx, network, address)
}

// Close tears down the jump host connection.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.client.Close()
	}
	return nil
}

// OpenSSH connects to the server in cfg and opens a shell as the link.
// The shell's stderr is the link's out-of-band stream and break is an
// RFC 4335 break of breakLen.  Closing the link ends the session and
// the connection.
func OpenSSH(ctx context.Context, cfg *tunnel.SSHConfig, opts tunnel.ShellOptions, breakLen time.Duration, logger *util.Logger) (*Link, error) {
	client := tunnel.NewSSHClient(cfg, logger)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	sh, err := client.OpenShell(opts)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Link{
		ReadWriteCloser: util.NewDuplex(sh, sh, sh, client),
		Name:            fmt.Sprintf("ssh %s@%s", cfg.User, cfg.Addr()),
		Break:           func() error { return sh.Break(breakLen) },
		Stderr:          sh.Stderr(),
		Resize:          sh.Resize,
	}, nil
}
