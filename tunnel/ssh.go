package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "ttyrelay/internal/errors"
	"ttyrelay/util"
)

// DialFunc opens the TCP connection an SSH client runs over.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// SSHConfig holds everything needed to reach an SSH server.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// AllowKeyboardInteractive adds keyboard-interactive auth, answered
	// through Prompt.
	AllowKeyboardInteractive bool

	// KeepAlive is the interval between keepalive@openssh.com requests.
	// Zero disables them.
	KeepAlive time.Duration

	// Dial reaches Host:Port.  Nil dials directly; a jump host's Dial
	// reaches the server through the jump host.
	Dial DialFunc

	// Prompt reads a secret (password, passphrase, keyboard-interactive
	// answer) from the user.  Nil reads from the controlling terminal.
	Prompt func(prompt string, echo bool) (string, error)
}

// Addr returns host:port.
func (c *SSHConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHClient is one SSH connection.  It forwards TCP dials when used as a
// jump host and opens shells when it is the relay target.
type SSHClient struct {
	config *SSHConfig
	client *ssh.Client
	logger *util.Logger
	mu     sync.RWMutex
	alive  bool
	done   chan struct{}
}

// NewSSHClient creates a client that is ready to [SSHClient.Connect].
// logger may be nil.
func NewSSHClient(cfg *SSHConfig, logger *util.Logger) *SSHClient {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHClient{config: cfg, logger: logger}
}

// Connect dials the server and completes the handshake and auth.
func (c *SSHClient) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(c.config)
	if err != nil {
		return ncerr.WrapSSH("auth", c.config.Host, c.config.Port, err)
	}

	hkCallback, err := hostKeyCallback(c.config, c.logger)
	if err != nil {
		return ncerr.WrapSSH("hostkey", c.config.Host, c.config.Port, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         c.config.ConnTimeout,
	}

	addr := c.config.Addr()
	c.logger.Debug("SSH: dialing %s as %s", addr, c.config.User)

	dial := c.config.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: c.config.ConnTimeout}
		dial = d.DialContext
	}
	tcpConn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}

	// The handshake itself ignores ctx; bound it by the deadline.
	if dl, ok := ctx.Deadline(); ok {
		tcpConn.SetDeadline(dl) //nolint:errcheck
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ncerr.ErrTimeout, err)
		}
		return ncerr.WrapSSH("handshake", c.config.Host, c.config.Port, err)
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	client := ssh.NewClient(sshConn, chans, reqs)
	c.logger.Debug("SSH: connected to %s (%s)", addr, sshConn.ServerVersion())

	done := make(chan struct{})
	c.mu.Lock()
	c.client = client
	c.alive = true
	c.done = done
	c.mu.Unlock()

	go c.monitor(client, done)
	if c.config.KeepAlive > 0 {
		go c.keepaliveLoop(client, done, c.config.KeepAlive)
	}
	return nil
}

// Dial forwards a connection through the server.
func (c *SSHClient) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client, err := c.current()
	if err != nil {
		return nil, err
	}

	c.logger.Debug("SSH: forwarding %s %s via %s", network, address, c.config.Host)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s via %s: %w", address, c.config.Host, err)
	}
	return conn, nil
}

// Close shuts down the SSH connection.
func (c *SSHClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.alive = false
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// IsAlive reports whether the connection is still up.
func (c *SSHClient) IsAlive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alive
}

// Done is closed when the connection drops.  Nil before Connect.
func (c *SSHClient) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

func (c *SSHClient) current() (*ssh.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.alive || c.client == nil {
		return nil, ncerr.ErrNotConnected
	}
	return c.client, nil
}

// monitor blocks until the SSH connection closes and flips the alive flag.
func (c *SSHClient) monitor(client *ssh.Client, done chan struct{}) {
	err := client.Wait()

	c.mu.Lock()
	if c.client == client || c.client == nil {
		c.alive = false
	}
	c.mu.Unlock()
	close(done)

	if err != nil {
		c.logger.Debug("SSH connection to %s closed: %v", c.config.Host, err)
	} else {
		c.logger.Debug("SSH connection to %s closed", c.config.Host)
	}
}

// keepaliveLoop sends periodic keep-alive requests and closes the
// connection once one fails, so readers see the loss promptly.
func (c *SSHClient) keepaliveLoop(client *ssh.Client, done <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				c.logger.Warn("SSH keepalive to %s failed: %v", c.config.Host, err)
				client.Close()
				return
			}
			c.logger.Debug("SSH keepalive OK")
		}
	}
}
