// Package config defines the runtime configuration for ttyrelay and the
// parsers for its target, escape-character and jump-host specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	ncerr "ttyrelay/internal/errors"
)

// Config holds every tuneable for a single relay session.
type Config struct {
	// ── Target ───────────────────────────────────────────────────────
	TargetSpec string // raw positional argument
	Target     Target
	Timeout    time.Duration // connect timeout
	Retries    int           // extra connect attempts

	// ── Relay ────────────────────────────────────────────────────────
	EscapeSpec  string // raw -e value
	EscapeChar  int    // parsed, or EscapeNone
	Raw         bool   // put the local terminal in raw mode
	WriteBuffer int    // per-transport output buffer in bytes
	OOBLimit    int    // 0 = unbounded

	// ── Serial ───────────────────────────────────────────────────────
	Baud int

	// ── SSH (target and jump host) ───────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -J
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHUser        string // default user for ssh:// targets
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string
	SSHTerm        string // TERM sent with the remote pty request

	// ── TLS ──────────────────────────────────────────────────────────
	TLSInsecure   bool
	TLSServerName string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Stats   bool
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Timeout:     DefaultConnTimeout,
		Retries:     DefaultRetries,
		EscapeSpec:  DefaultEscape,
		EscapeChar:  DefaultEscapeChar,
		Raw:         true,
		WriteBuffer: DefaultWriteBuffer,
		Baud:        DefaultBaud,
		SSHTerm:     DefaultSSHTerm,
	}
}

// Resolve parses the raw specs (target, escape, jump host) into their
// structured fields.  Flags and env are applied before calling it.
func (c *Config) Resolve() error {
	if c.TargetSpec != "" {
		t, err := ParseTarget(c.TargetSpec)
		if err != nil {
			return &ncerr.ConfigError{
				Field:   "target",
				Value:   c.TargetSpec,
				Message: err.Error(),
				Hint:    "use host:port, tls://host:port, ssh://user@host, /dev/ttyUSB0 or exec:command",
			}
		}
		if t.Scheme == SchemeSSH && t.User == "" {
			t.User = c.SSHUser
		}
		if t.Scheme == SchemeSerial && t.Baud == 0 {
			t.Baud = c.Baud
		}
		c.Target = t
	}

	if c.EscapeSpec != "" {
		e, err := ParseEscape(c.EscapeSpec)
		if err != nil {
			return &ncerr.ConfigError{Field: "escape", Value: c.EscapeSpec, Message: err.Error()}
		}
		c.EscapeChar = e
	}

	if c.TunnelSpec != "" {
		user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
		if err != nil {
			return &ncerr.ConfigError{Field: "jump", Value: c.TunnelSpec, Message: err.Error()}
		}
		c.TunnelEnabled = true
		c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	}
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid jump host %q: expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid jump host port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.  It
// expects Resolve to have run.
func (c *Config) Validate() error {
	if c.Target.Scheme == "" {
		return &ncerr.ConfigError{
			Field:   "target",
			Message: "a target is required",
			Hint:    "ttyrelay host:port  (see --help for all target forms)",
		}
	}

	if c.EscapeChar > 0xff || c.EscapeChar < EscapeNone {
		return &ncerr.ConfigError{Field: "escape", Value: c.EscapeChar, Message: "must be a byte value or none"}
	}

	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.Retries < 0 {
		return &ncerr.ConfigError{Field: "retries", Value: c.Retries, Message: "must not be negative"}
	}
	if c.WriteBuffer <= 0 {
		return &ncerr.ConfigError{
			Field:   "write-buffer",
			Value:   c.WriteBuffer,
			Message: "must be positive",
			Hint:    fmt.Sprintf("the default is %d bytes", DefaultWriteBuffer),
		}
	}
	if c.OOBLimit < 0 {
		return &ncerr.ConfigError{Field: "oob-limit", Value: c.OOBLimit, Message: "must not be negative", Hint: "use 0 for no limit"}
	}

	if c.Target.Scheme == SchemeSerial && c.Target.Baud <= 0 {
		return &ncerr.ConfigError{Field: "baud", Value: c.Target.Baud, Message: "must be positive", Hint: "e.g. --baud 115200"}
	}

	if c.TunnelEnabled {
		if !c.Target.Networked() {
			return &ncerr.ConfigError{
				Field:   "jump",
				Value:   c.TunnelSpec,
				Message: fmt.Sprintf("a jump host cannot reach a %s target", c.Target.Scheme),
				Hint:    "jump hosts apply to tcp, tls and ssh targets only",
			}
		}
		if c.TunnelHost == "" {
			return &ncerr.ConfigError{Field: "jump", Message: "jump host is required"}
		}
	}

	if (c.TLSInsecure || c.TLSServerName != "") && c.Target.Scheme != SchemeTLS {
		return &ncerr.ConfigError{
			Field:   "tls-server-name",
			Message: "TLS options need a tls:// target",
			Hint:    "use a tls://host:port target",
		}
	}

	return nil
}
