package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultEscape is the escape character as shown in help text.
	DefaultEscape = "^]"

	// DefaultEscapeChar is DefaultEscape as a byte value (GS, 0x1d).
	DefaultEscapeChar = 0x1d

	// DefaultConnTimeout is the TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetries is how many extra connect attempts are made.
	DefaultRetries = 0

	// DefaultRetryBackoff caps the exponential backoff between connect
	// attempts.
	DefaultRetryBackoff = 10 * time.Second

	// DefaultWriteBuffer is the per-transport output buffer.  Once it
	// is full the relay stops reading the other side.
	DefaultWriteBuffer = 64 * 1024

	// DefaultBaud is the serial line speed when none is given.
	DefaultBaud = 9600

	// DefaultSSHKeepAlive is the interval between SSH keepalive requests.
	DefaultSSHKeepAlive = 30 * time.Second

	// DefaultSSHTerm is the TERM value sent with the remote pty request.
	DefaultSSHTerm = "xterm"

	// DefaultBreakDuration is how long a break condition is held.
	DefaultBreakDuration = 250 * time.Millisecond

	// DefaultGracePeriod is how long teardown waits for queued output.
	DefaultGracePeriod = 2 * time.Second
)
