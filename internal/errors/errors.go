// Package errors provides domain-specific error types for ttyrelay.
//
// The relay core resolves every failure through a single shutdown hook,
// so the types here exist mostly to let that hook (and the CLI above it)
// tell an orderly remote close apart from a real I/O failure.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrRemoteClosed is the distinguished "far side hung up" value.
	// Transports report it instead of io.EOF so the relay can map it to
	// a graceful shutdown.
	ErrRemoteClosed = errors.New("remote end closed")

	// ErrNotSupported is returned by event handlers that do not claim
	// an event, and by transports lacking an optional control.
	ErrNotSupported = errors.New("operation not supported")

	// ErrOOBQueueFull is returned when an endpoint's out-of-band queue
	// has reached its configured limit.
	ErrOOBQueueFull = errors.New("out-of-band queue full")

	ErrNotReady        = errors.New("endpoint not ready")
	ErrClosed          = errors.New("transport is closed")
	ErrNotConnected    = errors.New("not connected")
	ErrTimeout         = errors.New("operation timed out")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "handshake", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "session", "shell"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// TransportError ties an I/O failure to the named transport that
// raised it ("stdio", "tcp 10.0.0.1:23", "serial /dev/ttyUSB0").
type TransportError struct {
	Transport string
	Op        string // "read", "write", "break", "control"
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Transport, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// WrapTransport creates a TransportError.  A remote close is passed
// through untouched so errors.Is keeps working on the hot path.
func WrapTransport(name, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsRemoteClose(err) {
		return ErrRemoteClosed
	}
	return &TransportError{Transport: name, Op: op, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRemoteClose reports whether err means the other side closed the
// stream in an orderly way (EOF, closed pipe, reset by peer, EIO on a
// hung-up pty).
func IsRemoteClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRemoteClosed) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EIO)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }
