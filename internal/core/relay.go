package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ttyrelay/config"
	"ttyrelay/internal/capability"
	"ttyrelay/internal/metrics"
	"ttyrelay/internal/reactor"
	"ttyrelay/internal/retry"
	"ttyrelay/internal/session"
	"ttyrelay/internal/transport"
	"ttyrelay/relay"
	"ttyrelay/util"
)

// ErrAborted is returned by RelayMode.Run when the relay ended because
// of an error rather than a close or a quit command.
var ErrAborted = errors.New("relay aborted")

// Opener opens the remote end of the relay.  cols and rows are the local
// terminal size, or zero when it is unknown.
type Opener func(ctx context.Context, cols, rows int) (*transport.Link, error)

// RelayMode connects the local terminal to a target and relays bytes
// both ways until either side closes or the user quits.
type RelayMode struct {
	Target string // label for logs
	Open   Opener

	// Dialer is closed when Run returns.  May be nil.
	Dialer transport.Dialer

	EscapeChar   int
	Raw          bool
	WriteBuffer  int
	OOBLimit     int
	FlushTimeout time.Duration
	Stats        bool

	// Retry, when set, retries a failed Open.
	Retry *retry.Backoff

	Logger *util.Logger

	// Stdin/Stdout/Stderr default to the process's own when nil.
	// Override in tests for deterministic I/O.
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer

	// Local replaces the terminal as the local end when set.
	Local *transport.Link
}

func (m *RelayMode) stdin() *os.File {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *RelayMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *RelayMode) stderr() io.Writer {
	if m.Stderr != nil {
		return m.Stderr
	}
	return os.Stderr
}

// String describes the run for --dry-run.
func (m *RelayMode) String() string {
	esc := "none"
	if m.EscapeChar != relay.EscapeDisabled {
		esc = config.FormatEscape(m.EscapeChar)
	}
	attempts := 1
	if m.Retry != nil {
		attempts = m.Retry.MaxAttempts
	}
	return fmt.Sprintf("relay stdio <-> %s (escape %s, raw %v, write buffer %d, attempts %d)",
		m.Target, esc, m.Raw, m.WriteBuffer, attempts)
}

// Run opens the target and the local terminal, relays until the relay
// ends and tears both down.  It returns nil after a close or a quit,
// ctx.Err() when ctx ends the relay, and an ErrAborted error when an
// endpoint failed.
func (m *RelayMode) Run(ctx context.Context) error {
	if m.Dialer != nil {
		defer m.Dialer.Close()
	}

	remoteLink, err := m.open(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Target, err)
	}

	localLink, err := m.local()
	if err != nil {
		remoteLink.Close()
		return fmt.Errorf("open terminal: %w", err)
	}

	loop := reactor.New(m.Logger)
	sess := session.New(m.stdout(), m.stderr(), m.Logger, loop.Stop)

	caps := []capability.Capability{capability.Console{}}
	if remoteLink.Line != nil {
		caps = append(caps, &capability.Serial{Line: remoteLink.Line})
	}
	local := relay.New(m.EscapeChar, capability.NewSet(caps...), nil, sess, nil)
	remote := relay.New(relay.EscapeDisabled, nil, nil, sess, nil)
	localStats := m.setup(local, "local")
	remoteStats := m.setup(remote, remoteLink.Name)
	relay.Pair(local, remote)

	opts := transport.StreamOptions{
		WriteBuffer:  m.WriteBuffer,
		FlushTimeout: m.FlushTimeout,
		Logger:       m.Logger,
	}
	localStream := localLink.NewStream(loop, opts)
	remoteStream := remoteLink.NewStream(loop, opts)
	loop.Post(func() {
		local.SetReady(localStream)
		remote.SetReady(remoteStream)
	})

	if m.EscapeChar != relay.EscapeDisabled {
		m.Logger.Info("connected to %s, escape character is %s",
			remoteLink.Name, config.FormatEscape(m.EscapeChar))
	} else {
		m.Logger.Verbose("connected to %s", remoteLink.Name)
	}

	stopResize := m.watchResize(remoteLink)
	runErr := loop.Run(ctx)
	stopResize()

	remoteStream.Close() //nolint:errcheck
	localStream.Close()  //nolint:errcheck

	if m.Stats {
		io.WriteString(m.stderr(), capability.Summary(localStats, remoteStats)) //nolint:errcheck
		m.Logger.Debug("local: %s", localStats.JSON())
		m.Logger.Debug("remote: %s", remoteStats.JSON())
	}

	ended, graceful, by := sess.Result()
	if !ended {
		return runErr
	}
	if !graceful {
		msg := strings.Join(sess.Problems(), "; ")
		if msg == "" {
			msg = by + " failed"
		}
		return fmt.Errorf("%w: %s", ErrAborted, msg)
	}
	m.Logger.Verbose("relay ended by %s", by)
	return nil
}

// setup names e and gives it its own statistics.
func (m *RelayMode) setup(e *relay.Endpoint, name string) *metrics.Collector {
	c := metrics.New(name)
	e.SetName(name)
	e.SetMetrics(c)
	e.SetOOBLimit(m.OOBLimit)
	if m.Logger.Enabled(util.LogDebug) {
		e.SetLogger(m.Logger)
	}
	return c
}

// open opens the target, retrying as configured.
func (m *RelayMode) open(ctx context.Context) (*transport.Link, error) {
	cols, rows := m.termSize()
	m.Logger.Verbose("opening %s", m.Target)

	var link *transport.Link
	attempt := func(int) error {
		l, err := m.Open(ctx, cols, rows)
		if err != nil {
			return err
		}
		link = l
		return nil
	}

	var err error
	if m.Retry != nil {
		err = m.Retry.Do(ctx, attempt)
	} else {
		err = attempt(1)
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

// local returns the local end: Local when set, the terminal otherwise.
func (m *RelayMode) local() (*transport.Link, error) {
	if m.Local != nil {
		return m.Local, nil
	}
	t, err := transport.OpenTerminal(m.stdin(), m.stdout(), m.Raw, m.Logger)
	if err != nil {
		return nil, err
	}
	return t.Link(), nil
}

func (m *RelayMode) termSize() (cols, rows int) {
	if m.Local != nil {
		return 0, 0
	}
	return transport.TerminalSize(m.stdin())
}
