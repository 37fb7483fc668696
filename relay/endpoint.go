package relay

import (
	"fmt"

	"ttyrelay/internal/metrics"
	"ttyrelay/util"
)

// EscapeDisabled turns escape detection off when passed to New.
const EscapeDisabled = -1

// EscapeCapacity is the longest multi-character command, including the
// command character itself.  Anything typed past it is dropped.
const EscapeCapacity = 10

// Endpoint is one side of a relay.  It borrows its transport and its
// peer: both must outlive the pairing, and neither is freed here.
type Endpoint struct {
	t     Transport
	peer  *Endpoint
	ready bool

	escapeChar int
	inEscape   bool
	escapePos  int
	escapeData [EscapeCapacity + 1]byte

	oob      oobQueue
	oobLimit int

	sub      SubHandler
	subData  any
	user     UserHandler
	userData any
	oobHook  OOBDataHandler
	evHook   EventHandler

	name    string
	metrics *metrics.Collector
	logger  *util.Logger
}

// New creates an unpaired, not-ready endpoint.  escapeChar is the byte
// that starts a local command, or EscapeDisabled.  sub may be nil; user
// is required.  subData and userData are carried for the handlers and
// never inspected.
func New(escapeChar int, sub SubHandler, subData any, user UserHandler, userData any) *Endpoint {
	if escapeChar > 0xff {
		escapeChar = EscapeDisabled
	}
	e := &Endpoint{
		escapeChar: escapeChar,
		sub:        sub,
		subData:    subData,
		user:       user,
		userData:   userData,
	}
	e.oobHook, _ = user.(OOBDataHandler)
	e.evHook, _ = user.(EventHandler)
	return e
}

// Pair makes a and b each other's peer.
func Pair(a, b *Endpoint) {
	a.peer = b
	b.peer = a
}

// SetReady attaches t and starts reading from it.  If the peer is
// already ready its reads are enabled too, since data now has somewhere
// to go.
func (e *Endpoint) SetReady(t Transport) {
	e.t = t
	t.SetHandler(e)
	t.SetReadEnabled(true)
	e.ready = true
	e.metrics.TransportAttached()
	if e.peer != nil && e.peer.ready {
		e.peer.t.SetReadEnabled(true)
	}
	if !e.oob.empty() {
		t.SetWriteEnabled(true)
	}
}

// Ready reports whether a transport is attached.
func (e *Endpoint) Ready() bool { return e.ready }

// Transport returns the attached transport, or nil.
func (e *Endpoint) Transport() Transport { return e.t }

// Peer returns the other endpoint of the pair.
func (e *Endpoint) Peer() *Endpoint { return e.peer }

// SubData returns the opaque value given to New for the SubHandler.
func (e *Endpoint) SubData() any { return e.subData }

// UserData returns the opaque value given to New for the UserHandler.
func (e *Endpoint) UserData() any { return e.userData }

// EscapeChar returns the escape byte, or EscapeDisabled.
func (e *Endpoint) EscapeChar() int { return e.escapeChar }

// InEscape reports whether the bytes read next are taken as a command.
func (e *Endpoint) InEscape() bool { return e.inEscape }

// SetName labels the endpoint in log messages.
func (e *Endpoint) SetName(name string) { e.name = name }

// Name returns the endpoint label.
func (e *Endpoint) Name() string { return e.name }

// SetMetrics attaches a collector; nil disables counting.
func (e *Endpoint) SetMetrics(c *metrics.Collector) { e.metrics = c }

// Metrics returns the attached collector, which may be nil.
func (e *Endpoint) Metrics() *metrics.Collector { return e.metrics }

// SetLogger attaches a logger for debug tracing.
func (e *Endpoint) SetLogger(l *util.Logger) { e.logger = l }

// SetOOBLimit caps the out-of-band queue at n items.  Zero, the
// default, leaves it unbounded.
func (e *Endpoint) SetOOBLimit(n int) {
	if n < 0 {
		n = 0
	}
	e.oobLimit = n
}

// PendingOOB returns the number of queued out-of-band items.
func (e *Endpoint) PendingOOB() int { return e.oob.len() }

// Outf formats a message for the local user.
func (e *Endpoint) Outf(format string, args ...any) {
	e.user.Out(e, fmt.Sprintf(format, args...))
}

// Errf formats an error report for the local user.
func (e *Endpoint) Errf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.metrics.RecordError(msg)
	e.user.Err(e, msg)
}

func (e *Endpoint) out(s string) { e.user.Out(e, s) }

func (e *Endpoint) shutdown(graceful bool) {
	e.debugf("shutdown requested (graceful=%v)", graceful)
	e.user.Shutdown(e, graceful)
}

func (e *Endpoint) debugf(format string, args ...any) {
	if !e.logger.Enabled(util.LogDebug) {
		return
	}
	if e.name != "" {
		format = e.name + ": " + format
	}
	e.logger.Debug(format, args...)
}
