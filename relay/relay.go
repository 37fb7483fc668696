// Package relay joins two I/O endpoints into a bidirectional,
// non-blocking byte relay.
//
// Each side of the relay is an [Endpoint] bound to one [Transport].  The
// endpoint is the transport's only event handler: bytes read from one
// transport are written to the peer's, an escape character followed by a
// command lets the local user act on the relay without those bytes
// reaching the far side, and a per-endpoint out-of-band queue is drained
// ahead of normal traffic.
//
// Flow control is done purely with interest flags.  When a peer accepts
// fewer bytes than it was offered, the source stops reading and the peer
// is asked for a write-ready event; when that event finds nothing left to
// send, the source reads again.
//
// The package is single-threaded: every method must be called from the
// event loop that delivers the transport callbacks.  It never closes a
// transport; teardown happens in the caller after [UserHandler.Shutdown].
package relay

import (
	ncerr "ttyrelay/internal/errors"
)

// AuxOOB tags a read or write as out-of-band data.
const AuxOOB = "oob"

// Errors shared with transports and handlers.
var (
	ErrRemoteClosed = ncerr.ErrRemoteClosed
	ErrNotSupported = ncerr.ErrNotSupported
	ErrOOBQueueFull = ncerr.ErrOOBQueueFull
	ErrNotReady     = ncerr.ErrNotReady
)

// EventKind identifies a transport event.
type EventKind int

const (
	// EventRead carries bytes read from the transport in Event.Data.
	EventRead EventKind = iota
	// EventWriteReady reports that the transport can take more output.
	EventWriteReady
	// EventUser is the first kind free for transport-specific events
	// (modem line changes, window size, protocol negotiation).  These
	// are offered to the handlers rather than interpreted here.
	EventUser EventKind = 100
)

func (k EventKind) String() string {
	switch k {
	case EventRead:
		return "read"
	case EventWriteReady:
		return "write-ready"
	default:
		return "event"
	}
}

// Event is one notification from a transport.  When Err is set the
// event reports a failure and the other fields are meaningless.
type Event struct {
	Kind EventKind
	Err  error
	Data []byte
	Aux  []string
	Code int // transport-specific detail for EventUser kinds
}

// HasAux reports whether tag is present in the event's auxiliary data.
func (ev Event) HasAux(tag string) bool {
	return hasAux(ev.Aux, tag)
}

func hasAux(aux []string, tag string) bool {
	for _, a := range aux {
		if a == tag {
			return true
		}
	}
	return false
}

// Handler receives transport events.  For EventRead the returned count
// is the number of bytes consumed; unconsumed bytes must be delivered
// again on a later read event.
type Handler interface {
	HandleEvent(ev Event) (int, error)
}

// Transport is the capability set the relay needs from one side's I/O.
type Transport interface {
	// SetHandler installs the sole event handler.
	SetHandler(h Handler)

	// Write offers p without blocking and returns how much was
	// accepted, which may be less than len(p).  Passing AuxOOB in aux
	// sends the data out-of-band.
	Write(p []byte, aux []string) (int, error)

	// SetReadEnabled turns read events on or off.
	SetReadEnabled(on bool)

	// SetWriteEnabled turns write-ready events on or off.
	SetWriteEnabled(on bool)

	// SendBreak emits a protocol-level break.  Transports without the
	// notion return ErrNotSupported.
	SendBreak() error
}
