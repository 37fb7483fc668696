package relay

import (
	"bytes"
	"errors"
)

var oobAux = []string{AuxOOB}

// HandleEvent implements Handler.  It is installed on the endpoint's
// transport by SetReady and should not need to be called directly,
// except by transports and tests.
func (e *Endpoint) HandleEvent(ev Event) (int, error) {
	if ev.Err != nil {
		e.handleError(ev.Err)
		return 0, nil
	}

	switch ev.Kind {
	case EventRead:
		return e.handleRead(ev), nil
	case EventWriteReady:
		e.handleWriteReady()
		return 0, nil
	}

	if e.peer == nil || !e.peer.ready {
		return 0, nil
	}

	n, err := 0, ErrNotSupported
	if e.sub != nil {
		n, err = e.sub.HandleEvent(e, ev)
	}
	if errors.Is(err, ErrNotSupported) && e.evHook != nil {
		n, err = e.evHook.Event(e, ev)
	}
	return n, err
}

func (e *Endpoint) handleError(err error) {
	if errors.Is(err, ErrRemoteClosed) {
		e.shutdown(true)
		return
	}
	e.Errf("read error: %v", err)
	e.shutdown(false)
}

// handleRead relays as much of ev.Data to the peer as it will take and
// returns the number of bytes consumed.
func (e *Endpoint) handleRead(ev Event) int {
	buf := ev.Data
	if len(buf) == 0 {
		return 0
	}

	if ev.HasAux(AuxOOB) {
		e.metrics.OOBReceived(len(buf))
		if e.oobHook != nil {
			e.oobHook.OOBData(e, buf)
		}
		return len(buf)
	}

	escapePos := -1
	if e.escapeChar >= 0 {
		esc := byte(e.escapeChar)
		if e.inEscape {
			if e.escapePos == 0 && buf[0] == esc {
				// Escape typed twice: send one literal escape.
				e.inEscape = false
				if i := bytes.IndexByte(buf[1:], esc); i >= 0 {
					escapePos = i + 1
					buf = buf[:escapePos]
				}
			} else {
				e.inEscape = e.handleEscapeChar(buf[0])
				return 1
			}
		} else if i := bytes.IndexByte(buf, esc); i >= 0 {
			escapePos = i
			buf = buf[:i]
		}
	}

	e.metrics.BytesRead(len(buf))

	var count int
	peer := e.peer
	if peer != nil && peer.ready {
		n, err := peer.t.Write(buf, nil)
		if err != nil {
			remote := errors.Is(err, ErrRemoteClosed)
			if !remote {
				peer.Errf("write error: %v", err)
			}
			e.shutdown(remote)
			return 0
		}
		count = n
	}
	e.metrics.BytesRelayed(count)

	if count < len(buf) {
		// The peer is full or not there yet.  Stop reading until its
		// write-ready path says the backlog has drained.
		e.metrics.Backpressure()
		e.t.SetReadEnabled(false)
		if peer != nil && peer.ready {
			peer.t.SetWriteEnabled(true)
		}
		return count
	}

	if escapePos >= 0 {
		// Everything before the escape went out; swallow the escape
		// character itself and start a new command.
		count++
		e.inEscape = true
		e.escapePos = 0
	}
	return count
}

// handleWriteReady sends queued out-of-band data first.  Once the queue
// is empty the backlog counts as drained and the peer may read again.
func (e *Endpoint) handleWriteReady() {
	if o := e.oob.front(); o != nil {
		n, err := e.t.Write(o.Data, oobAux)
		if err != nil {
			if e.peer != nil {
				e.peer.Errf("write error: %v", err)
			} else {
				e.Errf("write error: %v", err)
			}
			e.shutdown(false)
			return
		}
		if n >= len(o.Data) {
			e.oob.pop()
			e.metrics.OOBSent()
			e.debugf("oob item sent, %d left", e.oob.len())
			if o.Done != nil {
				o.Done()
			}
		} else {
			o.Data = o.Data[n:]
		}
		return
	}

	if e.peer != nil && e.peer.ready {
		e.peer.t.SetReadEnabled(true)
	}
	e.t.SetWriteEnabled(false)
}
