package relay

// SubHandler extends an endpoint with protocol-specific escape commands
// and events.  It is optional; a nil SubHandler knows no commands.
type SubHandler interface {
	// HandleEscape runs the single-character command c.  Returning true
	// starts a multi-character capture for c, ended by CR or LF.
	HandleEscape(e *Endpoint, c byte) bool

	// HandleMulticharEscape runs a captured command: cmd is the
	// character that started the capture and arg what was typed after
	// it.  It is only called when arg is not empty.
	HandleMulticharEscape(e *Endpoint, cmd byte, arg string)

	// HandleEvent is offered transport events the relay does not know.
	// Return ErrNotSupported to pass the event on.
	HandleEvent(e *Endpoint, ev Event) (int, error)
}

// UserHandler connects an endpoint to the program running the relay.
type UserHandler interface {
	// Out writes s to the local user.
	Out(e *Endpoint, s string)

	// Err reports a problem with e to the local user.
	Err(e *Endpoint, s string)

	// Shutdown asks the caller to tear the relay down.  graceful is
	// false after an I/O error.
	Shutdown(e *Endpoint, graceful bool)
}

// OOBDataHandler is implemented by a UserHandler that wants the
// out-of-band data read by an endpoint.  Without it such data is
// dropped.
type OOBDataHandler interface {
	OOBData(e *Endpoint, data []byte)
}

// EventHandler is implemented by a UserHandler that wants transport
// events no SubHandler claimed.
type EventHandler interface {
	Event(e *Endpoint, ev Event) (int, error)
}

// NopHooks can be embedded in a UserHandler to provide explicit no-op
// versions of the optional hooks.
type NopHooks struct{}

// OOBData discards data.
func (NopHooks) OOBData(*Endpoint, []byte) {}

// Event declines every event.
func (NopHooks) Event(*Endpoint, Event) (int, error) { return 0, ErrNotSupported }
