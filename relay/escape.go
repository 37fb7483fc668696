package relay

// handleEscapeChar feeds one byte typed after the escape character and
// reports whether the endpoint stays in escape mode.
//
// escapePos is zero while waiting for the command character.  Once a
// SubHandler asks for a capture, escapeData[0] holds the command and
// the argument follows it until CR or LF.
func (e *Endpoint) handleEscapeChar(c byte) bool {
	if e.escapePos > 0 {
		return e.captureChar(c)
	}

	c = toLower(c)

	if c == 'q' {
		e.metrics.Escape()
		e.shutdown(true)
		return false
	}

	if e.peer == nil || !e.peer.ready {
		return false
	}

	if c == 'b' {
		e.metrics.Escape()
		e.metrics.Break()
		if err := e.peer.t.SendBreak(); err != nil {
			e.debugf("send break: %v", err)
		}
		return false
	}

	if e.sub == nil {
		return false
	}
	if !e.sub.HandleEscape(e, c) {
		e.metrics.Escape()
		return false
	}
	e.out("<")
	e.escapeData[0] = c
	e.escapePos = 1
	return true
}

func (e *Endpoint) captureChar(c byte) bool {
	switch c {
	case '\r', '\n':
		e.escapeData[e.escapePos] = 0
		if e.escapePos > 1 && e.sub != nil {
			e.metrics.Escape()
			e.sub.HandleMulticharEscape(e, e.escapeData[0],
				string(e.escapeData[1:e.escapePos]))
		}
		e.out(">")
		e.escapePos = 0
		return false

	case '\b', 0x7f:
		if e.escapePos > 1 {
			e.escapePos--
			e.out("\b \b")
		}
		return true
	}

	e.out(string([]byte{c}))
	if e.escapePos < len(e.escapeData)-1 {
		e.escapeData[e.escapePos] = c
		e.escapePos++
	}
	return true
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
