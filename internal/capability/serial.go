package capability

import (
	"strconv"

	"ttyrelay/internal/transport"
	"ttyrelay/relay"
)

// Serial adds line control for a serial target.
//
//	sBAUD    change the line speed
//	r        toggle RTS
//	d        toggle DTR
//	l        show line settings
type Serial struct {
	Line transport.LineControl
}

var _ Capability = (*Serial)(nil)

// Commands implements Capability.
func (s *Serial) Commands() []Command {
	return []Command{
		{Key: 's', Arg: "BAUD", Usage: "set the serial line speed"},
		{Key: 'r', Usage: "toggle RTS"},
		{Key: 'd', Usage: "toggle DTR"},
		{Key: 'l', Usage: "show serial line settings"},
	}
}

// HandleEscape implements relay.SubHandler.
func (s *Serial) HandleEscape(e *relay.Endpoint, c byte) bool {
	switch c {
	case 's':
		return true
	case 'r', 'd':
		s.toggle(e, c)
	case 'l':
		s.show(e)
	}
	return false
}

// HandleMulticharEscape implements relay.SubHandler.
func (s *Serial) HandleMulticharEscape(e *relay.Endpoint, cmd byte, arg string) {
	if cmd != 's' {
		return
	}
	baud, err := strconv.Atoi(arg)
	if err != nil {
		e.Errf("invalid baud rate %q", arg)
		return
	}
	if err := s.Line.SetBaud(baud); err != nil {
		e.Errf("set baud: %v", err)
		return
	}
	e.Outf("\r\n[baud %d]\r\n", baud)
}

// HandleEvent implements relay.SubHandler.
func (s *Serial) HandleEvent(*relay.Endpoint, relay.Event) (int, error) {
	return 0, relay.ErrNotSupported
}

func (s *Serial) toggle(e *relay.Endpoint, c byte) {
	rts, dtr, err := s.Line.Modem()
	if err != nil {
		e.Errf("read modem lines: %v", err)
		return
	}

	name, set, on := "RTS", s.Line.SetRTS, !rts
	if c == 'd' {
		name, set, on = "DTR", s.Line.SetDTR, !dtr
	}
	if err := set(on); err != nil {
		e.Errf("set %s: %v", name, err)
		return
	}
	e.Outf("\r\n[%s %s]\r\n", name, onOff(on))
}

func (s *Serial) show(e *relay.Endpoint) {
	rts, dtr, err := s.Line.Modem()
	if err != nil {
		e.Outf("\r\n[baud %d, modem lines unavailable]\r\n", s.Line.Baud())
		return
	}
	e.Outf("\r\n[baud %d, RTS %s, DTR %s]\r\n", s.Line.Baud(), onOff(rts), onOff(dtr))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
