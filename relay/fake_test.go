package relay

import (
	"strings"
)

// fakeTransport records everything the relay asks of it.  accept caps
// the bytes taken per Write; a negative value takes everything.
type fakeTransport struct {
	h       Handler
	readOn  bool
	writeOn bool
	accept  int

	written  []byte
	oobSent  [][]byte
	writeErr error

	breaks   int
	breakErr error

	// calls logs interest changes in order, e.g. "read:on", "write:off".
	calls []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{accept: -1}
}

func (f *fakeTransport) SetHandler(h Handler) { f.h = h }

func (f *fakeTransport) Write(p []byte, aux []string) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(p)
	if f.accept >= 0 && n > f.accept {
		n = f.accept
	}
	if hasAux(aux, AuxOOB) {
		f.oobSent = append(f.oobSent, append([]byte(nil), p[:n]...))
		f.calls = append(f.calls, "oob:"+string(p[:n]))
	} else {
		f.written = append(f.written, p[:n]...)
		if n > 0 {
			f.calls = append(f.calls, "data:"+string(p[:n]))
		}
	}
	return n, nil
}

func (f *fakeTransport) SetReadEnabled(on bool) {
	f.readOn = on
	f.calls = append(f.calls, "read:"+onOff(on))
}

func (f *fakeTransport) SetWriteEnabled(on bool) {
	f.writeOn = on
	f.calls = append(f.calls, "write:"+onOff(on))
}

func (f *fakeTransport) SendBreak() error {
	f.breaks++
	return f.breakErr
}

func (f *fakeTransport) resetCalls() { f.calls = nil }

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// fakeUser collects what the relay reports to the user.
type fakeUser struct {
	out       strings.Builder
	errs      []string
	errFrom   []*Endpoint
	shutdowns []bool
}

func (u *fakeUser) Out(_ *Endpoint, s string) { u.out.WriteString(s) }

func (u *fakeUser) Err(e *Endpoint, s string) {
	u.errs = append(u.errs, s)
	u.errFrom = append(u.errFrom, e)
}

func (u *fakeUser) Shutdown(_ *Endpoint, graceful bool) {
	u.shutdowns = append(u.shutdowns, graceful)
}

// hookedUser adds both optional hooks.
type hookedUser struct {
	fakeUser
	oob    [][]byte
	events []Event
}

func (u *hookedUser) OOBData(_ *Endpoint, data []byte) {
	u.oob = append(u.oob, append([]byte(nil), data...))
}

func (u *hookedUser) Event(_ *Endpoint, ev Event) (int, error) {
	u.events = append(u.events, ev)
	return 7, nil
}

type multichar struct {
	cmd byte
	arg string
}

// fakeSub captures on the characters in capture and records the rest.
type fakeSub struct {
	capture  string
	escapes  []byte
	multi    []multichar
	events   []Event
	eventErr error
}

func (s *fakeSub) HandleEscape(_ *Endpoint, c byte) bool {
	s.escapes = append(s.escapes, c)
	return strings.IndexByte(s.capture, c) >= 0
}

func (s *fakeSub) HandleMulticharEscape(_ *Endpoint, cmd byte, arg string) {
	s.multi = append(s.multi, multichar{cmd, arg})
}

func (s *fakeSub) HandleEvent(_ *Endpoint, ev Event) (int, error) {
	s.events = append(s.events, ev)
	if s.eventErr != nil {
		return 0, s.eventErr
	}
	return 1, nil
}

// rig is a paired local/remote relay with fake transports attached.
type rig struct {
	local, remote *Endpoint
	lt, rt        *fakeTransport
	user          *fakeUser
	sub           *fakeSub
}

func newRig(escape int) *rig {
	r := &rig{
		lt:   newFakeTransport(),
		rt:   newFakeTransport(),
		user: &fakeUser{},
		sub:  &fakeSub{capture: "x"},
	}
	r.local = New(escape, r.sub, nil, r.user, nil)
	r.remote = New(EscapeDisabled, nil, nil, r.user, nil)
	Pair(r.local, r.remote)
	r.local.SetReady(r.lt)
	r.remote.SetReady(r.rt)
	r.lt.resetCalls()
	r.rt.resetCalls()
	return r
}

// feed delivers data to e the way a transport does: whatever is not
// consumed is offered again, until nothing is consumed or reads are
// switched off.
func feed(e *Endpoint, t *fakeTransport, data string) string {
	buf := []byte(data)
	for len(buf) > 0 && t.readOn {
		n, _ := e.HandleEvent(Event{Kind: EventRead, Data: buf})
		if n == 0 {
			break
		}
		buf = buf[n:]
	}
	return string(buf)
}

func writeReady(e *Endpoint) {
	e.HandleEvent(Event{Kind: EventWriteReady}) //nolint:errcheck
}
