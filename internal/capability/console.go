package capability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ttyrelay/internal/metrics"
	"ttyrelay/relay"
)

// Console is the capability every local endpoint carries.
//
//	i        print relay statistics for both sides
//	xTEXT    send TEXT to the remote side ahead of queued data
//	nTEXT    print TEXT as a note on the local output
//
// TEXT accepts Go string escapes (\r, \n, \x03 and so on).
type Console struct{}

var _ Capability = Console{}

// Commands implements Capability.
func (Console) Commands() []Command {
	return []Command{
		{Key: 'i', Usage: "show relay statistics"},
		{Key: 'x', Arg: "TEXT", Usage: "send TEXT to the remote side out of band"},
		{Key: 'n', Arg: "TEXT", Usage: "print TEXT as a local note"},
	}
}

// HandleEscape implements relay.SubHandler.
func (Console) HandleEscape(e *relay.Endpoint, c byte) bool {
	switch c {
	case 'i':
		e.Outf("%s", stats(e))
		return false
	case 'x', 'n':
		return true
	}
	return false
}

// HandleMulticharEscape implements relay.SubHandler.
func (Console) HandleMulticharEscape(e *relay.Endpoint, cmd byte, arg string) {
	text := unescape(arg)
	switch cmd {
	case 'x':
		peer := e.Peer()
		if peer == nil || !peer.Ready() {
			e.Errf("remote side is not connected")
			return
		}
		n := len(text)
		err := peer.SendOOB(&relay.OOB{
			Data: []byte(text),
			Done: func() { e.Outf("\r\n[sent %d out-of-band bytes]\r\n", n) },
		})
		if errors.Is(err, relay.ErrOOBQueueFull) {
			e.Errf("out-of-band queue full (%d pending)", peer.PendingOOB())
		}
	case 'n':
		e.Outf("\r\n[note] %s\r\n", text)
	}
}

// HandleEvent implements relay.SubHandler.
func (Console) HandleEvent(*relay.Endpoint, relay.Event) (int, error) {
	return 0, relay.ErrNotSupported
}

// unescape interprets Go escapes in s, or returns s as typed when it
// does not parse.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	if u, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`); err == nil {
		return u
	}
	return s
}

func stats(e *relay.Endpoint) string {
	var b strings.Builder
	b.WriteString("\r\n")
	side := func(label string, ep *relay.Endpoint) {
		if ep == nil {
			return
		}
		s := ep.Metrics().Snapshot()
		name := ep.Name()
		if name == "" {
			name = label
		}
		fmt.Fprintf(&b, "%s: read %d, relayed %d, stalls %d, oob %d/%d sent, oob in %d, escapes %d, breaks %d, errors %d\r\n",
			name, s.BytesRead, s.BytesRelayed, s.Stalls, s.OOBSent, s.OOBQueued,
			s.OOBReceived, s.Escapes, s.Breaks, s.ErrorsTotal)
		if s.LastErrorMessage != "" {
			fmt.Fprintf(&b, "  last error: %s\r\n", s.LastErrorMessage)
		}
	}
	side("local", e)
	side("remote", e.Peer())
	if up := e.Metrics().Snapshot().Uptime; up != "" {
		fmt.Fprintf(&b, "up %s\r\n", up)
	}
	return b.String()
}

// Summary formats the exit statistics for the given collectors.
func Summary(cs ...*metrics.Collector) string {
	var b strings.Builder
	for _, c := range cs {
		if c == nil {
			continue
		}
		s := c.Snapshot()
		fmt.Fprintf(&b, "%s: %d bytes read, %d relayed, %d stalls, %d oob sent, %d errors\n",
			s.Name, s.BytesRead, s.BytesRelayed, s.Stalls, s.OOBSent, s.ErrorsTotal)
	}
	return b.String()
}
