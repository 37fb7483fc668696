// Package capability provides the local commands an endpoint offers
// after its escape character.  The relay core handles quit, break and
// the doubled escape itself; everything else is a Capability.  A Set
// stacks capabilities behind one relay.SubHandler and serves the help
// listing for all of them.
package capability

import (
	"errors"
	"fmt"
	"strings"

	"ttyrelay/config"
	"ttyrelay/relay"
)

// Command describes one escape command for the help listing.
type Command struct {
	Key   byte
	Arg   string // argument placeholder for multi-character commands
	Usage string
}

// Capability is a group of escape commands.
type Capability interface {
	relay.SubHandler

	// Commands lists the keys the capability answers to.
	Commands() []Command
}

// builtin are the commands the relay core runs before any capability
// sees a key.
var builtin = []Command{
	{Key: 'q', Usage: "quit"},
	{Key: 'b', Usage: "send a break to the remote side"},
}

// Set routes escape commands to the capability that owns the key.
// Keys are matched case-insensitively by the relay core, so commands
// are registered in lower case.
type Set struct {
	caps  []Capability
	byKey map[byte]Capability
}

var _ relay.SubHandler = (*Set)(nil)

// NewSet combines caps.  When two claim the same key the first wins.
func NewSet(caps ...Capability) *Set {
	s := &Set{byKey: make(map[byte]Capability)}
	for _, c := range caps {
		if c == nil {
			continue
		}
		s.caps = append(s.caps, c)
		for _, cmd := range c.Commands() {
			if _, taken := s.byKey[cmd.Key]; !taken {
				s.byKey[cmd.Key] = c
			}
		}
	}
	return s
}

// Commands lists every command the set answers to, built-ins first.
func (s *Set) Commands() []Command {
	out := append([]Command(nil), builtin...)
	for _, c := range s.caps {
		for _, cmd := range c.Commands() {
			if s.byKey[cmd.Key] == c {
				out = append(out, cmd)
			}
		}
	}
	return out
}

// HandleEscape implements relay.SubHandler.
func (s *Set) HandleEscape(e *relay.Endpoint, c byte) bool {
	if c == 'h' || c == '?' {
		e.Outf("%s", s.help(e.EscapeChar()))
		return false
	}
	if owner, ok := s.byKey[c]; ok {
		return owner.HandleEscape(e, c)
	}
	return false
}

// HandleMulticharEscape implements relay.SubHandler.
func (s *Set) HandleMulticharEscape(e *relay.Endpoint, cmd byte, arg string) {
	if owner, ok := s.byKey[cmd]; ok {
		owner.HandleMulticharEscape(e, cmd, arg)
	}
}

// HandleEvent offers ev to each capability in turn.
func (s *Set) HandleEvent(e *relay.Endpoint, ev relay.Event) (int, error) {
	for _, c := range s.caps {
		n, err := c.HandleEvent(e, ev)
		if !errors.Is(err, relay.ErrNotSupported) {
			return n, err
		}
	}
	return 0, relay.ErrNotSupported
}

func (s *Set) help(escape int) string {
	esc := config.FormatEscape(escape)

	var b strings.Builder
	b.WriteString("\r\nSupported escape sequences:\r\n")
	line := func(keys, usage string) {
		fmt.Fprintf(&b, "  %-14s %s\r\n", keys, usage)
	}
	for _, cmd := range s.Commands() {
		keys := esc + string(cmd.Key)
		if cmd.Arg != "" {
			keys += cmd.Arg + "<CR>"
		}
		line(keys, cmd.Usage)
	}
	line(esc+"h, "+esc+"?", "this help")
	line(esc+esc, "send the escape character itself")
	return b.String()
}
