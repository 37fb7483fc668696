package relay

import (
	"errors"
	"reflect"
	"testing"
)

func TestEscape_MulticharCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []multichar
		wantOut string
	}{
		{
			name:    "simple",
			input:   "\x1dxHELLO\r",
			want:    []multichar{{'x', "HELLO"}},
			wantOut: "<HELLO>",
		},
		{
			name:    "line feed ends capture",
			input:   "\x1dxab\n",
			want:    []multichar{{'x', "ab"}},
			wantOut: "<ab>",
		},
		{
			name:    "upper case command",
			input:   "\x1dXok\r",
			want:    []multichar{{'x', "ok"}},
			wantOut: "<ok>",
		},
		{
			name:    "backspace",
			input:   "\x1dxAB\bC\r",
			want:    []multichar{{'x', "AC"}},
			wantOut: "<AB\b \bC>",
		},
		{
			name:    "delete",
			input:   "\x1dxAB\x7fC\r",
			want:    []multichar{{'x', "AC"}},
			wantOut: "<AB\b \bC>",
		},
		{
			name:    "backspace on empty argument",
			input:   "\x1dx\b\bZ\r",
			want:    []multichar{{'x', "Z"}},
			wantOut: "<Z>",
		},
		{
			name:    "empty argument",
			input:   "\x1dx\r",
			want:    nil,
			wantOut: "<>",
		},
		{
			name:    "overflow is truncated",
			input:   "\x1dx0123456789ABC\r",
			want:    []multichar{{'x', "012345678"}},
			wantOut: "<0123456789ABC>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(ctrlBracket)

			if rest := feed(r.local, r.lt, tt.input); rest != "" {
				t.Fatalf("unconsumed %q", rest)
			}

			if !reflect.DeepEqual(r.sub.multi, tt.want) {
				t.Errorf("multichar calls = %v, want %v", r.sub.multi, tt.want)
			}
			if got := r.user.out.String(); got != tt.wantOut {
				t.Errorf("echo = %q, want %q", got, tt.wantOut)
			}
			if len(r.rt.written) != 0 {
				t.Errorf("command bytes relayed: %q", r.rt.written)
			}
			if r.local.InEscape() {
				t.Error("capture should end escape mode")
			}
		})
	}
}

func TestEscape_DataResumesAfterCommand(t *testing.T) {
	r := newRig(ctrlBracket)

	feed(r.local, r.lt, "a\x1dxcmd\rb")

	if got := string(r.rt.written); got != "ab" {
		t.Errorf("relayed %q, want %q", got, "ab")
	}
	if len(r.sub.multi) != 1 {
		t.Errorf("multichar calls = %v", r.sub.multi)
	}
}

func TestEscape_CommandSplitAcrossReads(t *testing.T) {
	r := newRig(ctrlBracket)

	for _, chunk := range []string{"\x1d", "x", "HE", "LLO", "\r"} {
		feed(r.local, r.lt, chunk)
	}

	want := []multichar{{'x', "HELLO"}}
	if !reflect.DeepEqual(r.sub.multi, want) {
		t.Errorf("multichar calls = %v, want %v", r.sub.multi, want)
	}
}

func TestEscape_SingleCharCommand(t *testing.T) {
	r := newRig(ctrlBracket)

	feed(r.local, r.lt, "\x1dIz")

	if !reflect.DeepEqual(r.sub.escapes, []byte{'i'}) {
		t.Errorf("escapes = %q, want [i]", r.sub.escapes)
	}
	if r.user.out.Len() != 0 {
		t.Errorf("non-capturing command echoed %q", r.user.out.String())
	}
	if got := string(r.rt.written); got != "z" {
		t.Errorf("relayed %q, want %q", got, "z")
	}
}

func TestEscape_Break(t *testing.T) {
	r := newRig(ctrlBracket)

	feed(r.local, r.lt, "\x1dB")

	if r.rt.breaks != 1 {
		t.Errorf("breaks on peer = %d, want 1", r.rt.breaks)
	}
	if r.lt.breaks != 0 {
		t.Error("break must go to the peer, not the local side")
	}
	if len(r.sub.escapes) != 0 {
		t.Error("break is not offered to the sub handler")
	}
}

func TestEscape_BreakUnsupported(t *testing.T) {
	r := newRig(ctrlBracket)
	r.rt.breakErr = ErrNotSupported

	feed(r.local, r.lt, "\x1dbok")

	if got := string(r.rt.written); got != "ok" {
		t.Errorf("relayed %q, want %q", got, "ok")
	}
	if len(r.user.errs) != 0 || len(r.user.shutdowns) != 0 {
		t.Error("a failed break is ignored")
	}
}

func TestEscape_PeerNotReady(t *testing.T) {
	lt, rt := newFakeTransport(), newFakeTransport()
	user := &fakeUser{}
	sub := &fakeSub{capture: "x"}
	local := New(ctrlBracket, sub, nil, user, nil)
	remote := New(EscapeDisabled, nil, nil, user, nil)
	Pair(local, remote)
	local.SetReady(lt)
	remote.t = rt

	for _, c := range []string{"\x1d", "b", "\x1d", "x"} {
		local.HandleEvent(Event{Kind: EventRead, Data: []byte(c)}) //nolint:errcheck
	}

	if rt.breaks != 0 {
		t.Error("break sent to a peer that is not ready")
	}
	if len(sub.escapes) != 0 {
		t.Error("commands run while the peer is not ready")
	}
	if local.InEscape() {
		t.Error("ignored command should leave escape mode")
	}

	local.HandleEvent(Event{Kind: EventRead, Data: []byte("\x1d")}) //nolint:errcheck
	local.HandleEvent(Event{Kind: EventRead, Data: []byte("q")})    //nolint:errcheck
	if !reflect.DeepEqual(user.shutdowns, []bool{true}) {
		t.Errorf("quit must work without a peer: %v", user.shutdowns)
	}
}

func TestEscape_NoSubHandler(t *testing.T) {
	lt, rt := newFakeTransport(), newFakeTransport()
	user := &fakeUser{}
	local := New(ctrlBracket, nil, nil, user, nil)
	remote := New(EscapeDisabled, nil, nil, user, nil)
	Pair(local, remote)
	local.SetReady(lt)
	remote.SetReady(rt)

	feed(local, lt, "\x1dxdata")

	if got := string(rt.written); got != "data" {
		t.Errorf("relayed %q, want %q", got, "data")
	}
	if user.out.Len() != 0 {
		t.Errorf("unknown command echoed %q", user.out.String())
	}
}

func TestEscape_CustomCharacter(t *testing.T) {
	r := newRig('~')

	feed(r.local, r.lt, "a\x1db~~c~q")

	if got := string(r.rt.written); got != "a\x1db~c" {
		t.Errorf("relayed %q, want %q", got, "a\x1db~c")
	}
	if !reflect.DeepEqual(r.user.shutdowns, []bool{true}) {
		t.Errorf("shutdowns = %v, want [true]", r.user.shutdowns)
	}
}

func TestEscape_OutOfRangeCharacterDisables(t *testing.T) {
	e := New(0x1234, nil, nil, &fakeUser{}, nil)
	if e.EscapeChar() != EscapeDisabled {
		t.Errorf("EscapeChar() = %d, want disabled", e.EscapeChar())
	}
}

func TestToLower(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{'Q', 'q'},
		{'q', 'q'},
		{'A', 'a'},
		{'Z', 'z'},
		{'@', '@'},
		{'[', '['},
		{'1', '1'},
	}
	for _, tt := range tests {
		if got := toLower(tt.in); got != tt.want {
			t.Errorf("toLower(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

var errBreak = errors.New("break failed")

func TestEscape_BreakErrorIsQuiet(t *testing.T) {
	r := newRig(ctrlBracket)
	r.rt.breakErr = errBreak

	feed(r.local, r.lt, "\x1db")

	if r.rt.breaks != 1 || len(r.user.errs) != 0 {
		t.Errorf("breaks=%d errs=%v", r.rt.breaks, r.user.errs)
	}
}
