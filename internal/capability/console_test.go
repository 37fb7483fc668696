package capability

import (
	"strings"
	"testing"
)

func TestConsole_Stats(t *testing.T) {
	r := newRig(t, Console{})
	r.local.SetName("stdio")
	r.remote.SetName("tcp example:23")

	r.typeKeys(t, "hello\x1di")

	out := r.u.out.String()
	for _, want := range []string{"stdio: read 5, relayed 5", "tcp example:23: read 0", "up "} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
	if got := string(r.rt.written); got != "hello" {
		t.Errorf("remote got %q", got)
	}
}

func TestConsole_SendOOB(t *testing.T) {
	r := newRig(t, Console{})
	r.typeKeys(t, "\x1dxhi\\r\r")

	if !r.rt.writeOn {
		t.Fatal("queued out-of-band data should ask the remote for write-ready")
	}
	r.drainRemote()

	if got := string(r.rt.oob); got != "hi\r" {
		t.Errorf("oob = %q, want %q", got, "hi\r")
	}
	if len(r.rt.written) != 0 {
		t.Errorf("normal data %q sent", r.rt.written)
	}
	out := r.u.out.String()
	if !strings.Contains(out, "<hi\\r>") {
		t.Errorf("capture echo missing from %q", out)
	}
	if !strings.Contains(out, "[sent 3 out-of-band bytes]") {
		t.Errorf("completion notice missing from %q", out)
	}
}

func TestConsole_SendOOBQueueFull(t *testing.T) {
	r := newRig(t, Console{})
	r.remote.SetOOBLimit(1)

	r.typeKeys(t, "\x1dxa\r\x1dxb\r")

	if len(r.u.errs) != 1 || !strings.Contains(r.u.errs[0], "queue full") {
		t.Errorf("errs = %q, want one queue-full report", r.u.errs)
	}
	r.drainRemote()
	if got := string(r.rt.oob); got != "a" {
		t.Errorf("oob = %q, want only the first item", got)
	}
}

func TestConsole_Note(t *testing.T) {
	r := newRig(t, Console{})
	r.typeKeys(t, "\x1dnback 5\r")

	if !strings.Contains(r.u.out.String(), "[note] back 5") {
		t.Errorf("out = %q", r.u.out.String())
	}
	if len(r.rt.written)+len(r.rt.oob) != 0 {
		t.Error("a note must stay local")
	}
}

func TestConsole_EmptyArgument(t *testing.T) {
	r := newRig(t, Console{})
	r.typeKeys(t, "\x1dx\r")

	if r.remote.PendingOOB() != 0 {
		t.Error("an empty capture must not queue anything")
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`a\r\n`, "a\r\n"},
		{`\x03`, "\x03"},
		{`say "hi"`, `say "hi"`},
		{`bad\q`, `bad\q`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := unescape(tt.in); got != tt.want {
				t.Errorf("unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
