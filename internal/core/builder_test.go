package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ttyrelay/config"
	ncerr "ttyrelay/internal/errors"
	"ttyrelay/internal/transport"
	"ttyrelay/util"
)

// testConfig resolves and validates a config for target.
func testConfig(t *testing.T, target string, extra ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TargetSpec = target
	cfg.Raw = false
	cfg.Timeout = 2 * time.Second
	if len(extra) > 0 {
		cfg.TunnelSpec = extra[0]
	}
	if err := cfg.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func TestBuild_Targets(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		jump       string
		wantTarget string
		wantDialer string
	}{
		{"tcp", "example.com:23", "", "tcp://example.com:23", "*transport.TCPDialer"},
		{"tcp via jump", "example.com:23", "admin@bastion", "tcp://example.com:23", "*transport.SSHDialer"},
		{"tls", "tls://example.com:992", "", "tls://example.com:992", "*transport.TLSDialer"},
		{"ssh", "ssh://root@router", "", "ssh://root@router:22", ""},
		{"ssh via jump", "ssh://root@router", "bastion:2222", "ssh://root@router:22", "*transport.SSHDialer"},
		{"serial", "/dev/ttyUSB0", "", "serial:///dev/ttyUSB0?baud=9600", ""},
		{"exec", "exec:cat", "", "exec:cat", ""},
		{"pty", "pty:bash -l", "", "pty:bash -l", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.target)
			if tt.jump != "" {
				cfg = testConfig(t, tt.target, tt.jump)
			}

			mode, err := Build(cfg, util.NewLogger(0))
			if err != nil {
				t.Fatal(err)
			}
			m, ok := mode.(*RelayMode)
			if !ok {
				t.Fatalf("expected *RelayMode, got %T", mode)
			}
			if m.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", m.Target, tt.wantTarget)
			}
			if m.Open == nil {
				t.Error("no opener")
			}
			if got := typeName(m.Dialer); got != tt.wantDialer {
				t.Errorf("Dialer = %s, want %s", got, tt.wantDialer)
			}
			if m.Retry != nil {
				t.Error("no retries were asked for")
			}
		})
	}
}

func typeName(d transport.Dialer) string {
	switch d.(type) {
	case nil:
		return ""
	case *transport.TCPDialer:
		return "*transport.TCPDialer"
	case *transport.TLSDialer:
		return "*transport.TLSDialer"
	case *transport.SSHDialer:
		return "*transport.SSHDialer"
	}
	return "unknown"
}

func TestBuild_Retries(t *testing.T) {
	cfg := testConfig(t, "example.com:23")
	cfg.Retries = 3

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	b := mode.(*RelayMode).Retry
	if b == nil {
		t.Fatal("Retry not set")
	}
	if b.MaxAttempts != 4 {
		t.Errorf("MaxAttempts = %d, want 4", b.MaxAttempts)
	}
	if b.MaxDelay != config.DefaultRetryBackoff {
		t.Errorf("MaxDelay = %v", b.MaxDelay)
	}
	if b.Retryable(errors.New("bad key")) {
		t.Error("a plain error must not be retried")
	}
}

func TestBuild_UnknownScheme(t *testing.T) {
	cfg := config.Default()
	cfg.Target = config.Target{Scheme: "gopher", Host: "example.com", Port: 70}

	_, err := Build(cfg, util.NewLogger(0))
	var cfgErr *ncerr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if cfgErr.Field != "target" {
		t.Errorf("Field = %q", cfgErr.Field)
	}
}

func TestBuild_TLSConfig(t *testing.T) {
	cfg := testConfig(t, "tls://example.com:992")
	cfg.TLSInsecure = true
	cfg.TLSServerName = "console.example.net"

	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	d := mode.(*RelayMode).Dialer.(*transport.TLSDialer)
	if !d.Config.InsecureSkipVerify || d.Config.ServerName != "console.example.net" {
		t.Errorf("tls config = insecure %v, server name %q", d.Config.InsecureSkipVerify, d.Config.ServerName)
	}
}

func TestRelayMode_String(t *testing.T) {
	cfg := testConfig(t, "example.com:23")
	cfg.Retries = 2
	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatal(err)
	}
	s := mode.(*RelayMode).String()
	for _, want := range []string{"tcp://example.com:23", "escape ^]", "attempts 3"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}

	cfg.EscapeChar = config.EscapeNone
	mode, _ = Build(cfg, util.NewLogger(0))
	if s := mode.(*RelayMode).String(); !strings.Contains(s, "escape none") {
		t.Errorf("String() = %q, want escape none", s)
	}
}
