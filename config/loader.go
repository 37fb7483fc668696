package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every supported variable name.
const EnvPrefix = "TTYRELAY_"

// ── Environment variable mapping ─────────────────────────────────────
//
// Boolean values accept "1", "true", "yes" and "0", "false", "no"
// (case-insensitive); anything else leaves the field alone.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := env("TARGET"); v != "" {
		cfg.TargetSpec = v
	}
	if v := envInt("TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v, ok := envIntOK("RETRIES"); ok && v >= 0 {
		cfg.Retries = v
	}

	// Relay
	if v := env("ESCAPE"); v != "" {
		cfg.EscapeSpec = v
	}
	if b, ok := envBool("RAW"); ok {
		cfg.Raw = b
	}
	if v := envInt("WRITE_BUFFER"); v > 0 {
		cfg.WriteBuffer = v
	}
	if v, ok := envIntOK("OOB_LIMIT"); ok && v >= 0 {
		cfg.OOBLimit = v
	}

	// Serial
	if v := envInt("BAUD"); v > 0 {
		cfg.Baud = v
	}

	// SSH
	if v := env("JUMP"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := env("SSH_USER"); v != "" {
		cfg.SSHUser = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if b, ok := envBool("SSH_PASSWORD"); ok {
		cfg.SSHPassword = b
	}
	if b, ok := envBool("SSH_AGENT"); ok {
		cfg.UseSSHAgent = b
	}
	if b, ok := envBool("STRICT_HOSTKEY"); ok {
		cfg.StrictHostKey = b
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v := env("SSH_TERM"); v != "" {
		cfg.SSHTerm = v
	}

	// TLS
	if b, ok := envBool("TLS_INSECURE"); ok {
		cfg.TLSInsecure = b
	}
	if v := env("TLS_SERVER_NAME"); v != "" {
		cfg.TLSServerName = v
	}

	// Output
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if b, ok := envBool("STATS"); ok {
		cfg.Stats = b
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) int {
	n, _ := envIntOK(key)
	return n
}

func envIntOK(key string) (int, bool) {
	v := env(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (value, ok bool) {
	switch strings.ToLower(env(key)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
