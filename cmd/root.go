// Package cmd wires up the CLI flags and dispatches to the relay core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ttyrelay/config"
	"ttyrelay/internal/core"
	"ttyrelay/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ttyrelay/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Output streams for help, version and dry-run text.  Tests replace them.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// Execute parses args and runs the relay.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("ttyrelay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── connection ───────────────────────────────────────────────
	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")
	fs.IntVarP(&cfg.Retries, "retries", "R", cfg.Retries, "Extra connect attempts, with exponential backoff")

	// ── relay ────────────────────────────────────────────────────
	fs.StringVarP(&cfg.EscapeSpec, "escape", "e", cfg.EscapeSpec, `Escape character: ^X, 0xNN, a single character, or "none"`)
	fs.BoolVar(&cfg.Raw, "raw", cfg.Raw, "Put the local terminal in raw mode")
	fs.IntVar(&cfg.WriteBuffer, "write-buffer", cfg.WriteBuffer, "Output buffer per side in bytes")
	fs.IntVar(&cfg.OOBLimit, "oob-limit", cfg.OOBLimit, "Max queued out-of-band messages per side (0 = no limit)")

	// ── serial ───────────────────────────────────────────────────
	fs.IntVarP(&cfg.Baud, "baud", "b", cfg.Baud, "Serial line speed when the target gives none")

	// ── SSH ──────────────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "jump", "J", cfg.TunnelSpec, "Reach the target via SSH jump host [user@]host[:port]")
	fs.StringVarP(&cfg.SSHUser, "user", "l", cfg.SSHUser, "SSH user when the target names none")
	fs.StringVarP(&cfg.SSHKeyPath, "ssh-key", "i", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.StringVar(&cfg.SSHTerm, "ssh-term", cfg.SSHTerm, "TERM sent with the remote pty request")

	// ── TLS ──────────────────────────────────────────────────────
	fs.BoolVar(&cfg.TLSInsecure, "tls-insecure", cfg.TLSInsecure, "Skip TLS certificate verification")
	fs.StringVar(&cfg.TLSServerName, "tls-server-name", cfg.TLSServerName, "TLS server name (SNI and verification)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print relay statistics on exit")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration, print the plan and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || (len(args) == 0 && cfg.TargetSpec == "") {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "ttyrelay %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.TargetSpec = rest[0]
	default:
		return fmt.Errorf("expected one target, got %d arguments (quote exec: commands)", len(rest))
	}

	// ── resolve and validate ─────────────────────────────────────
	if err := cfg.Resolve(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose + 1)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(stdout, mode)
		return nil
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `ttyrelay - interactive byte relay v%s

Connects this terminal to a remote endpoint and relays bytes both ways.
Type the escape character (default %s) followed by h for local commands.

Usage:
  ttyrelay [options] <target>

Targets:
  host:port, tcp://host:port                  TCP
  tls://host:port                             TLS
  ssh://[user@]host[:port][/command]          SSH shell or command
  /dev/ttyUSB0, serial:///dev/ttyS0?baud=N    Serial line
  exec:command                                Local command on pipes
  pty:command                                 Local command on a pty

Options:
`, version, config.DefaultEscape)
	fs.SetOutput(stderr)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  ttyrelay router.lab:23                      Telnet-less console
  ttyrelay -b 115200 /dev/ttyUSB0             Serial console
  ttyrelay -J admin@bastion ssh://root@db01   SSH through a jump host
  ttyrelay -e none exec:'python3 -i'          Plain pipe to a command
`)
}
