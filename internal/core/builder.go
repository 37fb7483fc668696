package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"ttyrelay/config"
	ncerr "ttyrelay/internal/errors"
	"ttyrelay/internal/retry"
	"ttyrelay/internal/transport"
	"ttyrelay/tunnel"
	"ttyrelay/util"
)

// Build constructs the relay Mode for cfg.  cfg must have been resolved
// and validated.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	m := &RelayMode{
		Target:       cfg.Target.String(),
		EscapeChar:   cfg.EscapeChar,
		Raw:          cfg.Raw,
		WriteBuffer:  cfg.WriteBuffer,
		OOBLimit:     cfg.OOBLimit,
		FlushTimeout: config.DefaultGracePeriod,
		Stats:        cfg.Stats,
		Logger:       logger,
	}
	if cfg.Retries > 0 {
		m.Retry = buildRetry(cfg, logger)
	}

	open, dialer, err := buildOpener(cfg, logger)
	if err != nil {
		return nil, err
	}
	m.Open, m.Dialer = open, dialer
	return m, nil
}

// ── target openers ───────────────────────────────────────────────────

func buildOpener(cfg *config.Config, logger *util.Logger) (Opener, transport.Dialer, error) {
	t := cfg.Target

	switch t.Scheme {
	case config.SchemeTCP:
		d := buildDialer(cfg, logger)
		return func(ctx context.Context, _, _ int) (*transport.Link, error) {
			return transport.DialLink(ctx, d, "tcp", t.Addr())
		}, d, nil

	case config.SchemeTLS:
		d := &transport.TLSDialer{Base: buildDialer(cfg, logger), Config: buildTLSConfig(cfg)}
		return func(ctx context.Context, _, _ int) (*transport.Link, error) {
			return transport.DialLink(ctx, d, "tls", t.Addr())
		}, d, nil

	case config.SchemeSSH:
		sshCfg := targetSSHConfig(cfg)
		var jump transport.Dialer
		if cfg.TunnelEnabled {
			jump = buildDialer(cfg, logger)
			sshCfg.Dial = jump.Dial
		}
		opts := tunnel.ShellOptions{Command: t.Command}
		if cfg.Raw {
			opts.Term = cfg.SSHTerm
		}
		return func(ctx context.Context, cols, rows int) (*transport.Link, error) {
			o := opts
			o.Cols, o.Rows = cols, rows
			return transport.OpenSSH(ctx, sshCfg, o, config.DefaultBreakDuration, logger)
		}, jump, nil

	case config.SchemeSerial:
		return func(context.Context, int, int) (*transport.Link, error) {
			p, err := transport.OpenSerial(t.Path, t.Baud)
			if err != nil {
				return nil, err
			}
			logger.Verbose("serial %s at %d baud", t.Path, t.Baud)
			return p.Link(), nil
		}, nil, nil

	case config.SchemeExec:
		return func(ctx context.Context, _, _ int) (*transport.Link, error) {
			return transport.StartCommand(ctx, t.Command, logger)
		}, nil, nil

	case config.SchemePTY:
		return func(ctx context.Context, cols, rows int) (*transport.Link, error) {
			return transport.StartPTY(ctx, t.Command, uint16(cols), uint16(rows), logger)
		}, nil, nil
	}

	return nil, nil, &ncerr.ConfigError{
		Field:   "target",
		Value:   cfg.TargetSpec,
		Message: fmt.Sprintf("unsupported target scheme %q", t.Scheme),
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the transport.Dialer network targets are reached
// through: the jump host when one is configured, plain TCP otherwise.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			KeepAlive:     config.DefaultSSHKeepAlive,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

// targetSSHConfig is the client config for an ssh:// target.
func targetSSHConfig(cfg *config.Config) *tunnel.SSHConfig {
	return &tunnel.SSHConfig{
		User:                     cfg.Target.User,
		Host:                     cfg.Target.Host,
		Port:                     cfg.Target.Port,
		KeyPath:                  cfg.SSHKeyPath,
		PromptPass:               cfg.SSHPassword,
		UseAgent:                 cfg.UseSSHAgent,
		StrictHostKey:            cfg.StrictHostKey,
		KnownHosts:               cfg.KnownHostsPath,
		ConnTimeout:              cfg.Timeout,
		KeepAlive:                config.DefaultSSHKeepAlive,
		AllowKeyboardInteractive: true,
	}
}

func buildTLSConfig(cfg *config.Config) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         cfg.TLSServerName,
		InsecureSkipVerify: cfg.TLSInsecure, //nolint:gosec // opt-in via --tls-insecure
	}
}

// buildRetry returns the connect backoff for --retries.  Only network
// failures that may clear up are retried.
func buildRetry(cfg *config.Config, logger *util.Logger) *retry.Backoff {
	b := retry.ForRetries(cfg.Retries, config.DefaultRetryBackoff)
	b.Retryable = ncerr.IsRetryable
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("attempt %d/%d: %v (retrying in %v)",
			attempt, b.MaxAttempts, err, wait.Round(100*time.Millisecond))
	}
	return b
}
