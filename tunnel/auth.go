package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	ncerr "ttyrelay/internal/errors"
	"ttyrelay/util"
)

// BuildAuthMethods assembles an ordered list of SSH authentication
// methods from the configuration.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	prompt := cfg.prompter()

	// 1. Explicit key file
	if cfg.KeyPath != "" {
		m, err := publicKeyAuth(cfg.KeyPath, prompt)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		methods = append(methods, m)
	}

	// 2. SSH agent (explicit flag)
	if cfg.UseAgent {
		m, err := agentAuth()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, m)
	}

	// 3. Password, asked for only when the server gets that far.
	if cfg.PromptPass {
		who := fmt.Sprintf("%s@%s's password: ", cfg.User, cfg.Host)
		methods = append(methods, ssh.RetryableAuthMethod(ssh.PasswordCallback(func() (string, error) {
			return prompt(who, false)
		}), 3))
	}

	// 4. Fallback: try agent + common key files automatically.
	if len(methods) == 0 {
		methods = defaultAuthMethods(prompt)
	}

	if cfg.AllowKeyboardInteractive {
		methods = append(methods, ssh.KeyboardInteractive(keyboardInteractive(prompt)))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no methods available, use --ssh-key, --ssh-password or --ssh-agent",
			ncerr.ErrAuthFailed)
	}
	return methods, nil
}

// prompter returns cfg.Prompt or the terminal prompt.
func (c *SSHConfig) prompter() func(string, bool) (string, error) {
	if c.Prompt != nil {
		return c.Prompt
	}
	return terminalPrompt
}

// terminalPrompt asks on stderr and reads the answer from stdin, without
// echo unless echo is set.
func terminalPrompt(prompt string, echo bool) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if echo || !term.IsTerminal(fd) {
		var line string
		_, err := fmt.Fscanln(os.Stdin, &line)
		return line, err
	}
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(pass), nil
}

// ── individual auth builders ─────────────────────────────────────────

func publicKeyAuth(keyPath string, prompt func(string, bool) (string, error)) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	switch {
	case errors.As(err, &missing):
		pass, perr := prompt(fmt.Sprintf("Enter passphrase for %s: ", keyPath), false)
		if perr != nil {
			return nil, fmt.Errorf("reading passphrase: %w", perr)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(pass))
		if err != nil {
			return nil, fmt.Errorf("decrypting key: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("parsing key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// keyboardInteractive answers each challenge through prompt.
func keyboardInteractive(prompt func(string, bool) (string, error)) ssh.KeyboardInteractiveChallenge {
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		if instruction != "" {
			fmt.Fprintln(os.Stderr, instruction)
		}
		answers := make([]string, len(questions))
		for i, q := range questions {
			a, err := prompt(q, echos[i])
			if err != nil {
				return nil, err
			}
			answers[i] = a
		}
		return answers, nil
	}
}

// defaultAuthMethods tries the agent and the three most common
// unencrypted key files without any explicit user configuration.
func defaultAuthMethods(prompt func(string, bool) (string, error)) []ssh.AuthMethod {
	var out []ssh.AuthMethod

	// Agent
	if m, err := agentAuth(); err == nil {
		out = append(out, m)
	}

	// Common key names
	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		p := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if m, err := publicKeyAuth(p, prompt); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// ── host-key verification ────────────────────────────────────────────

// hostKeyCallback checks known_hosts in strict mode.  Otherwise every key
// is accepted and its fingerprint logged.
func hostKeyCallback(cfg *SSHConfig, logger *util.Logger) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			logger.Verbose("host key for %s not verified: %s %s",
				hostname, key.Type(), ssh.FingerprintSHA256(key))
			return nil
		}, nil
	}

	khFile := cfg.KnownHosts
	if khFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		khFile = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(khFile)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", khFile, err)
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := cb(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) {
			if len(keyErr.Want) > 0 {
				return fmt.Errorf("%s presented %s, known_hosts disagrees: %w",
					hostname, ssh.FingerprintSHA256(key), ncerr.ErrHostKeyMismatch)
			}
			return fmt.Errorf("%s (%s) is not in %s", hostname, ssh.FingerprintSHA256(key), khFile)
		}
		return err
	}, nil
}
