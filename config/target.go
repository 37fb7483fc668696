package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ttyrelay/util"
)

// Scheme names the kind of remote endpoint.
type Scheme string

const (
	SchemeTCP    Scheme = "tcp"
	SchemeTLS    Scheme = "tls"
	SchemeSSH    Scheme = "ssh"
	SchemeSerial Scheme = "serial"
	SchemeExec   Scheme = "exec"
	SchemePTY    Scheme = "pty"
)

// Target is the parsed remote endpoint.
type Target struct {
	Scheme  Scheme
	User    string // ssh only
	Host    string
	Port    int
	Path    string // serial device
	Baud    int    // serial ?baud=, 0 if not given
	Command string // exec/pty command line, or remote ssh command
}

// ParseTarget accepts:
//
//	host:port                     tcp
//	tcp://host:port
//	tls://host:port
//	ssh://[user@]host[:port][/command]
//	/dev/ttyUSB0                  serial
//	serial:///dev/ttyUSB0?baud=115200
//	exec:command args...
//	pty:command args...
func ParseTarget(spec string) (Target, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Target{}, fmt.Errorf("empty target")
	}

	for _, s := range []Scheme{SchemeExec, SchemePTY} {
		if cmd, ok := strings.CutPrefix(spec, string(s)+":"); ok {
			cmd = strings.TrimSpace(cmd)
			if cmd == "" {
				return Target{}, fmt.Errorf("%s target needs a command", s)
			}
			return Target{Scheme: s, Command: cmd}, nil
		}
	}

	if strings.HasPrefix(spec, "/") {
		return Target{Scheme: SchemeSerial, Path: spec}, nil
	}

	if !strings.Contains(spec, "://") && !strings.HasPrefix(spec, "serial:") {
		return parseHostPort(SchemeTCP, spec, 0)
	}

	u, err := url.Parse(spec)
	if err != nil {
		return Target{}, fmt.Errorf("invalid target %q: %w", spec, err)
	}

	switch Scheme(u.Scheme) {
	case SchemeTCP, SchemeTLS:
		if u.User != nil || (u.Path != "" && u.Path != "/") {
			return Target{}, fmt.Errorf("%s target takes only host:port, got %q", u.Scheme, spec)
		}
		return parseHostPort(Scheme(u.Scheme), u.Host, 0)

	case SchemeSSH:
		t, err := parseHostPort(SchemeSSH, u.Host, DefaultSSHPort)
		if err != nil {
			return Target{}, err
		}
		if u.User != nil {
			t.User = u.User.Username()
		}
		t.Command = strings.TrimPrefix(u.Path, "/")
		return t, nil

	case SchemeSerial:
		t := Target{Scheme: SchemeSerial, Path: u.Path}
		if t.Path == "" {
			t.Path = u.Opaque
		}
		if t.Path == "" {
			return Target{}, fmt.Errorf("serial target needs a device path")
		}
		if b := u.Query().Get("baud"); b != "" {
			t.Baud, err = strconv.Atoi(b)
			if err != nil || t.Baud <= 0 {
				return Target{}, fmt.Errorf("invalid baud rate %q", b)
			}
		}
		return t, nil
	}

	return Target{}, fmt.Errorf("unknown target scheme %q", u.Scheme)
}

func parseHostPort(scheme Scheme, hostport string, defPort int) (Target, error) {
	host, port, err := util.SplitAddr(hostport, defPort)
	if err != nil {
		return Target{}, fmt.Errorf("%s target: %w", scheme, err)
	}
	if port == 0 {
		return Target{}, fmt.Errorf("%s target needs a port, e.g. %s:23", scheme, host)
	}
	return Target{Scheme: scheme, Host: host, Port: port}, nil
}

// Addr returns host:port for network targets.
func (t Target) Addr() string {
	return util.FormatAddr(t.Host, t.Port)
}

// Networked reports whether the target is reached over TCP, and so can
// go through an SSH jump host.
func (t Target) Networked() bool {
	switch t.Scheme {
	case SchemeTCP, SchemeTLS, SchemeSSH:
		return true
	}
	return false
}

// String renders the target in its canonical form.
func (t Target) String() string {
	switch t.Scheme {
	case SchemeExec, SchemePTY:
		return string(t.Scheme) + ":" + t.Command
	case SchemeSerial:
		s := "serial://" + t.Path
		if t.Baud > 0 {
			s += "?baud=" + strconv.Itoa(t.Baud)
		}
		return s
	case SchemeSSH:
		s := "ssh://"
		if t.User != "" {
			s += t.User + "@"
		}
		s += t.Addr()
		if t.Command != "" {
			s += "/" + t.Command
		}
		return s
	case "":
		return ""
	}
	return string(t.Scheme) + "://" + t.Addr()
}
