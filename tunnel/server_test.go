package tunnel

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "relay"
	testPassword = "secret"
)

type ptyRequest struct {
	Term                      string
	Cols, Rows, Width, Height uint32
	Modes                     string
}

type windowChange struct {
	Cols, Rows, Width, Height uint32
}

// testServer is a minimal SSH server: password auth, direct-tcpip
// forwarding, and sessions whose shell echoes stdin.
type testServer struct {
	t       *testing.T
	ln      net.Listener
	hostKey ssh.Signer
	noBreak bool

	ptys    chan ptyRequest
	breaks  chan uint32
	resizes chan windowChange

	mu    sync.Mutex
	conns []net.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	s := &testServer{
		t:       t,
		ln:      ln,
		hostKey: signer,
		ptys:    make(chan ptyRequest, 4),
		breaks:  make(chan uint32, 4),
		resizes: make(chan windowChange, 4),
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	cfg.AddHostKey(signer)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go s.serve(conn, cfg)
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		s.dropAll()
	})
	return s
}

func (s *testServer) host() string { return "127.0.0.1" }

func (s *testServer) port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// config returns a client config that logs in with the test password.
func (s *testServer) config() *SSHConfig {
	return &SSHConfig{
		User:       testUser,
		Host:       s.host(),
		Port:       s.port(),
		PromptPass: true,
		Prompt:     func(string, bool) (string, error) { return testPassword, nil },
	}
}

// dropAll cuts every client connection.
func (s *testServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *testServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go func() {
		for r := range reqs {
			if r.WantReply {
				r.Reply(r.Type == "keepalive@openssh.com", nil) //nolint:errcheck
			}
		}
	}()

	for nc := range chans {
		switch nc.ChannelType() {
		case "session":
			ch, reqs, err := nc.Accept()
			if err != nil {
				continue
			}
			go s.session(ch, reqs)
		case "direct-tcpip":
			s.forward(nc)
		default:
			nc.Reject(ssh.UnknownChannelType, nc.ChannelType()) //nolint:errcheck
		}
	}
}

func (s *testServer) forward(nc ssh.NewChannel) {
	var p struct {
		Host     string
		Port     uint32
		OrigHost string
		OrigPort uint32
	}
	if err := ssh.Unmarshal(nc.ExtraData(), &p); err != nil {
		nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
		return
	}
	target, err := net.Dial("tcp", net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port))))
	if err != nil {
		nc.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
		return
	}
	ch, reqs, err := nc.Accept()
	if err != nil {
		target.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	go func() {
		io.Copy(target, ch) //nolint:errcheck
		target.Close()
	}()
	go func() {
		io.Copy(ch, target) //nolint:errcheck
		ch.Close()
	}()
}

func (s *testServer) session(ch ssh.Channel, reqs <-chan *ssh.Request) {
	exit := func() {
		ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0})) //nolint:errcheck
		ch.Close()
	}

	for r := range reqs {
		switch r.Type {
		case "pty-req":
			var p ptyRequest
			ssh.Unmarshal(r.Payload, &p) //nolint:errcheck
			s.ptys <- p
			r.Reply(true, nil) //nolint:errcheck
		case "shell":
			r.Reply(true, nil) //nolint:errcheck
			go func() {
				io.WriteString(ch.Stderr(), "welcome\n") //nolint:errcheck
				io.Copy(ch, ch)                          //nolint:errcheck
				exit()
			}()
		case "exec":
			var p struct{ Command string }
			ssh.Unmarshal(r.Payload, &p) //nolint:errcheck
			r.Reply(true, nil)           //nolint:errcheck
			go func() {
				io.WriteString(ch, "ran "+p.Command+"\n") //nolint:errcheck
				exit()
			}()
		case "break":
			var p struct{ Length uint32 }
			ssh.Unmarshal(r.Payload, &p) //nolint:errcheck
			if s.noBreak {
				r.Reply(false, nil) //nolint:errcheck
				continue
			}
			s.breaks <- p.Length
			r.Reply(true, nil) //nolint:errcheck
		case "window-change":
			var p windowChange
			ssh.Unmarshal(r.Payload, &p) //nolint:errcheck
			s.resizes <- p
		default:
			if r.WantReply {
				r.Reply(false, nil) //nolint:errcheck
			}
		}
	}
}

// echoServer accepts TCP connections and echoes them.
func echoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				io.Copy(c, c) //nolint:errcheck
				c.Close()
			}()
		}
	}()
	return ln.Addr().String()
}
