package transport

import (
	"io"
	"sync"
	"time"

	ncerr "ttyrelay/internal/errors"
	"ttyrelay/relay"
	"ttyrelay/util"
)

// DefaultFlushTimeout bounds how long Close waits for queued output.
const DefaultFlushTimeout = 2 * time.Second

// Poster runs functions on the relay's event loop.  *reactor.Loop
// implements it.
type Poster interface {
	Post(fn func())
}

// StreamOptions configures a Stream.  Zero values pick defaults.
type StreamOptions struct {
	// Name labels the stream in errors and logs.
	Name string

	// WriteBuffer is how many bytes of normal output may be queued
	// before Write starts accepting less than it is offered.
	WriteBuffer int

	// Break sends a protocol break.  Nil means the stream has none.
	Break func() error

	// FlushTimeout bounds how long Close waits for queued output.
	FlushTimeout time.Duration

	Logger *util.Logger
}

// Stream adapts a blocking io.ReadWriteCloser to relay.Transport.
//
// A reader goroutine per source and one writer goroutine do the blocking
// I/O; results are posted to the loop, and every relay.Handler call
// happens there.  Unconsumed input stays pending and is offered again
// when reads are re-enabled.  Output is buffered up to WriteBuffer bytes;
// out-of-band output is unbounded and always goes out first.
type Stream struct {
	name         string
	rw           io.ReadWriteCloser
	loop         Poster
	breakFn      func() error
	flushTimeout time.Duration
	logger       *util.Logger

	// Owned by the loop.
	h        relay.Handler
	readOn   bool
	writeOn  bool
	rdPosted bool
	wrPosted bool
	sources  []*source

	// Shared with the writer goroutine.
	mu       sync.Mutex
	cond     *sync.Cond
	out      []byte
	spare    []byte
	oob      []byte
	inflight int
	limit    int
	writeErr error
	stopping bool

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
}

// source is one reader feeding the stream.  Only the primary source
// reports read errors; the others just stop at theirs.
type source struct {
	r       io.Reader
	aux     []string
	primary bool

	// Owned by the loop.
	pending  []byte
	err      error
	held     bool
	finished bool

	resume chan struct{}
}

var _ relay.Transport = (*Stream)(nil)

// NewStream starts moving bytes between rw and the loop.  Nothing is
// delivered until a handler is set and reads are enabled.
func NewStream(rw io.ReadWriteCloser, loop Poster, opts StreamOptions) *Stream {
	if opts.WriteBuffer <= 0 {
		opts.WriteBuffer = util.DefaultBufSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	s := &Stream{
		name:         opts.Name,
		rw:           rw,
		loop:         loop,
		breakFn:      opts.Break,
		flushTimeout: opts.FlushTimeout,
		logger:       opts.Logger,
		limit:        opts.WriteBuffer,
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.writeLoop()
	s.addSource(rw, nil, true)
	return s
}

// AddSource feeds another reader into the stream, tagging its data with
// aux.  A child's stderr added with relay.AuxOOB arrives as out-of-band
// data.  Errors from extra sources end that source only.
func (s *Stream) AddSource(r io.Reader, aux ...string) {
	s.addSource(r, aux, false)
}

func (s *Stream) addSource(r io.Reader, aux []string, primary bool) {
	src := &source{
		r:       r,
		aux:     aux,
		primary: primary,
		resume:  make(chan struct{}, 1),
	}
	s.loop.Post(func() { s.sources = append(s.sources, src) })
	go s.readLoop(src)
}

// Name returns the stream label.
func (s *Stream) Name() string { return s.name }

// ── relay.Transport ──────────────────────────────────────────────────

// SetHandler implements relay.Transport.
func (s *Stream) SetHandler(h relay.Handler) { s.h = h }

// SetReadEnabled implements relay.Transport.  Pending input is offered
// from a fresh loop task, never from inside this call.
func (s *Stream) SetReadEnabled(on bool) {
	s.readOn = on
	if on && !s.rdPosted {
		s.rdPosted = true
		s.loop.Post(func() {
			s.rdPosted = false
			s.deliver()
		})
	}
}

// SetWriteEnabled implements relay.Transport.
func (s *Stream) SetWriteEnabled(on bool) {
	s.writeOn = on
	if on {
		s.postWritable()
	}
}

// Write implements relay.Transport.  It queues what fits and never
// blocks.  A failure of an earlier write is returned here.
func (s *Stream) Write(p []byte, aux []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.stopping {
		return 0, ncerr.ErrClosed
	}

	if hasAux(aux, relay.AuxOOB) {
		s.oob = append(s.oob, p...)
		s.cond.Signal()
		return len(p), nil
	}

	n := s.limit - len(s.out) - s.inflight
	if n <= 0 {
		return 0, nil
	}
	if n > len(p) {
		n = len(p)
	}
	s.out = append(s.out, p[:n]...)
	s.cond.Signal()
	return n, nil
}

// SendBreak implements relay.Transport.
func (s *Stream) SendBreak() error {
	if s.breakFn == nil {
		return ncerr.ErrNotSupported
	}
	if err := s.breakFn(); err != nil {
		return ncerr.WrapTransport(s.name, "break", err)
	}
	return nil
}

// Close stops both directions.  Queued output gets up to FlushTimeout to
// drain before the underlying stream is closed.  It may be called from
// any goroutine and is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		s.cond.Broadcast()
		s.mu.Unlock()
		close(s.done)

		select {
		case <-s.writerDone:
		case <-time.After(s.flushTimeout):
			s.debugf("flush timed out")
		}
		s.closeErr = s.rw.Close()
	})
	return s.closeErr
}

func (s *Stream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ── Reading ──────────────────────────────────────────────────────────

func (s *Stream) readLoop(src *source) {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for {
		n, err := src.r.Read(buf)
		if n == 0 && err == nil {
			continue
		}
		var chunk []byte
		if n > 0 {
			chunk = buf[:n]
		}
		s.loop.Post(func() { s.arrive(src, chunk, err) })

		// The loop borrows buf until it has consumed the chunk.
		select {
		case <-src.resume:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Stream) arrive(src *source, chunk []byte, err error) {
	src.pending = chunk
	src.err = err
	src.held = true
	s.deliverFrom(src)
}

func (s *Stream) deliver() {
	for _, src := range s.sources {
		s.deliverFrom(src)
	}
}

func (s *Stream) deliverFrom(src *source) {
	if s.closed() || s.h == nil {
		return
	}
	for s.readOn && len(src.pending) > 0 {
		n, _ := s.h.HandleEvent(relay.Event{
			Kind: relay.EventRead,
			Data: src.pending,
			Aux:  src.aux,
		})
		if n <= 0 || s.closed() {
			return
		}
		if n > len(src.pending) {
			n = len(src.pending)
		}
		src.pending = src.pending[n:]
	}
	if len(src.pending) > 0 || !src.held {
		return
	}

	if src.err == nil {
		src.held = false
		src.resume <- struct{}{}
		return
	}
	if src.finished || (src.primary && !s.readOn) {
		return
	}
	src.held = false
	src.finished = true
	src.resume <- struct{}{}

	if !src.primary {
		s.debugf("source ended: %v", src.err)
		return
	}
	err := ncerr.WrapTransport(s.name, "read", src.err)
	s.debugf("read ended: %v", err)
	s.h.HandleEvent(relay.Event{Kind: relay.EventRead, Err: err}) //nolint:errcheck
}

// ── Writing ──────────────────────────────────────────────────────────

func (s *Stream) writeLoop() {
	defer close(s.writerDone)

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		for len(s.oob) == 0 && len(s.out) == 0 && !s.stopping {
			s.cond.Wait()
		}
		if len(s.oob) == 0 && len(s.out) == 0 {
			return
		}

		var chunk []byte
		oob := len(s.oob) > 0
		if oob {
			chunk, s.oob = s.oob, nil
		} else {
			chunk, s.out = s.out, s.spare
			s.spare = nil
		}
		s.inflight = len(chunk)
		s.mu.Unlock()

		_, err := s.rw.Write(chunk)

		s.mu.Lock()
		s.inflight = 0
		if !oob {
			s.spare = chunk[:0]
		}
		if err != nil {
			s.writeErr = ncerr.WrapTransport(s.name, "write", err)
			s.out, s.oob = nil, nil
		}
		s.loop.Post(s.postWritable)
		if err != nil {
			return
		}
	}
}

func (s *Stream) hasRoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr != nil || len(s.out)+s.inflight < s.limit
}

func (s *Stream) postWritable() {
	if s.wrPosted || s.closed() {
		return
	}
	s.wrPosted = true
	s.loop.Post(s.writable)
}

// writable delivers write-ready while writes are enabled and there is
// room.  Once the buffer is full the writer goroutine re-arms it.
func (s *Stream) writable() {
	s.wrPosted = false
	if s.closed() || s.h == nil || !s.writeOn || !s.hasRoom() {
		return
	}
	s.h.HandleEvent(relay.Event{Kind: relay.EventWriteReady}) //nolint:errcheck
	if s.writeOn {
		s.postWritable()
	}
}

func (s *Stream) debugf(format string, args ...any) {
	s.logger.Debug(s.name+": "+format, args...)
}

func hasAux(aux []string, tag string) bool {
	for _, a := range aux {
		if a == tag {
			return true
		}
	}
	return false
}
