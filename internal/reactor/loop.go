// Package reactor provides the single goroutine on which all relay
// callbacks run.
//
// Transports do their blocking I/O on helper goroutines and hand results
// to the loop with Post.  Everything posted runs in order on the goroutine
// that called Run, so relay state never needs locking.
package reactor

import (
	"context"
	"sync"

	"ttyrelay/util"
)

// Loop is a FIFO task queue drained by one goroutine.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	stop     chan struct{}
	stopOnce sync.Once

	logger *util.Logger
}

// New creates an idle loop.  logger may be nil.
func New(logger *util.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues fn to run on the loop.  It never blocks and is safe to call
// from any goroutine, including the loop itself.  Tasks posted after the
// loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to finish.  It must not be
// called from the loop goroutine.  It returns false if the loop stopped
// before fn ran.
func (l *Loop) Call(fn func()) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-l.stop:
		return false
	}
}

// Run drains the queue until Stop is called or ctx is done.  It returns
// nil after Stop and ctx.Err() on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("reactor: running")
	var batch []func()
	for {
		l.mu.Lock()
		batch, l.queue = l.queue, batch[:0]
		l.mu.Unlock()

		for i, fn := range batch {
			if l.stopped() {
				return nil
			}
			fn()
			batch[i] = nil
		}

		select {
		case <-l.wake:
		case <-l.stop:
			return nil
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop makes Run return after the task in progress.  It is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		l.logger.Debug("reactor: stopped")
	})
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} { return l.stop }

// Pending returns the number of queued tasks not yet started.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) stopped() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}
