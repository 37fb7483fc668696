package util

import (
	"errors"
	"io"
	"sync"
)

// DefaultBufSize is the standard buffer size for relay I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Duplex joins a separate reader and writer (stdin/stdout, the pipes of a
// child process or of an SSH session) into one io.ReadWriteCloser.
// Close runs every closer once, in order, and joins their errors.
type Duplex struct {
	io.Reader
	io.Writer

	closers []io.Closer
	once    sync.Once
	err     error
}

// NewDuplex returns a Duplex reading from r and writing to w.  The given
// closers run on Close; r and w are not closed unless listed.
func NewDuplex(r io.Reader, w io.Writer, closers ...io.Closer) *Duplex {
	return &Duplex{Reader: r, Writer: w, closers: closers}
}

// Close implements io.Closer.
func (d *Duplex) Close() error {
	d.once.Do(func() {
		var errs []error
		for _, c := range d.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		d.err = errors.Join(errs...)
	})
	return d.err
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

// Close implements io.Closer.
func (f CloserFunc) Close() error { return f() }
