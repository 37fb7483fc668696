package relay

// OOB is one out-of-band buffer waiting to be written.  Data shrinks as
// partial writes go through; Done, if set, runs once the last byte has
// been accepted by the transport.
type OOB struct {
	Data []byte
	Done func()
}

// oobQueue is a FIFO of pending OOB items.  Only the head is ever being
// written.
type oobQueue struct {
	items []*OOB
	head  int
}

func (q *oobQueue) len() int    { return len(q.items) - q.head }
func (q *oobQueue) empty() bool { return q.len() == 0 }

func (q *oobQueue) push(o *OOB) {
	q.items = append(q.items, o)
}

func (q *oobQueue) front() *OOB {
	if q.empty() {
		return nil
	}
	return q.items[q.head]
}

func (q *oobQueue) pop() {
	if q.empty() {
		return
	}
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 32 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
}

// SendOOB queues o on this endpoint's transport and asks for a
// write-ready event, so it goes out before any normal relay traffic
// resumes.  It fails with ErrOOBQueueFull when a limit is set and
// reached.  Items queued before the transport is attached are sent once
// it is.
func (e *Endpoint) SendOOB(o *OOB) error {
	if e.oobLimit > 0 && e.oob.len() >= e.oobLimit {
		return ErrOOBQueueFull
	}
	e.oob.push(o)
	e.metrics.OOBQueued()
	if e.t != nil {
		e.t.SetWriteEnabled(true)
	}
	return nil
}
