// Package metrics provides lightweight, lock-free counters for tracking
// the traffic of one relay endpoint.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one side of a relay.
// A nil Collector is safe to use: all methods become no-ops.
type Collector struct {
	bytesRead     atomic.Int64
	bytesRelayed  atomic.Int64
	backpressure  atomic.Int64
	oobQueued     atomic.Int64
	oobSent       atomic.Int64
	oobReceived   atomic.Int64
	escapes       atomic.Int64
	breaks        atomic.Int64
	errorsTotal   atomic.Int64
	transportsSet atomic.Int64

	mu           sync.RWMutex
	name         string
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector labelled name, with the start time
// set to now.
func New(name string) *Collector {
	return &Collector{name: name, startTime: time.Now()}
}

// Name returns the collector label.
func (c *Collector) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// ── Lifecycle ────────────────────────────────────────────────────────

// TransportAttached records a transport becoming ready.
func (c *Collector) TransportAttached() {
	if c == nil {
		return
	}
	c.transportsSet.Add(1)
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesRead records n bytes offered by this endpoint's transport.
func (c *Collector) BytesRead(n int) {
	if c == nil {
		return
	}
	c.bytesRead.Add(int64(n))
}

// BytesRelayed records n bytes accepted by the peer.
func (c *Collector) BytesRelayed(n int) {
	if c == nil {
		return
	}
	c.bytesRelayed.Add(int64(n))
}

// Backpressure records one read suspension caused by a peer that could
// not take everything it was offered.
func (c *Collector) Backpressure() {
	if c == nil {
		return
	}
	c.backpressure.Add(1)
}

// TotalBytesRead returns total bytes offered by the transport.
func (c *Collector) TotalBytesRead() int64 {
	if c == nil {
		return 0
	}
	return c.bytesRead.Load()
}

// TotalBytesRelayed returns total bytes accepted by the peer.
func (c *Collector) TotalBytesRelayed() int64 {
	if c == nil {
		return 0
	}
	return c.bytesRelayed.Load()
}

// Stalls returns how many times reading was suspended.
func (c *Collector) Stalls() int64 {
	if c == nil {
		return 0
	}
	return c.backpressure.Load()
}

// ── Out-of-band ──────────────────────────────────────────────────────

// OOBQueued records an out-of-band item entering the queue.
func (c *Collector) OOBQueued() {
	if c == nil {
		return
	}
	c.oobQueued.Add(1)
}

// OOBSent records an out-of-band item fully written.
func (c *Collector) OOBSent() {
	if c == nil {
		return
	}
	c.oobSent.Add(1)
}

// OOBReceived records n out-of-band bytes read from the transport.
func (c *Collector) OOBReceived(n int) {
	if c == nil {
		return
	}
	c.oobReceived.Add(int64(n))
}

// PendingOOB returns queued minus sent items.
func (c *Collector) PendingOOB() int64 {
	if c == nil {
		return 0
	}
	return c.oobQueued.Load() - c.oobSent.Load()
}

// ── Escape commands ──────────────────────────────────────────────────

// Escape records a completed local escape command.
func (c *Collector) Escape() {
	if c == nil {
		return
	}
	c.escapes.Add(1)
}

// Break records a break signal sent to the peer.
func (c *Collector) Break() {
	if c == nil {
		return
	}
	c.breaks.Add(1)
}

// Escapes returns the number of escape commands handled.
func (c *Collector) Escapes() int64 {
	if c == nil {
		return 0
	}
	return c.escapes.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Name             string `json:"name"`
	Uptime           string `json:"uptime"`
	Transports       int64  `json:"transports"`
	BytesRead        int64  `json:"bytes_read"`
	BytesRelayed     int64  `json:"bytes_relayed"`
	Stalls           int64  `json:"stalls"`
	OOBQueued        int64  `json:"oob_queued"`
	OOBSent          int64  `json:"oob_sent"`
	OOBReceived      int64  `json:"oob_received"`
	Escapes          int64  `json:"escapes"`
	Breaks           int64  `json:"breaks"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Name:         c.name,
		Uptime:       time.Since(c.startTime).Truncate(time.Second).String(),
		Transports:   c.transportsSet.Load(),
		BytesRead:    c.bytesRead.Load(),
		BytesRelayed: c.bytesRelayed.Load(),
		Stalls:       c.backpressure.Load(),
		OOBQueued:    c.oobQueued.Load(),
		OOBSent:      c.oobSent.Load(),
		OOBReceived:  c.oobReceived.Load(),
		Escapes:      c.escapes.Load(),
		Breaks:       c.breaks.Load(),
		ErrorsTotal:  c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
