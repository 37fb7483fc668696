package metrics

import "testing"

// BenchmarkCollector_ReadRound measures the counters one relay read
// round touches: bytes offered, bytes accepted and a stall.
func BenchmarkCollector_ReadRound(b *testing.B) {
	c := New("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.BytesRead(4096)
		c.BytesRelayed(1024)
		c.Backpressure()
	}
}

// BenchmarkCollector_OOB measures queueing and completing one
// out-of-band message.
func BenchmarkCollector_OOB(b *testing.B) {
	c := New("bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.OOBQueued()
		c.OOBSent()
	}
}

// BenchmarkCollector_JSON measures the cost of the i escape command and
// the --stats dump.
func BenchmarkCollector_JSON(b *testing.B) {
	c := New("bench")
	c.TransportAttached()
	c.BytesRelayed(1024)
	c.Escape()
	c.RecordError("read error")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.JSON()
	}
}

// BenchmarkNilCollector verifies an endpoint without statistics pays
// nothing for them.
func BenchmarkNilCollector(b *testing.B) {
	var c *Collector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.BytesRead(4096)
		c.BytesRelayed(4096)
		c.OOBQueued()
		c.Escape()
	}
}
