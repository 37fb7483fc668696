package util

import "testing"

func TestBufPool_RoundTrip(t *testing.T) {
	buf := GetBuf()
	if buf == nil {
		t.Fatal("GetBuf returned nil")
	}
	if len(*buf) != DefaultBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), DefaultBufSize)
	}
	(*buf)[0] = 0xff
	PutBuf(buf)
	PutBuf(nil)

	buf2 := GetBuf()
	if buf2 == nil || len(*buf2) != DefaultBufSize {
		t.Fatal("second GetBuf returned a bad buffer")
	}
	PutBuf(buf2)
}

// BenchmarkReadBuffer compares a pooled read buffer with a fresh one
// per read, as a stream reader would use them.
func BenchmarkReadBuffer(b *testing.B) {
	b.Run("pool", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			buf := GetBuf()
			(*buf)[0] = byte(i)
			PutBuf(buf)
		}
	})
	b.Run("alloc", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			buf := make([]byte, DefaultBufSize)
			buf[0] = byte(i)
		}
	})
}
