package retry

import (
	"context"
	"errors"
	"testing"
)

// BenchmarkConnect_FirstTry measures the overhead a retry policy adds to
// a connect that succeeds at once.
func BenchmarkConnect_FirstTry(b *testing.B) {
	bo := ForRetries(3, 0)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(int) error { return nil }) //nolint:errcheck
	}
}

// BenchmarkConnect_NotRetryable measures the early exit for errors the
// policy rejects.
func BenchmarkConnect_NotRetryable(b *testing.B) {
	bo := ForRetries(3, 0)
	bo.Retryable = func(error) bool { return false }
	ctx := context.Background()
	errAuth := errors.New("auth failed")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(int) error { return errAuth }) //nolint:errcheck
	}
}

func BenchmarkDelay(b *testing.B) {
	bo := ForRetries(10, 0)
	for i := 0; i < b.N; i++ {
		_ = addJitter(bo.Delay(i%10 + 1))
	}
}
