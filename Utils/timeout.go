package Utils

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when an operation does not finish within its
// deadline. Check with errors.Is.
var ErrTimeout = errors.New("operation timed out")

type outcome[T any] struct {
	value T
	err   error
}

// RunWithTimeout races op against a deadline. If op finishes first its
// result is returned; otherwise ErrTimeout is returned at the deadline and
// a late result is discarded. The deadline timer is always stopped.
//
// The context handed to op is cancelled once the race settles, so callees
// that honor it stop early. Callees that ignore it keep running in the
// background; their outcome is dropped.
func RunWithTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithCancel(ctx)

	// Buffered so a late-finishing op never blocks.
	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(opCtx)
		done <- outcome[T]{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		cancel()
		return result.value, result.err
	case <-timer.C:
		cancel()
		var zero T
		return zero, ErrTimeout
	}
}
