package Utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunWithTimeoutOperationWins(t *testing.T) {
	got, err := RunWithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)
	require.Equal(t, "done", got)
}

func TestRunWithTimeoutOperationError(t *testing.T) {
	boom := errors.New("backend unavailable")
	_, err := RunWithTimeout(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestRunWithTimeoutDeadlineWins(t *testing.T) {
	start := time.Now()
	got, err := RunWithTimeout(context.Background(), 30*time.Millisecond, func(ctx context.Context) (string, error) {
		time.Sleep(500 * time.Millisecond)
		return "late", nil
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	require.Zero(t, got)
	// Rejection happens at the deadline, not when the operation ends.
	require.Less(t, elapsed, 400*time.Millisecond)
}

func TestRunWithTimeoutCancelsCallee(t *testing.T) {
	cancelled := make(chan struct{})
	_, err := RunWithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, ErrTimeout)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("callee never observed cancellation")
	}
}

func TestRunWithTimeoutLateResultDiscarded(t *testing.T) {
	finished := make(chan struct{})
	_, err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return "ignored", nil
	})
	require.ErrorIs(t, err, ErrTimeout)

	// The loser runs to completion in the background without blocking.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("background operation never finished")
	}
}
