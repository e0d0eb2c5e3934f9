package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	var retries []int
	p := Policy{MaxAttempts: 3, Backoff: time.Millisecond, OnRetry: func(attempt int, _ error, _ time.Duration) {
		retries = append(retries, attempt)
	}}

	calls := 0
	got, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := DoVoid(context.Background(), Policy{MaxAttempts: 3, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestDoPermanentErrorStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := DoVoid(context.Background(), Policy{MaxAttempts: 5, Backoff: time.Millisecond}, func(context.Context) error {
		calls++
		return Permanent(errTransient)
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := DoVoid(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := DoVoid(ctx, Policy{MaxAttempts: 10, Backoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
