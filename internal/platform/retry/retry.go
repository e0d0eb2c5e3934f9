package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is a bounded retry with a fixed pause between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	OnRetry     func(attempt int, err error, wait time.Duration)
}

type Operation[T any] func(ctx context.Context) (T, error)

func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	}

	val, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		return op(ctx)
	}, b, notify)
	if err != nil {
		if ctx.Err() != nil {
			return val, fmt.Errorf("context cancelled during retry: %w", err)
		}
		return val, fmt.Errorf("failed after %d attempts: %w", attempt, err)
	}

	return val, nil
}

func DoVoid(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Permanent stops the retry loop and returns err unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
