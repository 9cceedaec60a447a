package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
)

func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := TimeoutValue(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

type outcome[T any] struct {
	v   T
	err error
}

// TimeoutValue runs fn under a deadline. On expiry the error wraps both
// apperrors.ErrTimeout and context.DeadlineExceeded and fn's eventual result
// is discarded; fn keeps running until it notices its context is done.
// A non-positive timeout runs fn inline.
func TimeoutValue[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn(tctx)
		done <- outcome[T]{v, err}
	}()
	var zero T
	select {
	case o := <-done:
		return o.v, o.err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w: %w (limit: %v)", name, apperrors.ErrTimeout, context.DeadlineExceeded, timeout)
	}
}
