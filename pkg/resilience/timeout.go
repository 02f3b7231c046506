package resilience

import (
	"context"
	"fmt"
	"time"
)

// Bounded runs fn under a deadline of limit and returns its result, or an
// error wrapping context.DeadlineExceeded as soon as the deadline passes,
// even if fn has not returned yet. A non-positive limit runs fn unbounded.
func Bounded[T any](ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if limit <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		ch <- result{v, err}
	}()

	var zero T
	select {
	case r := <-ch:
		return r.val, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
		return zero, fmt.Errorf("%s: no answer within %v: %w", name, limit, context.DeadlineExceeded)
	}
}
