package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff describes how long to wait between dependency dials at startup.
// Zero fields take the values from DefaultBackoff.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64
}

var DefaultBackoff = Backoff{
	Attempts: 3,
	Base:     100 * time.Millisecond,
	Cap:      10 * time.Second,
	Jitter:   0.1,
}

func (b Backoff) withDefaults() Backoff {
	if b.Attempts <= 0 {
		b.Attempts = DefaultBackoff.Attempts
	}
	if b.Base <= 0 {
		b.Base = DefaultBackoff.Base
	}
	if b.Cap <= 0 {
		b.Cap = DefaultBackoff.Cap
	}
	if b.Jitter <= 0 {
		b.Jitter = DefaultBackoff.Jitter
	}
	return b
}

// delay doubles from Base for every failed attempt, capped at Cap.
func (b Backoff) delay(attempt int) time.Duration {
	d := b.Base << (attempt - 1)
	if d <= 0 || d > b.Cap {
		d = b.Cap
	}
	spread := float64(d) * b.Jitter * (2*rand.Float64() - 1)
	return max(b.Base, time.Duration(float64(d)+spread))
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry stops immediately, e.g. a rejected password.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, the attempts
// run out, or ctx ends.
func Retry(ctx context.Context, name string, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	log := slog.Default().With("component", "retry", "dependency", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				log.Info("dependency reachable", "attempt", attempt)
			}
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("%s: %w", name, perm.err)
		}
		if attempt >= b.Attempts {
			return fmt.Errorf("%s: gave up after %d attempts: %w", name, attempt, err)
		}

		wait := b.delay(attempt)
		log.Warn("dependency not ready", "attempt", attempt, "of", b.Attempts, "error", err, "retry_in", wait)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: waiting to retry: %w", name, ctx.Err())
		}
	}
}
