package runner

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/flowforge/flowforge/runtime/step"
)

// backoffDelay computes the exponential backoff delay for the given attempt
// (0-indexed), capped at cfg.MaxBackoff, with optional +/-50% jitter.
func backoffDelay(cfg step.Config, attempt int) time.Duration {
	delay := cfg.RetryWait
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
			break
		}
	}
	if delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}
	if cfg.Jitter {
		// +/-50%: delay in [0.5*delay, 1.5*delay).
		jitterRange := float64(delay)
		delay = time.Duration(jitterRange*0.5 + rand.Float64()*jitterRange) //nolint:gosec // non-cryptographic jitter
	}
	return delay
}

// isRetryable reports whether err should be retried. Per §4.3, every
// per-step failure is retried except null-dereferences (modeled here as
// step.ErrNilResult), which are treated as fatal contract violations.
func isRetryable(err error) bool {
	return !errors.Is(err, step.ErrNilResult)
}

// withRetry invokes fn (attempt is 1-indexed) up to cfg.RetryLimit retries
// after the first failure. onRetry is called before each delay with the
// attempt number and the error that triggered it, for telemetry.
func withRetry(ctx context.Context, cfg step.Config, fn func(attempt int) error, onRetry func(attempt int, backoff time.Duration, err error)) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.RetryLimit+1; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt > cfg.RetryLimit {
			break
		}

		delay := backoffDelay(cfg, attempt-1)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
