// Package retry provides bounded retries with exponential backoff and jitter
// for outbound provider calls.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
)

// Policy describes how a single logical call is retried. A Policy is
// immutable and safe for concurrent use; per-call attempt state lives on the
// stack of Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable classifies errors. Only errors it accepts are retried;
	// everything else is returned to the caller immediately. A nil
	// Retryable never retries.
	Retryable func(error) bool
}

// ExhaustedError wraps the last error observed after the policy ran out of
// attempts.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do runs op up to MaxAttempts times, backing off exponentially between
// attempts. The context deadline covers the whole loop: once ctx is done, no
// further attempt is issued and the context error is returned. The retry
// budget never restarts the caller's deadline.
//
// Do assumes op is idempotent-safe (GET-style reads). Wrapping non-idempotent
// calls without an idempotency key is a caller bug.
func (p Policy) Do(ctx context.Context, provider string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		metrics.RetryTotal.WithLabelValues(provider).Inc()

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

// backoff returns the delay before attempt n+1: exponential growth capped at
// MaxDelay, with up to 50% random jitter added so concurrent callers hitting
// the same outage don't retry in lockstep.
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	if delay+jitter > p.MaxDelay {
		return p.MaxDelay
	}
	return delay + jitter
}
