package api

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy is the uniform retry schedule applied at the
// sync-submission boundary. One explicit policy rather than ad hoc
// retry wrappers per call site: the semantics of retrying a sync are
// only safe because the batch is idempotent, and that reasoning should
// live in exactly one place.
type RetryPolicy struct {
	// MaxAttempts caps total tries, including the first. Values < 1 are
	// treated as 1.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// Multiplier scales the backoff between attempts. Values < 1 are
	// treated as 1 (constant backoff).
	Multiplier float64
}

// DefaultRetryPolicy retries twice more after the first failure, at 2s
// and 6s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: 2 * time.Second, Multiplier: 3}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. Only Retryable failures (network errors and
// unknown outcomes) are retried; the final error is returned as-is.
func (p RetryPolicy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	backoff := p.InitialBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt == attempts {
			return err
		}

		slog.Warn("retrying after failure",
			"op", name,
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", backoff,
			"code", string(CodeOf(err)),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return err
		}
		backoff = time.Duration(float64(backoff) * multiplier)
	}
	return err
}
