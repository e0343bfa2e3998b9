package db

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a lost race is replayed.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// Retryable decides whether err is worth another attempt. Nil means IsRetryable.
	Retryable func(error) bool
	// OnRetry observes each replay.
	OnRetry func(attempt int, err error)
}

// Retry runs fn until it succeeds, fails with a non retryable error or the
// attempts are used up. The last error is returned unchanged.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
		if policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * policy.Backoff):
			}
		}
	}
	return err
}
