package resiliency

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// FixedRetryPolicy describes a bounded retry loop with a constant delay
// between attempts. MaxAttempts counts the first try, so MaxAttempts == 1
// means no retries.
type FixedRetryPolicy struct {
	MaxAttempts uint64
	Delay       time.Duration
}

// RetryGetFixed calls factory up to policy.MaxAttempts times, waiting
// policy.Delay between attempts, until it succeeds or the context is done.
// On failure the returned error joins the last attempt error with the
// context error, if any.
func RetryGetFixed[T any](ctx context.Context, policy FixedRetryPolicy, factory func() (T, error)) (T, error) {
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	var lastAttemptErr error

	retval, err := backoff.RetryNotifyWithData(
		factory,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), attempts-1), ctx),
		func(err error, d time.Duration) {
			lastAttemptErr = err
		},
	)

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return *new(T), errors.Join(lastAttemptErr, err)
	case err != nil:
		return *new(T), err
	default:
		return retval, nil
	}
}

// Permanent marks an error as non-retryable for RetryGetFixed.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
