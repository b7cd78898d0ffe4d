// Package retry wraps cenkalti/backoff with the bridge's retry policy:
// exponential backoff, bounded attempts, and permanent-failure detection
// through the IsRetryable contract the social client's errors implement.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Classifier is implemented by errors that know whether retrying can help.
// Errors without the method are treated as retryable.
type Classifier interface {
	IsRetryable() bool
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  5 * time.Minute,
	}
}

// Do runs fn under the policy until it succeeds, exhausts its attempts, the
// context ends, or the error classifies itself as not retryable. onRetry, if
// non-nil, fires before each backoff wait.
func Do(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	var b backoff.BackOff
	if policy.MaxElapsedTime > 0 {
		b = ExponentialBackoffWithMaxElapsed(
			policy.InitialInterval,
			policy.MaxInterval,
			policy.MaxElapsedTime,
			policy.Multiplier,
		)
	} else {
		b = ExponentialBackoff(
			policy.InitialInterval,
			policy.MaxInterval,
			policy.Multiplier,
		)
	}

	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		var classifier Classifier
		if errors.As(err, &classifier) && !classifier.IsRetryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, nextDelay time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err, nextDelay)
		}
	}

	return backoff.RetryNotify(operation, b, notify)
}
