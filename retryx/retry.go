package retryx

import (
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultMaxInterval    = 2 * time.Second
	DefaultMaxElapsedTime = 5 * time.Second
	DefaultMaxRetries     = 3
)

// ExponentialRetry calls fn until it succeeds, doubling the wait between
// attempts from DefaultInterval up to DefaultMaxInterval, for at most
// DefaultMaxElapsedTime. Options override each bound.
func ExponentialRetry(fn func() error, opts ...RetryOption) error {
	o := newRetryOptions(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DefaultInterval
	b.MaxInterval = DefaultMaxInterval
	b.MaxElapsedTime = DefaultMaxElapsedTime
	if o.initialInterval > 0 {
		b.InitialInterval = o.initialInterval
	}
	if o.maxInterval > 0 {
		b.MaxInterval = o.maxInterval
	}
	if o.maxElapsedTime > 0 {
		b.MaxElapsedTime = o.maxElapsedTime
	}
	b.Reset()
	return retry(fn, b, o)
}

// Permanent marks err as not worth retrying. The retry functions return err
// itself, unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func retry(fn func() error, bo backoff.BackOff, o *retryOptions) error {
	if o.ctx != nil {
		bo = backoff.WithContext(bo, o.ctx)
	}

	maxAttempts := DefaultMaxRetries
	if o.retryCount > 0 {
		maxAttempts = o.retryCount
	}

	attempts := 0
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}
