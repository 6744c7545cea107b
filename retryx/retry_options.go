package retryx

import (
	"context"
	"time"
)

type retryOptions struct {
	ctx             context.Context
	retryCount      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

type RetryOption func(*retryOptions)

func newRetryOptions(opts []RetryOption) *retryOptions {
	o := &retryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRetryCount bounds the number of attempts, the first one included.
func WithRetryCount(count int) RetryOption {
	return func(ro *retryOptions) {
		ro.retryCount = count
	}
}

func WithInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.initialInterval = interval
	}
}

// WithMaxInterval caps the interval between two attempts. Only used by ExponentialRetry.
func WithMaxInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxInterval = interval
	}
}

// WithMaxElapsedTime caps the total time spent retrying. Only used by ExponentialRetry.
func WithMaxElapsedTime(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxElapsedTime = d
	}
}

// WithContext stops retrying as soon as ctx is done.
func WithContext(ctx context.Context) RetryOption {
	return func(ro *retryOptions) {
		ro.ctx = ctx
	}
}
