package retryx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type retryCase struct {
	name          string
	fn            func() error
	opts          []RetryOption
	expectedCalls int
	expectedError error
}

func commonCases() []retryCase {
	return []retryCase{
		{
			name:          "should not retry on success",
			fn:            func() error { return nil },
			expectedCalls: 1,
		},
		{
			name: "should stop on permanent error",
			fn: func() error {
				return Permanent(errors.New("permanent error"))
			},
			expectedCalls: 1,
			expectedError: errors.New("permanent error"),
		},
		{
			name: "should retry temporary errors up to the retry count",
			fn: func() error {
				return errors.New("temporary error")
			},
			opts: []RetryOption{
				WithRetryCount(2),
				WithInterval(time.Millisecond),
			},
			expectedCalls: 2,
			expectedError: errors.New("temporary error"),
		},
		{
			name: "should use the default retry count",
			fn: func() error {
				return errors.New("temporary error")
			},
			opts: []RetryOption{
				WithInterval(time.Millisecond),
			},
			expectedCalls: DefaultMaxRetries,
			expectedError: errors.New("temporary error"),
		},
	}
}

func runCases(t *testing.T, cases []retryCase, r func(fn func() error, opts ...RetryOption) error) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			actualCalls := 0
			fn := func() error {
				actualCalls++
				return tt.fn()
			}
			err := r(fn, tt.opts...)
			if tt.expectedError != nil {
				require.EqualError(t, err, tt.expectedError.Error())
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tt.expectedCalls, actualCalls)
		})
	}
}

func TestExponentialRetry(t *testing.T) {
	runCases(t, commonCases(), ExponentialRetry)

	t.Run("should honour the max interval and elapsed time", func(t *testing.T) {
		calls := 0
		start := time.Now()
		err := ExponentialRetry(func() error {
			calls++
			return errors.New("temporary error")
		},
			WithInterval(5*time.Millisecond),
			WithMaxInterval(10*time.Millisecond),
			WithMaxElapsedTime(50*time.Millisecond),
			WithRetryCount(1000),
		)
		require.Error(t, err)
		require.Greater(t, calls, 1)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestRetryStops(t *testing.T) {
	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := ExponentialRetry(func() error {
			calls++
			cancel()
			return errors.New("temporary error")
		}, WithContext(ctx), WithInterval(time.Hour), WithRetryCount(10))
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("should leave nil alone when marking permanent errors", func(t *testing.T) {
		require.NoError(t, Permanent(nil))
	})
}
