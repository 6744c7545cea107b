package breakerx

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/clinia/flagx/errorx"
)

type result[T any] struct {
	value T
	err   error
}

type panicError struct {
	recovered any
}

func (p panicError) Error() string {
	return fmt.Sprintf("call panicked: %v", p.recovered)
}

// CallWithFallback runs primary through cb, bounded by timeout, and returns
// fallback(err) whenever the call can not produce a value.
//
// The returned error is nil on success. Otherwise it tells why the fallback
// was used: gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests when the
// breaker rejected the call, an errorx DEADLINE_EXCEEDED error on timeout,
// an errorx INTERNAL error when primary panicked, an errorx UNAVAILABLE error
// wrapping any other failure, or the context error when the caller gave up.
//
// primary runs on a context detached from the caller's cancellation so that a
// caller giving up does not count as a breaker failure. A result arriving after
// the timeout is dropped.
func CallWithFallback[T any](
	ctx context.Context,
	cb *gobreaker.CircuitBreaker[T],
	timeout time.Duration,
	primary func(ctx context.Context) (T, error),
	fallback func(err error) T,
) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		v, err := cb.Execute(func() (T, error) {
			return callWithTimeout(ctx, timeout, primary)
		})
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return fallback(r.err), r.err
		}
		return r.value, nil
	case <-ctx.Done():
		err := errors.WithStack(ctx.Err())
		return fallback(err), err
	}
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, primary func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result[T]{err: panicError{recovered: r}}
			}
		}()
		v, err := primary(cctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.value, nil
		}
		return zero, classify(r.err, timeout)
	case <-cctx.Done():
		return zero, errorx.DeadlineExceededErrorf("call did not complete within %s", timeout)
	}
}

func classify(err error, timeout time.Duration) error {
	var pe panicError
	switch {
	case errors.As(err, &pe):
		return errorx.InternalErrorf("%s", pe.Error()).WithOriginalError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return errorx.DeadlineExceededErrorf("call did not complete within %s", timeout).WithOriginalError(err)
	case errorx.IsUnavailableError(err), errorx.IsDeadlineExceededError(err):
		return err
	default:
		return errorx.UnavailableErrorf("%s", err.Error()).WithOriginalError(err)
	}
}

// IsRejected reports whether err means the breaker did not let the call through.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
