package tracex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/clinia/flagx/loggerx"
	loggerxtest "github.com/clinia/flagx/loggerx/test"
)

type stringer struct{}

func (stringer) String() string { return "stringer panic" }

// panicking runs f the way a background loop does.
func panicking(l *loggerx.Logger, v any) {
	defer RecoverWithStackTrace(context.Background(), l, "panic in feature flag change stream")
	panic(v)
}

func TestRecoverWithStackTrace(t *testing.T) {
	t.Run("should log the message, the panic and the stack", func(t *testing.T) {
		l, buf := loggerxtest.NewTestLoggerWithBuffer(t)
		panicking(l, "stream closed")

		entry := buf.String()
		assert.Equal(t, "panic in feature flag change stream", gjson.Get(entry, "msg").String())
		assert.Equal(t, "ERROR", gjson.Get(entry, "level").String())
		assert.Equal(t, "stream closed", gjson.Get(entry, "exception\\.message").String())
		assert.Contains(t, gjson.Get(entry, "exception\\.stacktrace").String(), "tracex/recover_test.go")
	})

	for _, tc := range []struct {
		name     string
		value    any
		expected string
	}{
		{name: "an error", value: errors.New("decode failed"), expected: "decode failed"},
		{name: "a wrapped error", value: fmt.Errorf("flush: %w", errors.New("boom")), expected: "flush: boom"},
		{name: "a stringer", value: stringer{}, expected: "stringer panic"},
		{name: "an int", value: 123, expected: "unknown panic"},
		{name: "a slice", value: []int{}, expected: "unknown panic"},
	} {
		t.Run("should describe "+tc.name, func(t *testing.T) {
			l, buf := loggerxtest.NewTestLoggerWithBuffer(t)
			panicking(l, tc.value)
			assert.Equal(t, tc.expected, gjson.Get(buf.String(), "exception\\.message").String())
		})
	}

	t.Run("should survive a panicking log handler", func(t *testing.T) {
		w := &panickingWriter{}
		l := &loggerx.Logger{Logger: slog.New(slog.NewJSONHandler(w, nil))}

		assert.NotPanics(t, func() { panicking(l, "stream closed") })
		assert.Equal(t, 1, w.writes)
	})

	t.Run("should recover without a logger", func(t *testing.T) {
		assert.NotPanics(t, func() { panicking(nil, "stream closed") })
	})

	t.Run("should do nothing without a panic", func(t *testing.T) {
		l, buf := loggerxtest.NewTestLoggerWithBuffer(t)
		func() {
			defer RecoverWithStackTrace(context.Background(), l, "unused")
		}()
		assert.Empty(t, buf.String())
	})
}

func TestStackTraceAttrs(t *testing.T) {
	t.Run("should be empty without a recovered value", func(t *testing.T) {
		assert.Empty(t, StackTraceAttrs(nil))
	})

	t.Run("should carry the stack then the message", func(t *testing.T) {
		attrs := StackTraceAttrs("boom")
		require.Len(t, attrs, 2)
		assert.Equal(t, "exception.stacktrace", string(attrs[0].Key))
		assert.Equal(t, "exception.message", string(attrs[1].Key))
		assert.Equal(t, "boom", attrs[1].Value.AsString())
	})
}

func TestGetStackTrace(t *testing.T) {
	t.Run("should include the caller", func(t *testing.T) {
		assert.Contains(t, GetStackTrace(), "tracex/recover_test.go")
	})
}

type panickingWriter struct {
	writes int
}

func (w *panickingWriter) Write([]byte) (int, error) {
	w.writes++
	panic("writer broke")
}
