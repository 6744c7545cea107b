package loggerx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/clinia/flagx/loggerx"
	loggerxtest "github.com/clinia/flagx/loggerx/test"
	"github.com/clinia/flagx/stringsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	slogctx "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("should flatten fields", func(t *testing.T) {
		l, buf := loggerxtest.NewTestLoggerWithJSONBuffer(t)
		l.WithFields(attribute.String("flag", "beta_ui"), attribute.Bool("value", true)).Info(ctx, "resolved")

		entry := decode(t, buf)
		assert.Equal(t, "resolved", entry["msg"])
		assert.Equal(t, "beta_ui", entry["flag"])
		assert.Equal(t, true, entry["value"])
	})

	t.Run("should attach the error", func(t *testing.T) {
		l, buf := loggerxtest.NewTestLoggerWithJSONBuffer(t)
		l.WithError(errors.New("boom")).Warn(ctx, "provider failed")

		entry := decode(t, buf)
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "boom", entry["error"])
	})

	t.Run("should copy span start attributes", func(t *testing.T) {
		l, buf := loggerxtest.NewTestLoggerWithJSONBuffer(t)
		l.WithSpanStartOptions(trace.WithAttributes(attribute.Int("attempt", 2))).Debug(ctx, "ignored")
		assert.Empty(t, buf.String())

		l.WithSpanStartOptions(trace.WithAttributes(attribute.Int("attempt", 2))).Error(ctx, "kept")
		entry := decode(t, buf)
		assert.EqualValues(t, 2, entry["attempt"])
	})
}

func TestNew(t *testing.T) {
	t.Run("should filter below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := loggerx.New(loggerx.Config{Level: "warn", Format: loggerx.FormatJSON}, &buf)
		require.NoError(t, err)

		l.Info(context.Background(), "hidden")
		assert.Empty(t, buf.String())

		l.Warn(context.Background(), "shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("should add context attributes", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := loggerx.New(loggerx.Config{}, &buf)
		require.NoError(t, err)

		ctx := slogctx.Append(context.Background(), "request_id", "abc")
		l.Info(ctx, "hello")
		entry := decode(t, &buf)
		assert.Equal(t, "abc", entry["request_id"])
	})

	t.Run("should write text", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := loggerx.New(loggerx.Config{Format: loggerx.FormatText}, &buf)
		require.NoError(t, err)

		l.Info(context.Background(), "hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("should reject unknown formats", func(t *testing.T) {
		_, err := loggerx.New(loggerx.Config{Format: "xml"}, &bytes.Buffer{})
		assert.ErrorIs(t, err, stringsx.ErrUnknownCase)
	})

	t.Run("should reject unknown levels", func(t *testing.T) {
		_, err := loggerx.New(loggerx.Config{Level: "loud"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
