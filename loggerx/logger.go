package loggerx

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Logger takes OpenTelemetry attributes so that the key/values put on a span
// can be logged as is.
type Logger struct {
	*slog.Logger
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, kvs []attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, level, msg, fields(kvs...)...)
}

func (l *Logger) Debug(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.log(ctx, slog.LevelDebug, msg, kvs)
}

func (l *Logger) Info(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.log(ctx, slog.LevelInfo, msg, kvs)
}

func (l *Logger) Warn(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.log(ctx, slog.LevelWarn, msg, kvs)
}

func (l *Logger) Error(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.log(ctx, slog.LevelError, msg, kvs)
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{l.Logger.With(slog.Any(errorKey, err))}
}

// WithFields returns a logger adding kvs to every record, at the top level of
// the record.
func (l *Logger) WithFields(kvs ...attribute.KeyValue) *Logger {
	if len(kvs) == 0 {
		return &Logger{l.Logger}
	}
	// An empty group key inlines its attributes.
	return &Logger{l.Logger.With("", slog.GroupValue(fields(kvs...)...))}
}

// WithSpanStartOptions copies the attributes given to a span onto the logger.
func (l *Logger) WithSpanStartOptions(opts ...trace.SpanStartOption) *Logger {
	cfg := trace.NewSpanStartConfig(opts...)
	return l.WithFields(cfg.Attributes()...)
}
