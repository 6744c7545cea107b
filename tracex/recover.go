package tracex

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	internaltracex "github.com/clinia/flagx/internal/tracex"
	"github.com/clinia/flagx/loggerx"
)

// RecoverWithStackTrace logs a recovered panic with its stack. Defer it first
// thing in background goroutines such as the remote provider loops:
//
//	defer tracex.RecoverWithStackTrace(ctx, l, "panic in feature flag change stream")
func RecoverWithStackTrace(ctx context.Context, l *loggerx.Logger, msg string) {
	// A panicking log handler must not take the process down either.
	defer func() { _ = recover() }()

	r := recover()
	if r == nil || l == nil {
		return
	}
	l.Error(ctx, msg, StackTraceAttrs(r)...)
}

// StackTraceAttrs describes a recovered value as exception attributes, the
// stack first.
func StackTraceAttrs(recovered any) []attribute.KeyValue {
	if recovered == nil {
		return []attribute.KeyValue{}
	}
	return []attribute.KeyValue{
		semconv.ExceptionStacktrace(internaltracex.GetStackTrace(3)),
		semconv.ExceptionMessage(panicMessage(recovered)),
	}
}

func panicMessage(recovered any) string {
	switch v := recovered.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return "unknown panic"
	}
}

func GetStackTrace() string {
	return internaltracex.GetStackTrace(3)
}
