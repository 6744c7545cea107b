package tracex

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/otelx"
)

// ComponentName is the span and log name of an operation, i.e.
// featureflagx.Resolver.Resolve.
func ComponentName(component, operation string) string {
	return component + "." + operation
}

// InstrumentNext starts the span of operation and returns a logger tagged with
// the span attributes and the component name. The caller ends the span.
// Providers are called on every use so components can swap their tracer or
// logger after construction.
func InstrumentNext(
	ctx context.Context,
	logger func() *loggerx.Logger,
	tracer func(ctx context.Context) *otelx.Tracer,
	component, operation string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span, *loggerx.Logger) {
	name := ComponentName(component, operation)
	ctx, span := tracer(ctx).Tracer().Start(ctx, name, opts...)
	return ctx, span, logger().
		WithSpanStartOptions(opts...).
		WithFields(attribute.String("component", name))
}
