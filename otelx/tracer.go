// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package otelx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/stringsx"
)

type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	shutdown   func(ctx context.Context) error
}

// NewTracer creates a tracer from the configuration. An empty provider yields a no-op tracer.
func NewTracer(l *loggerx.Logger, c *TracerConfig) (*Tracer, error) {
	t := &Tracer{}
	if err := t.setup(l, c); err != nil {
		return nil, err
	}
	return t, nil
}

// NewNoopTracer creates a tracer which records nothing.
func NewNoopTracer(name string) *Tracer {
	return &Tracer{
		tracer:     noop.NewTracerProvider().Tracer(name),
		propagator: propagation.NewCompositeTextMapPropagator(),
	}
}

// setup picks the exporter named by c.Provider.
func (t *Tracer) setup(l *loggerx.Logger, c *TracerConfig) error {
	ctx := context.Background()

	var (
		tp   *sdktrace.TracerProvider
		prop propagation.TextMapPropagator
		err  error
	)
	switch f := stringsx.SwitchExact(c.Provider); {
	case f.AddCase("otel"):
		tp, prop, err = SetupOTLPTracer(ctx, c)
	case f.AddCase("stdout"):
		tp, prop, err = SetupStdoutTracer(c)
	case f.AddCase(""):
		l.Debug(ctx, "tracing disabled")
		*t = *NewNoopTracer(c.Name)
		return nil
	default:
		return f.ToUnknownCaseErr()
	}
	if err != nil {
		return err
	}

	t.tracer = tp.Tracer(c.Name)
	t.propagator = prop
	t.shutdown = tp.Shutdown
	l.Info(ctx, "tracer configured", attribute.String("provider", c.Provider), attribute.String("service", c.ServiceName))
	return nil
}

// IsLoaded returns true if the tracer has been loaded.
func (t *Tracer) IsLoaded() bool {
	if t == nil || t.tracer == nil {
		return false
	}
	return true
}

// Tracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// Provider returns a TracerProvider handing out this tracer whatever the
// requested name, for libraries that look the tracer up themselves.
func (t *Tracer) Provider() trace.TracerProvider {
	return tracerProvider{t: t.Tracer()}
}

type tracerProvider struct {
	noop.TracerProvider
	t trace.Tracer
}

var _ trace.TracerProvider = tracerProvider{}

// Tracer implements trace.TracerProvider.
func (tp tracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	return tp.t
}

// TextMapPropagator returns the underlying OpenTelemetry textMapPropagator.
func (t *Tracer) TextMapPropagator() propagation.TextMapPropagator {
	return t.propagator
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}
