// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package otelx

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/clinia/flagx/stringsx"
)

const (
	protocolHTTP = "http"
	protocolGRPC = "grpc"
)

// SetupOTLPTracer exports spans to an OTLP collector. Traces started by a
// sampled parent stay sampled, the others follow the configured ratio.
func SetupOTLPTracer(ctx context.Context, c *TracerConfig) (*sdktrace.TracerProvider, propagation.TextMapPropagator, error) {
	exp, err := newOTLPTraceExporter(ctx, c.Providers.OTLP)
	if err != nil {
		return nil, nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource(c.ServiceName, c.ResourceAttributes)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.Providers.OTLP.Sampling.SamplingRatio))),
	), newPropagator(), nil
}

func newOTLPTraceExporter(ctx context.Context, c OTLPConfig) (*otlptrace.Exporter, error) {
	switch f := stringsx.SwitchExact(c.Protocol); {
	case f.AddCase(protocolHTTP), f.AddCase(""):
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
		return exp, errors.WithStack(err)
	case f.AddCase(protocolGRPC):
		creds := credentials.NewClientTLSFromCert(nil, "")
		if c.Insecure {
			creds = insecure.NewCredentials()
		}
		conn, err := grpc.NewClient(c.ServerURL, grpc.WithTransportCredentials(creds))
		if err != nil {
			return nil, errors.Wrap(err, "unable to reach the OTLP gRPC endpoint")
		}
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		return exp, errors.Wrap(err, "unable to create the OTLP trace exporter")
	default:
		return nil, errors.WithStack(f.ToUnknownCaseErr())
	}
}

// SetupOTLPMeterProvider pushes measurements to an OTLP collector on the
// default periodic reader interval.
func SetupOTLPMeterProvider(ctx context.Context, c *MeterConfig) (*sdkmetric.MeterProvider, error) {
	exp, err := newOTLPMetricExporter(ctx, c.Providers.OTLP)
	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(newResource(c.ServiceName, c.ResourceAttributes)),
	), nil
}

func newOTLPMetricExporter(ctx context.Context, c OTLPMeterConfig) (sdkmetric.Exporter, error) {
	switch f := stringsx.SwitchExact(c.Protocol); {
	case f.AddCase(protocolHTTP), f.AddCase(""):
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		return exp, errors.WithStack(err)
	case f.AddCase(protocolGRPC):
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		return exp, errors.WithStack(err)
	default:
		return nil, errors.WithStack(f.ToUnknownCaseErr())
	}
}

func newResource(serviceName string, extra []attribute.KeyValue) *resource.Resource {
	attrs := append([]attribute.KeyValue{semconv.ServiceNameKey.String(serviceName)}, extra...)
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}
