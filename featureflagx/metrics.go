package featureflagx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resolutionsMetricName        = "featureflag.resolutions"
	providerDurationMetricName   = "featureflag.provider.duration"
	breakerTransitionsMetricName = "featureflag.breaker.transitions"
)

type metrics struct {
	resolutions        metric.Int64Counter
	providerDuration   metric.Float64Histogram
	breakerTransitions metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	resolutions, err := m.Int64Counter(resolutionsMetricName,
		metric.WithDescription("Number of feature flag resolutions by source."),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	providerDuration, err := m.Float64Histogram(providerDurationMetricName,
		metric.WithDescription("Duration of feature flag provider evaluations."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	breakerTransitions, err := m.Int64Counter(breakerTransitionsMetricName,
		metric.WithDescription("Number of circuit breaker state changes."),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &metrics{
		resolutions:        resolutions,
		providerDuration:   providerDuration,
		breakerTransitions: breakerTransitions,
	}, nil
}

func (m *metrics) recordResolution(ctx context.Context, res Resolution) {
	m.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flag", res.Flag),
		attribute.String("source", string(res.Source)),
	))
}

func (m *metrics) recordProviderDuration(ctx context.Context, d time.Duration, err error) {
	m.providerDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.Bool("error", err != nil),
	))
}

func (m *metrics) recordBreakerTransition(ctx context.Context, name string, from, to gobreaker.State) {
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}
