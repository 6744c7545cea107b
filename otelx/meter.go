// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package otelx

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/stringsx"
)

type Meter struct {
	provider metric.MeterProvider
	meter    metric.Meter
	shutdown func(ctx context.Context) error
}

// NewMeter creates a meter from the configuration. Prometheus collectors are
// registered on reg. An empty provider yields a no-op meter.
func NewMeter(l *loggerx.Logger, reg prometheus.Registerer, c *MeterConfig) (*Meter, error) {
	m := &Meter{}
	if err := m.setup(l, reg, c); err != nil {
		return nil, err
	}
	return m, nil
}

func NewNoopMeter() *Meter {
	mp := noop.NewMeterProvider()
	return &Meter{
		provider: mp,
		meter:    mp.Meter("NoopMeter"),
	}
}

// setup picks the exporter named by c.Provider.
func (m *Meter) setup(l *loggerx.Logger, reg prometheus.Registerer, c *MeterConfig) error {
	ctx := context.Background()

	var (
		mp  *sdkmetric.MeterProvider
		err error
	)
	switch f := stringsx.SwitchExact(c.Provider); {
	case f.AddCase("prometheus"):
		mp, err = newPrometheusMeterProvider(reg, c)
	case f.AddCase("otel"):
		mp, err = SetupOTLPMeterProvider(ctx, c)
	case f.AddCase("stdout"):
		mp, err = SetupStdoutMeterProvider(c)
	case f.AddCase(""):
		l.Debug(ctx, "metrics disabled")
		*m = *NewNoopMeter()
		return nil
	default:
		return f.ToUnknownCaseErr()
	}
	if err != nil {
		return err
	}

	m.provider = mp
	m.meter = mp.Meter(c.Name)
	m.shutdown = mp.Shutdown
	l.Info(ctx, "meter configured", attribute.String("provider", c.Provider), attribute.String("service", c.ServiceName))
	return nil
}

// IsLoaded returns true if the meter has been loaded.
func (m *Meter) IsLoaded() bool {
	if m == nil || m.meter == nil {
		return false
	}
	return true
}

// Meter returns the underlying OpenTelemetry meter.
func (m *Meter) Meter() metric.Meter {
	return m.meter
}

// Provider returns the underlying OpenTelemetry meter provider.
func (m *Meter) Provider() metric.MeterProvider {
	return m.provider
}

// Shutdown flushes pending measurements.
func (m *Meter) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}

// newPrometheusMeterProvider collects into reg. Serving reg, with promhttp for
// instance, is left to the caller.
func newPrometheusMeterProvider(reg prometheus.Registerer, c *MeterConfig) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(reg))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(c.ServiceName, c.ResourceAttributes)),
	), nil
}
