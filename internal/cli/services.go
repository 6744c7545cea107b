package cli

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/configx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/featureflagx/inmemory"
	"github.com/clinia/flagx/featureflagx/launchdarkly"
	"github.com/clinia/flagx/featureflagx/remote"
	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/otelx"
	"github.com/clinia/flagx/stringsx"
)

// services holds what every command needs, built from the configuration.
type services struct {
	config   *Config
	provider *configx.Provider
	logger   *loggerx.Logger
	tracer   *otelx.Tracer
	meter    *otelx.Meter
	registry *prometheus.Registry
	table    *featureflagx.FeatureFlags
	resolver *featureflagx.Resolver
	gate     *featureflagx.Gate
}

func newServices(cmd *cobra.Command) (*services, error) {
	p, c, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	l, err := loggerx.New(c.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	s := &services{
		config:   c,
		provider: p,
		logger:   l,
		registry: prometheus.NewRegistry(),
	}

	if s.tracer, err = otelx.NewTracer(l, &c.Tracing); err != nil {
		return nil, err
	}
	// The HTTP client instrumentation of the remote provider reads the globals.
	otel.SetTracerProvider(s.tracer.Provider())
	otel.SetTextMapPropagator(s.tracer.TextMapPropagator())
	if s.meter, err = otelx.NewMeter(l, s.registry, &c.Metrics); err != nil {
		return nil, err
	}

	path := c.FeatureFlags.Local.Path
	if path == "" {
		path = featureflagx.DefaultLocalResource
	}
	if s.table, err = featureflagx.NewLocalFileSource(path).Load(); err != nil {
		return nil, err
	}

	fp, err := newFlagProvider(c.FeatureFlags, l)
	if err != nil {
		return nil, err
	}

	opts := append(c.FeatureFlags.ResolverOptions(),
		featureflagx.WithLogger(l),
		featureflagx.WithTracer(s.tracer),
		featureflagx.WithMeter(s.meter.Meter()),
	)
	if fp != nil {
		opts = append(opts, featureflagx.WithProvider(fp))
	}
	s.resolver = featureflagx.NewResolver(s.table, opts...)
	s.gate = featureflagx.NewGate(s.resolver, featureflagx.WithGateLogger(l))

	l.Debug(cmd.Context(), "feature flag services ready",
		attribute.String("provider", c.FeatureFlags.Provider),
		attribute.Int("local_flags", s.table.Len()),
		attribute.Bool("remote", s.resolver.Remote()),
	)
	return s, nil
}

// newFlagProvider builds the configured provider. No provider means the local
// table alone answers.
func newFlagProvider(c featureflagx.Config, l *loggerx.Logger) (featureflagx.Provider, error) {
	switch f := stringsx.SwitchExact(c.Provider); {
	case f.AddCase(""):
		return nil, nil
	case f.AddCase(featureflagx.ProviderInMemory):
		return inmemory.New(c.Providers.InMemory), nil
	case f.AddCase(featureflagx.ProviderLaunchDarkly):
		return launchdarkly.New(c.Providers.LaunchDarkly, l), nil
	case f.AddCase(featureflagx.ProviderRemote):
		return remote.New(c.Providers.Remote, remote.WithLogger(l)), nil
	default:
		return nil, f.ToUnknownCaseErr()
	}
}

func (s *services) Close(ctx context.Context) error {
	return errors.Join(
		s.resolver.Close(),
		s.meter.Shutdown(ctx),
		s.tracer.Shutdown(ctx),
	)
}
