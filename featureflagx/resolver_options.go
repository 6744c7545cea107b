package featureflagx

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/clinia/flagx/breakerx"
	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/otelx"
)

type ResolverOption func(*Resolver)

// WithProvider sets the remote provider. It is only used when an API key is
// configured too.
func WithProvider(p Provider) ResolverOption {
	return func(r *Resolver) {
		r.provider = p
	}
}

func WithAPIKey(apiKey string) ResolverOption {
	return func(r *Resolver) {
		r.providerOptions.APIKey = apiKey
	}
}

// WithProviderOptions replaces the options handed to Provider.Initialize,
// API key included.
func WithProviderOptions(opts ProviderOptions) ResolverOption {
	return func(r *Resolver) {
		r.providerOptions = opts
	}
}

func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

func WithInitTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.initTimeout = d
	}
}

func WithInitRetryInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.initRetryInterval = d
	}
}

func WithCircuitBreaker(c breakerx.Config) ResolverOption {
	return func(r *Resolver) {
		r.breakerConfig = c
	}
}

// WithDefaultTarget sets the target used when the context carries none.
func WithDefaultTarget(t Target) ResolverOption {
	return func(r *Resolver) {
		r.defaultTarget = t
	}
}

func WithLogger(l *loggerx.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

func WithTracer(t *otelx.Tracer) ResolverOption {
	return func(r *Resolver) {
		r.tracer = t
	}
}

func WithMeter(m metric.Meter) ResolverOption {
	return func(r *Resolver) {
		r.meter = m
	}
}
