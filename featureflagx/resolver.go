package featureflagx

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/clinia/flagx/breakerx"
	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/otelx"
	"github.com/clinia/flagx/tracex"
)

const resolverComponentName = "featureflagx.Resolver"

const initGroupKey = "init"

// Source tells where a resolved value came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceLocal    Source = "local"
	SourceDefault  Source = "default"
)

// Resolution is the outcome of a single flag resolution. Err holds the reason
// the provider was not used, if any. It is informational only.
type Resolution struct {
	Flag   string
	Value  bool
	Source Source
	Err    error
}

// Resolver evaluates flags against the provider and falls back to the local
// table, then to the caller's default, whenever the provider can not answer.
// It is safe for concurrent use.
type Resolver struct {
	table           *FeatureFlags
	provider        Provider
	providerOptions ProviderOptions
	defaultTarget   Target

	timeout           time.Duration
	initTimeout       time.Duration
	initRetryInterval time.Duration
	breakerConfig     breakerx.Config
	breakers          *breakerx.Registry[bool]

	logger  *loggerx.Logger
	tracer  *otelx.Tracer
	meter   metric.Meter
	metrics *metrics
	now     func() time.Time

	initGroup       singleflight.Group
	initialized     atomic.Bool
	initMu          sync.Mutex
	initErr         error
	lastInitAttempt time.Time
}

func NewResolver(table *FeatureFlags, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		table:             table,
		providerOptions:   DefaultProviderOptions(),
		timeout:           DefaultTimeout,
		initTimeout:       DefaultInitTimeout,
		initRetryInterval: DefaultInitRetryInterval,
		breakerConfig:     breakerx.DefaultConfig(),
		logger:            &loggerx.Logger{Logger: slog.New(slog.DiscardHandler)},
		tracer:            otelx.NewNoopTracer("featureflagx"),
		meter:             noop.NewMeterProvider().Meter("featureflagx"),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	m, err := newMetrics(r.meter)
	if err != nil {
		r.logger.WithError(err).Warn(context.Background(), "could not register feature flag metrics, falling back to no-op instruments")
		m, _ = newMetrics(noop.NewMeterProvider().Meter("featureflagx"))
	}
	r.metrics = m

	r.breakers = breakerx.NewRegistry[bool](r.breakerConfig, breakerx.WithStateChangeListener(r.onBreakerStateChange))
	return r
}

func (r *Resolver) instrument(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
	return tracex.InstrumentNext(ctx,
		func() *loggerx.Logger { return r.logger },
		func(context.Context) *otelx.Tracer { return r.tracer },
		resolverComponentName, name, opts...)
}

// Remote reports whether the resolver may call the provider at all.
func (r *Resolver) Remote() bool {
	return r.provider != nil && r.providerOptions.APIKey != ""
}

// Resolve returns the value of the flag. It never fails: any provider problem
// is absorbed and answered from the local table or def.
func (r *Resolver) Resolve(ctx context.Context, name string, def bool) bool {
	return r.ResolveDetail(ctx, name, def).Value
}

// ResolveDetail is Resolve with the source of the value and the reason for a
// fallback.
func (r *Resolver) ResolveDetail(ctx context.Context, name string, def bool) Resolution {
	ctx, span, l := r.instrument(ctx, "Resolve",
		trace.WithAttributes(attribute.String("featureflag.key", name)),
	)
	defer span.End()

	res := r.resolve(ctx, l, name, def)

	span.SetAttributes(
		attribute.Bool("featureflag.value", res.Value),
		attribute.String("featureflag.source", string(res.Source)),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	r.metrics.recordResolution(ctx, res)

	attrs := []attribute.KeyValue{
		attribute.Bool("featureflag.value", res.Value),
		attribute.String("featureflag.source", string(res.Source)),
	}
	if res.Err != nil {
		l = l.WithError(res.Err)
	}
	l.Debug(ctx, "feature flag resolved", attrs...)

	return res
}

func (r *Resolver) resolve(ctx context.Context, l *loggerx.Logger, name string, def bool) Resolution {
	if !r.Remote() {
		return r.fallback(name, def, nil)
	}

	if err := r.ensureInitialized(ctx); err != nil {
		return r.fallback(name, def, err)
	}

	target := r.defaultTarget
	if t, ok := TargetFromContext(ctx); ok {
		target = t
	}

	v, err := breakerx.CallWithFallback(ctx, r.breakers.Get(name), r.timeout,
		func(ctx context.Context) (bool, error) {
			start := time.Now()
			v, err := r.provider.BoolEvaluation(ctx, name, target, def)
			r.metrics.recordProviderDuration(ctx, time.Since(start), err)
			return v, err
		},
		func(error) bool { return def },
	)
	if err == nil {
		return Resolution{Flag: name, Value: v, Source: SourceProvider}
	}

	if !errors.Is(err, context.Canceled) {
		l.WithError(err).Warn(ctx, "feature flag provider failed, falling back to the local table")
	}
	return r.fallback(name, def, err)
}

func (r *Resolver) fallback(name string, def bool, err error) Resolution {
	source := SourceDefault
	if r.table.Has(name) {
		source = SourceLocal
	}
	return Resolution{
		Flag:   name,
		Value:  r.table.Lookup(name, def),
		Source: source,
		Err:    err,
	}
}

// ensureInitialized runs Provider.Initialize once. Concurrent callers share a
// single attempt. A failed attempt is not retried before initRetryInterval.
func (r *Resolver) ensureInitialized(ctx context.Context) error {
	if r.initialized.Load() {
		return nil
	}
	if err := r.recentInitFailure(); err != nil {
		return err
	}

	ch := r.initGroup.DoChan(initGroupKey, func() (interface{}, error) {
		if r.initialized.Load() {
			return nil, nil
		}
		if err := r.recentInitFailure(); err != nil {
			return nil, err
		}
		return nil, r.initialize(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func (r *Resolver) recentInitFailure() error {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.initErr != nil && r.now().Sub(r.lastInitAttempt) < r.initRetryInterval {
		return r.initErr
	}
	return nil
}

func (r *Resolver) initialize(ctx context.Context) error {
	ctx, span, l := r.instrument(ctx, "Initialize")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.initTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- errorx.InternalErrorf("provider initialization panicked: %v", rec)
			}
		}()
		done <- r.provider.Initialize(ctx, r.providerOptions)
	}()

	var err error
	select {
	case err = <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			err = errorx.DeadlineExceededErrorf("provider initialization did not complete within %s", r.initTimeout).WithOriginalError(err)
		}
	case <-ctx.Done():
		err = errorx.DeadlineExceededErrorf("provider initialization did not complete within %s", r.initTimeout)
	}

	r.initMu.Lock()
	defer r.initMu.Unlock()

	if err != nil {
		r.initErr = &ProviderInitError{Err: err}
		r.lastInitAttempt = r.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.WithError(err).Warn(ctx, "feature flag provider initialization failed, serving flags from the local table",
			attribute.String("retry_in", r.initRetryInterval.String()),
		)
		return r.initErr
	}

	r.initErr = nil
	r.initialized.Store(true)
	l.Info(ctx, "feature flag provider initialized")
	return nil
}

// Warmup initializes the provider ahead of the first resolution. Without a
// provider it does nothing. A failure is also reported by InitError and the
// next resolution after initRetryInterval tries again.
func (r *Resolver) Warmup(ctx context.Context) error {
	if !r.Remote() {
		return nil
	}
	return r.ensureInitialized(ctx)
}

// InitError returns the last provider initialization failure, if any.
func (r *Resolver) InitError() error {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.initErr
}

func (r *Resolver) Initialized() bool {
	return r.initialized.Load()
}

// BreakerStates returns the state of every circuit breaker in use.
func (r *Resolver) BreakerStates() map[string]gobreaker.State {
	return r.breakers.States()
}

func (r *Resolver) onBreakerStateChange(name string, from, to gobreaker.State) {
	ctx := context.Background()
	r.metrics.recordBreakerTransition(ctx, name, from, to)
	r.logger.Warn(ctx, "feature flag circuit breaker changed state",
		attribute.String("breaker", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)
}

// Close releases the provider.
func (r *Resolver) Close() error {
	if r.provider == nil {
		return nil
	}
	return errors.WithStack(r.provider.Close())
}
