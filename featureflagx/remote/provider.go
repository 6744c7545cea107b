// Package remote evaluates flags against an HTTP flag service speaking the
// OpenFeature remote evaluation protocol.
package remote

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/httpx"
	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/retryx"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxIdleConnsPerHost   = 16
	// A bulk evaluation of every flag of a project stays far below this.
	maxResponseBytes = 4 << 20
	// Must leave room for the final analytics flush.
	closeTimeout = 5 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type (
	Provider struct {
		config        featureflagx.RemoteProviderConfig
		logger        *loggerx.Logger
		client        *httpx.Client
		streamClient  *httpx.Client
		retryInterval time.Duration
		retryCount    int

		mu        sync.RWMutex
		baseURL   string
		opts      featureflagx.ProviderOptions
		cache     *cache
		analytics *analytics
		cancel    context.CancelFunc
		loops     *sync.WaitGroup
	}

	Option func(*Provider)
)

var _ featureflagx.Provider = (*Provider)(nil)

func WithLogger(l *loggerx.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// WithHTTPClient replaces the client used for evaluations and analytics.
func WithHTTPClient(c *httpx.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithAnalyticsRetry sets the first retry interval and the attempt count of
// analytics flushes.
func WithAnalyticsRetry(interval time.Duration, count int) Option {
	return func(p *Provider) {
		p.retryInterval = interval
		p.retryCount = count
	}
}

func New(c featureflagx.RemoteProviderConfig, opts ...Option) *Provider {
	p := &Provider{
		config: c,
		logger: loggerx.NewDefault(io.Discard),
		client: httpx.NewClientWithOptions(
			httpx.WithTimeout(defaultRequestTimeout),
			httpx.WithMaxIdleConnsPerHost(maxIdleConnsPerHost),
			httpx.WithMaxResponseBytes(maxResponseBytes),
			httpx.WithTracing(),
		),
		streamClient:  httpx.NewClientWithOptions(httpx.WithTracing()),
		retryInterval: retryx.DefaultInterval,
		retryCount:    retryx.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize checks the api key with a bulk evaluation, seeds the cache with
// its result and starts the change stream and analytics loops as configured.
// Calling it again restarts the provider.
func (p *Provider) Initialize(ctx context.Context, opts featureflagx.ProviderOptions) error {
	if opts.APIKey == "" {
		return errorx.InvalidArgumentErrorf("an api key is required to reach the flag service")
	}
	if err := validate.Struct(p.config); err != nil {
		return errorx.InvalidArgumentErrorf("invalid remote provider configuration: %s", err.Error())
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = featureflagx.DefaultPollInterval
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = featureflagx.DefaultCacheSize
	}

	_ = p.Close()

	c, err := newCache(opts.CacheSize, opts.PollInterval)
	if err != nil {
		return errorx.InternalErrorf("could not create the evaluation cache: %s", err.Error())
	}

	a := newAnalytics()

	p.mu.Lock()
	p.baseURL = strings.TrimSuffix(p.config.URL, "/")
	p.opts = opts
	p.cache = c
	p.analytics = a
	p.mu.Unlock()

	all, err := p.evaluateAll(ctx)
	if err != nil {
		_ = p.Close()
		return err
	}
	for _, e := range all {
		c.set(c.key(e.key, ""), e)
	}

	// Background loops outlive the initialisation context.
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	loops := &sync.WaitGroup{}
	p.mu.Lock()
	p.cancel = cancel
	p.loops = loops
	p.mu.Unlock()

	if opts.StreamEnabled {
		loops.Add(1)
		go p.runStream(bctx, loops, c)
	}
	if opts.AnalyticsEnabled {
		loops.Add(1)
		go p.runAnalytics(bctx, loops, a, opts.PollInterval)
	}

	p.logger.Info(ctx, "remote feature flag provider ready",
		attribute.String("url", p.config.URL),
		attribute.Int("flags", len(all)),
		attribute.Bool("stream", opts.StreamEnabled),
		attribute.Bool("analytics", opts.AnalyticsEnabled),
	)
	return nil
}

func (p *Provider) BoolEvaluation(ctx context.Context, flag string, target featureflagx.Target, defaultValue bool) (bool, error) {
	p.mu.RLock()
	c, a, analyticsOn := p.cache, p.analytics, p.opts.AnalyticsEnabled
	p.mu.RUnlock()

	if c == nil {
		return defaultValue, errorx.FailedPreconditionErrorf("remote provider is not initialized")
	}

	key := c.key(flag, target.Identifier)
	e, ok := c.get(key)
	if !ok {
		var err error
		e, err = p.evaluate(ctx, flag, target)
		if err != nil {
			return defaultValue, err
		}
		c.set(key, e)
	}

	value := defaultValue
	if e.found {
		value = e.value
	}
	if analyticsOn {
		a.record(flag, value)
	}
	return value, nil
}

// Close stops the background loops, flushing pending analytics, and releases
// the cache. Loops that do not stop within closeTimeout are left behind.
func (p *Provider) Close() error {
	p.mu.Lock()
	cancel, loops, c := p.cancel, p.loops, p.cache
	p.cancel, p.loops, p.cache = nil, nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loops != nil {
		done := make(chan struct{})
		go func() {
			loops.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeTimeout):
			p.logger.Warn(context.Background(), "remote feature flag provider loops did not stop in time",
				attribute.String("timeout", closeTimeout.String()),
			)
		}
	}
	if c != nil {
		c.close()
	}
	return nil
}
