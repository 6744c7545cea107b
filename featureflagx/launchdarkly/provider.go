package launchdarkly

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	ldclient "gopkg.in/launchdarkly/go-server-sdk.v5"
	"gopkg.in/launchdarkly/go-server-sdk.v5/interfaces"
	"gopkg.in/launchdarkly/go-server-sdk.v5/ldcomponents"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/loggerx"
)

// defaultWaitFor bounds client startup when Initialize gets a context without
// a deadline.
const defaultWaitFor = 5 * time.Second

const anonymousKey = "anonymous"

// Provider evaluates flags with the LaunchDarkly server SDK.
type Provider struct {
	config featureflagx.LaunchDarklyProviderConfig
	logger *loggerx.Logger

	mu     sync.RWMutex
	client *ldclient.LDClient
}

var _ featureflagx.Provider = (*Provider)(nil)

// New returns a provider that is not connected until Initialize is called.
func New(c featureflagx.LaunchDarklyProviderConfig, l *loggerx.Logger) *Provider {
	if l == nil {
		l = loggerx.NewDefault(io.Discard)
	}
	return &Provider{
		config: c,
		logger: l,
	}
}

// Initialize starts the SDK client and waits until it has received flag data,
// or until ctx expires.
func (p *Provider) Initialize(ctx context.Context, opts featureflagx.ProviderOptions) error {
	if opts.APIKey == "" {
		return errorx.InvalidArgumentErrorf("a LaunchDarkly SDK key is required")
	}

	waitFor := defaultWaitFor
	if deadline, ok := ctx.Deadline(); ok {
		waitFor = time.Until(deadline)
	}

	client, err := ldclient.MakeCustomClient(opts.APIKey, p.clientConfig(opts), waitFor)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return errorx.UnavailableErrorf("LaunchDarkly client did not start: %s", err.Error()).WithOriginalError(err)
	}

	p.mu.Lock()
	previous := p.client
	p.client = client
	p.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

func (p *Provider) clientConfig(opts featureflagx.ProviderOptions) ldclient.Config {
	c := ldclient.Config{
		Logging:    ldcomponents.Logging().Loggers(p.loggers()),
		DataSource: p.dataSource(opts),
	}

	if !opts.AnalyticsEnabled {
		c.Events = ldcomponents.NoEvents()
		c.DiagnosticOptOut = true
		return c
	}

	events := ldcomponents.SendEvents().UserKeysCapacity(opts.CacheSize)
	if p.config.EventsURI != "" {
		events = events.BaseURI(p.config.EventsURI)
	}
	c.Events = events
	return c
}

func (p *Provider) dataSource(opts featureflagx.ProviderOptions) interfaces.DataSourceFactory {
	if opts.StreamEnabled {
		ds := ldcomponents.StreamingDataSource()
		if p.config.StreamURI != "" {
			ds = ds.BaseURI(p.config.StreamURI)
		}
		return ds
	}

	ds := ldcomponents.PollingDataSource().PollInterval(opts.PollInterval)
	if p.config.BaseURI != "" {
		ds = ds.BaseURI(p.config.BaseURI)
	}
	return ds
}

func (p *Provider) loggers() ldlog.Loggers {
	loggers := ldlog.Loggers{}
	loggers.SetBaseLoggerForLevel(ldlog.Debug, p.logger.AtLevel(slog.LevelDebug))
	loggers.SetBaseLoggerForLevel(ldlog.Info, p.logger.AtLevel(slog.LevelInfo))
	loggers.SetBaseLoggerForLevel(ldlog.Warn, p.logger.AtLevel(slog.LevelWarn))
	loggers.SetBaseLoggerForLevel(ldlog.Error, p.logger.AtLevel(slog.LevelError))
	loggers.SetPrefix("[launchdarkly]")
	return loggers
}

// BoolEvaluation evaluates flag for target. A flag unknown to LaunchDarkly
// evaluates to defaultValue without error.
func (p *Provider) BoolEvaluation(ctx context.Context, flag string, target featureflagx.Target, defaultValue bool) (bool, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()

	if client == nil {
		return defaultValue, errorx.FailedPreconditionErrorf("LaunchDarkly client is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return defaultValue, err
	}

	v, detail, err := client.BoolVariationDetail(flag, User(target), defaultValue)
	if err == nil {
		return v, nil
	}
	if detail.Reason.GetKind() == ldreason.EvalReasonError && detail.Reason.GetErrorKind() == ldreason.EvalErrorFlagNotFound {
		return defaultValue, nil
	}
	return defaultValue, errorx.UnavailableErrorf("LaunchDarkly evaluation of %q failed: %s", flag, err.Error()).WithOriginalError(err)
}

func (p *Provider) Close() error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// User maps a target onto a LaunchDarkly user. Targets without identifier
// become anonymous users.
func User(t featureflagx.Target) lduser.User {
	key := t.Identifier
	if key == "" {
		key = anonymousKey
	}

	b := lduser.NewUserBuilder(key)
	if t.Identifier == "" {
		b.Anonymous(true)
	}
	if t.Name != "" {
		b.Name(t.Name)
	}
	for k, v := range t.Attributes {
		b.Custom(k, ldvalue.String(v))
	}
	return b.Build()
}
