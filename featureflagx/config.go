package featureflagx

import (
	"bytes"
	_ "embed"
	"io"
	"time"

	"github.com/clinia/flagx/breakerx"
)

const (
	DefaultTimeout           = 3 * time.Second
	DefaultInitTimeout       = 5 * time.Second
	DefaultInitRetryInterval = 5 * time.Second
)

type (
	Config struct {
		// APIKey enables the provider. Without it every flag is served from the
		// local table.
		APIKey    string          `json:"api_key"`
		Provider  string          `json:"provider"`
		Providers ProvidersConfig `json:"providers"`

		Timeout           time.Duration `json:"timeout"`
		InitTimeout       time.Duration `json:"init_timeout"`
		InitRetryInterval time.Duration `json:"init_retry_interval"`

		PollInterval     time.Duration `json:"poll_interval"`
		StreamEnabled    bool          `json:"stream_enabled"`
		AnalyticsEnabled bool          `json:"analytics_enabled"`
		CacheSize        int           `json:"cache_size"`

		CircuitBreaker breakerx.Config `json:"circuit_breaker"`
		Local          LocalConfig     `json:"local"`
		Target         Target          `json:"target"`
	}

	ProvidersConfig struct {
		InMemory     InMemoryProviderConfig     `json:"inmemory"`
		LaunchDarkly LaunchDarklyProviderConfig `json:"launchdarkly"`
		Remote       RemoteProviderConfig       `json:"remote"`
	}

	InMemoryProviderConfig struct {
		Flags map[string]bool `json:"flags"`
		// Latency delays every evaluation, to rehearse a slow provider.
		Latency time.Duration `json:"latency"`
	}

	LaunchDarklyProviderConfig struct {
		BaseURI   string `json:"base_uri"`
		StreamURI string `json:"stream_uri"`
		EventsURI string `json:"events_uri"`
	}

	RemoteProviderConfig struct {
		URL string `json:"url" validate:"required,url"`
	}

	LocalConfig struct {
		// Path of the properties file. Empty means DefaultLocalResource in the
		// working directory.
		Path string `json:"path"`
	}
)

const (
	ProviderInMemory     = "inmemory"
	ProviderLaunchDarkly = "launchdarkly"
	ProviderRemote       = "remote"
)

func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		InitTimeout:       DefaultInitTimeout,
		InitRetryInterval: DefaultInitRetryInterval,
		PollInterval:      DefaultPollInterval,
		StreamEnabled:     true,
		AnalyticsEnabled:  true,
		CacheSize:         DefaultCacheSize,
		CircuitBreaker:    breakerx.DefaultConfig(),
		Local:             LocalConfig{Path: DefaultLocalResource},
	}
}

// ProviderOptions returns what the configured provider is initialized with.
func (c Config) ProviderOptions() ProviderOptions {
	opts := DefaultProviderOptions()
	opts.APIKey = c.APIKey
	opts.StreamEnabled = c.StreamEnabled
	opts.AnalyticsEnabled = c.AnalyticsEnabled
	if c.PollInterval > 0 {
		opts.PollInterval = c.PollInterval
	}
	if c.CacheSize > 0 {
		opts.CacheSize = c.CacheSize
	}
	return opts
}

// ResolverOptions maps the configuration onto resolver options.
func (c Config) ResolverOptions() []ResolverOption {
	opts := []ResolverOption{
		WithAPIKey(c.APIKey),
		WithProviderOptions(c.ProviderOptions()),
		WithCircuitBreaker(c.CircuitBreaker),
		WithDefaultTarget(c.Target),
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.InitTimeout > 0 {
		opts = append(opts, WithInitTimeout(c.InitTimeout))
	}
	if c.InitRetryInterval > 0 {
		opts = append(opts, WithInitRetryInterval(c.InitRetryInterval))
	}
	return opts
}

//go:embed config.schema.json
var ConfigSchema string

const ConfigSchemaID = "clinia://feature-flags-config"

// AddConfigSchema adds the feature flags schema, and the schemas it
// references, to the compiler.
// The interface is specified instead of `jsonschema.Compiler` to allow the use of any jsonschema library fork or version.
func AddConfigSchema(c interface {
	AddResource(url string, r io.Reader) error
}) error {
	if err := breakerx.AddConfigSchema(c); err != nil {
		return err
	}
	return c.AddResource(ConfigSchemaID, bytes.NewBufferString(ConfigSchema))
}

// SchemaResources lists the schemas AddConfigSchema registers, keyed by id.
func SchemaResources() map[string]string {
	return map[string]string{
		ConfigSchemaID:          ConfigSchema,
		breakerx.ConfigSchemaID: breakerx.ConfigSchema,
	}
}
