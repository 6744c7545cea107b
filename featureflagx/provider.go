package featureflagx

import (
	"context"
	"time"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultCacheSize    = 100
)

// ProviderOptions are handed to a provider when it initializes.
type ProviderOptions struct {
	APIKey           string
	PollInterval     time.Duration
	StreamEnabled    bool
	AnalyticsEnabled bool
	CacheSize        int
}

func DefaultProviderOptions() ProviderOptions {
	return ProviderOptions{
		PollInterval:     DefaultPollInterval,
		StreamEnabled:    true,
		AnalyticsEnabled: true,
		CacheSize:        DefaultCacheSize,
	}
}

// Provider evaluates flags remotely.
//
// Initialize is called once before the first evaluation, and again after a
// failure. BoolEvaluation must honour ctx cancellation. An error from either
// makes the resolver fall back to the local table.
type Provider interface {
	Initialize(ctx context.Context, opts ProviderOptions) error
	BoolEvaluation(ctx context.Context, flag string, target Target, defaultValue bool) (bool, error)
	Close() error
}
