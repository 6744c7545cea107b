package inmemory

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/featureflagx"
)

// Provider serves flags from memory. Values, latency and failures can be
// changed at runtime, which makes it a stand-in for a remote provider in
// development and tests.
type Provider struct {
	mu          sync.RWMutex
	flags       map[string]bool
	latency     time.Duration
	evalErr     error
	initErr     error
	initialized bool
	opts        featureflagx.ProviderOptions

	evaluations atomic.Int64
}

var _ featureflagx.Provider = (*Provider)(nil)

func New(c featureflagx.InMemoryProviderConfig) *Provider {
	flags := maps.Clone(c.Flags)
	if flags == nil {
		flags = map[string]bool{}
	}
	return &Provider{
		flags:   flags,
		latency: c.Latency,
	}
}

func (p *Provider) Initialize(ctx context.Context, opts featureflagx.ProviderOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initErr != nil {
		return p.initErr
	}
	if opts.APIKey == "" {
		return errorx.InvalidArgumentErrorf("an api key is required")
	}
	p.opts = opts
	p.initialized = true
	return nil
}

func (p *Provider) BoolEvaluation(ctx context.Context, flag string, _ featureflagx.Target, defaultValue bool) (bool, error) {
	p.evaluations.Add(1)

	p.mu.RLock()
	initialized, latency, evalErr := p.initialized, p.latency, p.evalErr
	v, ok := p.flags[flag]
	p.mu.RUnlock()

	if !initialized {
		return defaultValue, errorx.FailedPreconditionErrorf("in-memory provider is not initialized")
	}

	if latency > 0 {
		t := time.NewTimer(latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return defaultValue, errors.WithStack(ctx.Err())
		}
	}

	if evalErr != nil {
		return defaultValue, evalErr
	}
	if !ok {
		return defaultValue, nil
	}
	return v, nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = false
	return nil
}

func (p *Provider) Set(flag string, value bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags[flag] = value
}

func (p *Provider) Delete(flag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.flags, flag)
}

// SetLatency delays every following evaluation by d.
func (p *Provider) SetLatency(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = d
}

// SetError makes every following evaluation fail with err. A nil err
// restores normal answers.
func (p *Provider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evalErr = err
}

// SetInitError makes every following Initialize fail with err.
func (p *Provider) SetInitError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initErr = err
}

func (p *Provider) Options() featureflagx.ProviderOptions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Evaluations returns how many evaluations were requested so far.
func (p *Provider) Evaluations() int64 {
	return p.evaluations.Load()
}
