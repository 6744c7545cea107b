package featureflagx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// stubProvider is a scriptable Provider. Zero delays answer immediately.
type stubProvider struct {
	mu        sync.Mutex
	values    map[string]bool
	evalErr   error
	evalDelay time.Duration
	evalPanic bool
	initErr   error
	initDelay time.Duration
	targets   []Target
	opts      ProviderOptions

	initCalls atomic.Int32
	evalCalls atomic.Int32
	closed    atomic.Bool
}

var _ Provider = (*stubProvider)(nil)

func newStubProvider(values map[string]bool) *stubProvider {
	return &stubProvider{values: values}
}

func (p *stubProvider) Initialize(ctx context.Context, opts ProviderOptions) error {
	p.initCalls.Add(1)

	p.mu.Lock()
	p.opts = opts
	delay, err := p.initDelay, p.initErr
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *stubProvider) BoolEvaluation(ctx context.Context, flag string, target Target, defaultValue bool) (bool, error) {
	p.evalCalls.Add(1)

	p.mu.Lock()
	p.targets = append(p.targets, target)
	delay, err, panics := p.evalDelay, p.evalErr, p.evalPanic
	v, ok := p.values[flag]
	p.mu.Unlock()

	if panics {
		panic("provider exploded")
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err != nil {
		return false, err
	}
	if !ok {
		return defaultValue, nil
	}
	return v, nil
}

func (p *stubProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *stubProvider) set(fn func(p *stubProvider)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *stubProvider) lastTarget() Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.targets) == 0 {
		return Target{}
	}
	return p.targets[len(p.targets)-1]
}

// mapResolver resolves from a fixed map and counts calls.
type mapResolver struct {
	values map[string]bool
	calls  atomic.Int32
}

func (m *mapResolver) Resolve(_ context.Context, name string, def bool) bool {
	m.calls.Add(1)
	v, ok := m.values[name]
	if !ok {
		return def
	}
	return v
}
