package breakerx

import (
	"sync"

	"github.com/sony/gobreaker/v2"
)

// StateChangeFunc is notified whenever a breaker changes state.
type StateChangeFunc func(name string, from, to gobreaker.State)

const sharedBreakerName = "shared"

// NewBreaker builds a breaker applying the policy of c.
func NewBreaker[T any](name string, c Config, onStateChange StateChangeFunc) *gobreaker.CircuitBreaker[T] {
	c = c.WithDefaults()
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          name,
		MaxRequests:   c.HalfOpenMaxRequests,
		Interval:      c.Interval,
		Timeout:       c.CoolDown,
		ReadyToTrip:   c.ReadyToTrip,
		OnStateChange: onStateChange,
	})
}

// Registry hands out breakers according to the configured granularity.
// Breakers are created lazily and live as long as the registry.
type Registry[T any] struct {
	config        Config
	onStateChange StateChangeFunc

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[T]
}

type RegistryOption func(*registryOptions)

type registryOptions struct {
	onStateChange StateChangeFunc
}

func WithStateChangeListener(fn StateChangeFunc) RegistryOption {
	return func(o *registryOptions) {
		o.onStateChange = fn
	}
}

func NewRegistry[T any](c Config, opts ...RegistryOption) *Registry[T] {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &Registry[T]{
		config:        c.WithDefaults(),
		onStateChange: o.onStateChange,
		breakers:      map[string]*gobreaker.CircuitBreaker[T]{},
	}
}

// Get returns the breaker guarding key. With shared granularity every key
// gets the same breaker.
func (r *Registry[T]) Get(key string) *gobreaker.CircuitBreaker[T] {
	name := sharedBreakerName
	if r.config.Granularity == GranularityPerFlag {
		name = key
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = NewBreaker[T](name, r.config, r.onStateChange)
		r.breakers[name] = cb
	}
	return cb
}

// States returns a snapshot of every breaker created so far.
func (r *Registry[T]) States() map[string]gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]gobreaker.State, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.State()
	}
	return out
}

func (r *Registry[T]) Config() Config {
	return r.config
}
