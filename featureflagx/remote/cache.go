package remote

import (
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// cache keeps evaluations per flag and target identifier. Invalidation bumps
// a generation counter, which makes every key built before it unreachable.
type cache struct {
	store *ristretto.Cache
	ttl   time.Duration

	mu          sync.Mutex
	global      uint64
	generations map[string]uint64

	// ristretto does not guard its closed flag, so evaluations racing close
	// go through this lock.
	closeMu sync.RWMutex
	closed  bool
}

func newCache(size int, ttl time.Duration) (*cache, error) {
	if size < 1 {
		size = 1
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(size) * 10,
		MaxCost:            int64(size),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &cache{
		store:       store,
		ttl:         ttl,
		generations: map[string]uint64{},
	}, nil
}

// key builds the cache key under the current generations. Callers take it
// before evaluating so that an invalidation racing the evaluation wins.
func (c *cache) key(flag, identifier string) string {
	c.mu.Lock()
	g := c.generations[flag]
	global := c.global
	c.mu.Unlock()
	return strconv.FormatUint(global, 10) + "/" + strconv.FormatUint(g, 10) + "/" + flag + "/" + identifier
}

func (c *cache) get(key string) (evaluation, bool) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return evaluation{}, false
	}
	v, ok := c.store.Get(key)
	if !ok {
		return evaluation{}, false
	}
	e, ok := v.(evaluation)
	return e, ok
}

func (c *cache) set(key string, e evaluation) {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return
	}
	c.store.SetWithTTL(key, e, 1, c.ttl)
	c.store.Wait()
}

// invalidate drops the given flags, or everything when none is given.
func (c *cache) invalidate(flags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(flags) == 0 {
		c.global++
		return
	}
	for _, f := range flags {
		c.generations[f]++
	}
}

func (c *cache) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.store.Close()
}
