package workspace

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	graph   *Graph
	expires time.Time
}

// Cache keeps recently built graphs per customer for a short TTL. Concurrent
// misses for the same key share one build, which keeps running when the
// caller that started it goes away. Failed builds are not stored.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns a cache with the given TTL. A TTL of zero disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached graph for key or calls build.
func (c *Cache) Get(ctx context.Context, key string, build func(context.Context) (*Graph, error)) (*Graph, error) {
	if c == nil || c.ttl <= 0 {
		return build(ctx)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.graph, nil
	}
	c.mu.Unlock()

	// the shared build outlives any single caller; Builder's deadline bounds it
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		g, err := build(buildCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{graph: g, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return g, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Graph), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached graph for key.
func (c *Cache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
