// Package cache keeps short-lived copies of backend reference data (brands,
// colors, categories) so storefront pages do not refetch them per request.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type item struct {
	value   any
	expires time.Time
}

type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{items: make(map[string]item), ttl: ttl, now: time.Now}
}

// Set stores value under key for the default TTL, or ttl[0] when given.
func (c *Cache) Set(key string, value any, ttl ...time.Duration) {
	d := c.ttl
	if len(ttl) > 0 {
		d = ttl[0]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item{value: value, expires: c.now().Add(d)}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || c.now().After(it.expires) {
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge drops expired entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, it := range c.items {
		if now.After(it.expires) {
			delete(c.items, k)
		}
	}
}

// Janitor purges expired entries every interval until ctx is done.
func (c *Cache) Janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Purge()
		}
	}
}

// Fetch returns the cached value for key, or calls load and caches its result.
// Errors are not cached. A nil cache always calls load.
func Fetch[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := c.Get(key); ok {
			if t, ok := v.(T); ok {
				return t, nil
			}
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if c != nil {
		c.Set(key, v)
	}
	return v, nil
}

// SetClock replaces the time source; used by tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
