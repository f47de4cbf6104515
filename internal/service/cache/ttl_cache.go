package cache

import (
	"sync"
	"time"
)

type item struct {
	value     any
	expiresAt int64 // unix nanos, 0 means never
}

// TTLCache is a small type-less cache for short-lived lookups, used to front
// the instrument catalog so every watchlist render does not hit upstream.
// Expired entries are purged lazily on read.
type TTLCache struct {
	mu    sync.RWMutex
	items map[string]item
}

func NewTTLCache() *TTLCache {
	return &TTLCache{items: make(map[string]item)}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if it.expiresAt != 0 && time.Now().UnixNano() > it.expiresAt {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	c.mu.Lock()
	c.items[key] = item{value: v, expiresAt: exp}
	c.mu.Unlock()
}
