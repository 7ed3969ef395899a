package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     string
	timestamp time.Time
}

// Cache is an in-process string store with a fixed TTL. It backs price
// lookups and short-lived verification codes.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(e.timestamp) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, timestamp: time.Now()}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}
