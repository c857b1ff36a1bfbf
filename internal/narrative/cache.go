package narrative

import (
	"sync"
	"time"
)

// Cache holds the summary for the currently selected trial. It keeps a
// single entry: storing a summary for another trial replaces it, so a
// change of selection invalidates the previous summary. Entries also
// expire after the TTL; a non-positive TTL never expires.
type Cache struct {
	mu        sync.Mutex
	ttl       time.Duration
	key       string
	value     Summary
	expiresAt time.Time
	set       bool
	now       func() time.Time
}

// NewCache returns an empty cache.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns the cached summary when it belongs to key and has not expired.
func (c *Cache) Get(key string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.set || c.key != key {
		return Summary{}, false
	}
	if c.ttl > 0 && c.now().After(c.expiresAt) {
		c.clear()
		return Summary{}, false
	}
	return c.value, true
}

// Put stores value under key, replacing any entry for another key.
func (c *Cache) Put(key string, value Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = key
	c.value = value
	c.expiresAt = c.now().Add(c.ttl)
	c.set = true
}

// Invalidate drops the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

// Key reports the trial the cache currently holds, if any.
func (c *Cache) Key() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key, c.set
}

func (c *Cache) clear() {
	c.key = ""
	c.value = Summary{}
	c.set = false
}
