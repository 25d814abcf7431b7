package clientauth

import (
	"sync"
	"time"
)

// sweepInterval is the number of inserts between opportunistic sweeps of
// expired entries.
const sweepInterval = 256

// JTICache tracks client-assertion jti values that have already been
// presented, enforcing single use.
type JTICache struct {
	mu      sync.Mutex
	seen    map[string]time.Time // jti -> assertion expiry
	inserts int
}

func NewJTICache() *JTICache {
	return &JTICache{
		seen: make(map[string]time.Time),
	}
}

// SeenOrAdd records the jti and reports whether it was already present.
// Every sweepInterval inserts it also drops entries whose assertions have
// expired, so the cache only retains live assertions.
func (c *JTICache) SeenOrAdd(jti string, exp time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.seen[jti]; exists {
		return true
	}
	c.seen[jti] = exp
	c.inserts++
	if c.inserts%sweepInterval == 0 {
		c.sweep(time.Now())
	}
	return false
}

// Cleanup removes entries whose assertions have expired.
func (c *JTICache) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep(now)
}

// Len reports the number of tracked jti values.
func (c *JTICache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// sweep removes expired entries. The caller holds mu.
func (c *JTICache) sweep(now time.Time) {
	for jti, exp := range c.seen {
		if now.After(exp) {
			delete(c.seen, jti)
		}
	}
}
