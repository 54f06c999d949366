package report

import (
	"sync"
	"time"
)

// Cache memoizes successful reports per normalized query period. Expiry is
// lazy, checked at read time; there is no background eviction. The cache is
// constructed once and injected, never a package global. Concurrent cold
// reads for the same key may both reach the upstream: the stampede is an
// accepted tradeoff at this system's request volume.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	report   Report
	cachedAt time.Time
}

// NewCache creates a report cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a fresh cached report for the key. Expired entries are
// dropped and reported as absent.
func (c *Cache) Get(key string) (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Report{}, false
	}
	if c.now().Sub(e.cachedAt) >= c.ttl {
		delete(c.entries, key)
		return Report{}, false
	}
	return e.report, true
}

// Put stores a report. Only called after a successful live fetch; degraded
// reports are never cached.
func (c *Cache) Put(key string, r Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{report: r, cachedAt: c.now()}
}

// Cooldown gates upstream calls after a persistent rate-limit signal.
// While active, fetches are skipped entirely and reports degrade. Resets
// with the process.
type Cooldown struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewCooldown creates an inactive gate.
func NewCooldown() *Cooldown {
	return &Cooldown{now: time.Now}
}

// Open activates the gate for d from now.
func (g *Cooldown) Open(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until = g.now().Add(d)
}

// Active reports whether upstream calls are currently suppressed.
func (g *Cooldown) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.until)
}
