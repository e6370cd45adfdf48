package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/use-agent/pricewatch/models"
)

// entry holds a resolved quote with the time it was stored.
type entry struct {
	quote     models.Quote
	createdAt time.Time
}

// Cache is a small in-memory store of the latest quote per symbol.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries quotes. A background
// goroutine drops entries older than ttl; call Stop to end it.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(sweepInterval(ttl))
	}
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 12
	if iv < time.Second {
		iv = time.Second
	}
	return iv
}

// Key normalizes a symbol so "tcs" and " TCS" share an entry.
func Key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Get returns the cached quote for symbol if it is younger than maxAge.
// A non-positive maxAge disables the lookup.
func (c *Cache) Get(symbol string, maxAge time.Duration) (models.Quote, bool) {
	if maxAge <= 0 {
		return models.Quote{}, false
	}

	c.mu.RLock()
	e, ok := c.store[Key(symbol)]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return models.Quote{}, false
	}
	return e.quote, true
}

// Set stores q under its symbol. Sentinel quotes are never cached. When
// the cache is full an arbitrary entry is evicted.
func (c *Cache) Set(q models.Quote) {
	if q.Failed() || strings.TrimSpace(q.Price) == "" {
		return
	}
	key := Key(q.Symbol)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{quote: q, createdAt: c.now()}
}

// Len reports the number of cached quotes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the background sweep.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}
