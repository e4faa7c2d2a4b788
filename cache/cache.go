package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/imageboard/models"
)

// entry holds a cached feed with its creation timestamp.
type entry struct {
	posts     []models.Post
	createdAt time.Time
}

// Cache is a small in-memory cache of normalized post feeds keyed by locale.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries feeds for ttl each. A
// background goroutine evicts expired feeds every ttl until Close is called.
// A non-positive ttl disables caching.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key builds the cache key of a feed.
func Key(locale string) string {
	if locale == "" {
		return "feed|all"
	}
	return "feed|" + locale
}

// Get returns the cached feed for key if it is younger than the TTL.
func (c *Cache) Get(key string) ([]models.Post, bool) {
	if c.ttl <= 0 {
		c.misses.Add(1)
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > c.ttl {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.posts, true
}

// Set stores a feed. If the cache is at capacity, a random entry is evicted
// to make room.
func (c *Cache) Set(key string, posts []models.Post) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Map iteration order is random, so this drops an arbitrary entry.
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		posts:     posts,
		createdAt: time.Now(),
	}
}

// Invalidate drops every cached feed. Called after a post mutation or a CMS
// webhook.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.store = make(map[string]*entry)
	c.mu.Unlock()
}

// Stats reports the cache size and hit counters.
func (c *Cache) Stats() models.CacheStats {
	c.mu.RLock()
	n := len(c.store)
	c.mu.RUnlock()
	return models.CacheStats{
		Entries:    n,
		MaxEntries: c.maxEntries,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanupLoop evicts expired entries once per TTL.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired(time.Now())
		}
	}
}

func (c *Cache) evictExpired(now time.Time) {
	cutoff := now.Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
