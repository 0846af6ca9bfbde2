package marketdata

import (
	"sync"
	"time"

	"github.com/mauv0809/portfolio-backtest/internal/models"
)

// Cache is a TTL cache for fetched price series, keyed by ticker and date
// range. It is constructed once in main and injected into the provider; the
// simulation core never sees it.
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	createdAt time.Time
	points    []models.PricePoint
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns a copy of the cached series for key, if present and fresh.
func (c *Cache) Get(key string) ([]models.PricePoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, false
	}

	points := make([]models.PricePoint, len(entry.points))
	copy(points, entry.points)
	return points, true
}

// Set stores a series under key, restarting its TTL.
func (c *Cache) Set(key string, points []models.PricePoint) {
	stored := make([]models.PricePoint, len(points))
	copy(stored, points)

	c.mu.Lock()
	c.entries[key] = cacheEntry{createdAt: time.Now(), points: stored}
	c.mu.Unlock()
}
