package fusion

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
)

// Cache provides TTL-bounded in-memory caching of fused scores, so repeated
// fusion requests for the same context within a run window skip the engine
// fan-out.
type Cache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCache creates a fusion result cache
func NewCache(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func cacheKey(groupingKey string, id models.ContextID) string {
	return fmt.Sprintf("%s:%s", groupingKey, id)
}

// Get retrieves a cached final score
func (c *Cache) Get(groupingKey string, id models.ContextID) (models.FinalScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, found := c.cache.Get(cacheKey(groupingKey, id)); found {
		if score, ok := value.(models.FinalScore); ok {
			c.hitCount++
			c.updateMetrics()
			return score, true
		}
	}

	c.missCount++
	c.updateMetrics()
	return models.FinalScore{}, false
}

// Set stores a fused score
func (c *Cache) Set(groupingKey string, id models.ContextID, score models.FinalScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
	}
	c.cache.Set(cacheKey(groupingKey, id), score, c.ttl)
}

// Clear flushes the cache and resets counters
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.hitCount = 0
	c.missCount = 0
}

// Stats returns hit/miss counts and the hit ratio
func (c *Cache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statsLocked()
}

func (c *Cache) statsLocked() (hits, misses uint64, ratio float64) {
	hits = c.hitCount
	misses = c.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (c *Cache) updateMetrics() {
	_, _, ratio := c.statsLocked()
	metrics.FusionCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of cached scores
func (c *Cache) ItemCount() int {
	return c.cache.ItemCount()
}
