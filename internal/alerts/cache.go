package alerts

import (
	"sort"
	"sync"
	"time"

	"github.com/benmeehan/route-sentinel/internal/models"
)

// Cache holds the latest alert snapshot keyed by alert key. A snapshot always replaces the
// previous contents in full.
type Cache struct {
	mu        sync.RWMutex
	alerts    map[string]models.Alert
	updatedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{alerts: make(map[string]models.Alert)}
}

// Replace swaps in a new snapshot. Records without a key are dropped; on duplicate keys the
// last record wins.
func (c *Cache) Replace(snapshot []models.Alert, at time.Time) {
	next := make(map[string]models.Alert, len(snapshot))
	for _, a := range snapshot {
		if a.Key == "" {
			continue
		}
		next[a.Key] = a
	}

	c.mu.Lock()
	c.alerts = next
	c.updatedAt = at
	c.mu.Unlock()
}

// Snapshot returns the cached alerts, newest first.
func (c *Cache) Snapshot() []models.Alert {
	c.mu.RLock()
	out := make([]models.Alert, 0, len(c.alerts))
	for _, a := range c.alerts {
		out = append(out, a)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Get returns the alert stored under key.
func (c *Cache) Get(key string) (models.Alert, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.alerts[key]
	return a, ok
}

// Len returns the number of cached alerts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.alerts)
}

// UpdatedAt returns when the current snapshot was applied.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
