package application

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/lab-booking/internal/layout"
)

// occupancyCache stores recently computed occupancy projections to avoid
// repeated layout runs for identical queries while events remain unchanged.
// Any event mutation flushes the whole cache; entries also age out on TTL.
type occupancyCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]occupancyCacheEntry
}

type occupancyCacheEntry struct {
	placements []layout.Placement
	expiresAt  time.Time
}

func newOccupancyCache(ttl time.Duration, maxEntries int, now func() time.Time) *occupancyCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &occupancyCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]occupancyCacheEntry),
	}
}

func (c *occupancyCache) Get(key string) ([]layout.Placement, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return clonePlacements(entry.placements), true
}

func (c *occupancyCache) Store(key string, placements []layout.Placement) {
	if c == nil {
		return
	}
	cloned := clonePlacements(placements)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = occupancyCacheEntry{placements: cloned, expiresAt: expiry}
}

func (c *occupancyCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]occupancyCacheEntry)
	c.mu.Unlock()
}

func (c *occupancyCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *occupancyCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func clonePlacements(placements []layout.Placement) []layout.Placement {
	if len(placements) == 0 {
		return nil
	}
	out := make([]layout.Placement, len(placements))
	copy(out, placements)
	return out
}

func buildOccupancyCacheKey(params OccupancyParams) string {
	resources := make([]string, len(params.ResourceIDs))
	copy(resources, params.ResourceIDs)
	sort.Strings(resources)

	builder := strings.Builder{}
	builder.WriteString(string(params.Mode))
	builder.WriteString("|")
	builder.WriteString(params.From.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(params.To.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(strings.Join(resources, ","))
	return builder.String()
}
