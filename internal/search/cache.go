package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"lunemusic/internal/domain"
	"lunemusic/internal/metrics"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheMaxEntries = 500
)

type cachedItems struct {
	items     []domain.SearchResultItem
	updatedAt time.Time
	expiresAt time.Time
}

// liveCache keeps live provider results per normalized query. Redis, when
// configured, is consulted first so results survive restarts and are shared
// between processes.
type liveCache struct {
	mu         sync.Mutex
	entries    map[string]*cachedItems
	ttl        time.Duration
	maxEntries int
	disabled   bool
	redis      *RedisCacheBackend
}

func newLiveCache() *liveCache {
	return &liveCache{
		entries:    make(map[string]*cachedItems),
		ttl:        defaultCacheTTL,
		maxEntries: defaultCacheMaxEntries,
	}
}

func (c *liveCache) lookup(ctx context.Context, key string, now time.Time) ([]domain.SearchResultItem, bool) {
	if c.disabled || key == "" {
		return nil, false
	}
	if c.redis != nil {
		items, found, err := c.redis.Get(ctx, key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			c.storeMemory(key, items, now)
			return items, true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return cloneItems(entry.items), true
}

func (c *liveCache) store(ctx context.Context, key string, items []domain.SearchResultItem, now time.Time) {
	if c.disabled || key == "" {
		return
	}
	if c.redis != nil {
		_ = c.redis.Set(ctx, key, items, c.ttl)
	}
	c.storeMemory(key, items, now)
}

func (c *liveCache) storeMemory(key string, items []domain.SearchResultItem, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedItems{
		items:     cloneItems(items),
		updatedAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.trimLocked(now)
}

func (c *liveCache) trimLocked(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedItems
	}
	items := make([]pair, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-c.maxEntries; i++ {
		delete(c.entries, items[i].key)
	}
}

func cloneItems(items []domain.SearchResultItem) []domain.SearchResultItem {
	if items == nil {
		return nil
	}
	return append([]domain.SearchResultItem(nil), items...)
}
