package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a trigger snapshot is served before the
// cache re-reads the store.
const DefaultCacheTTL = 30 * time.Second

// Cache is a read-through snapshot of the trigger table and the items it
// points at. All resolver lookups go through it; the backing store is
// only touched when the snapshot is older than the TTL or after an
// explicit Invalidate.
//
// Refresh failures are not fatal: an existing snapshot keeps being
// served stale so a transient database error never makes the whole menu
// unmatchable mid-conversation.
type Cache struct {
	store  *Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	triggers map[string]int64
	items    map[int64]Item
	loadedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheTTL overrides the snapshot lifetime.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithCacheNow injects the time source. Tests use this to step the clock
// deterministically.
func WithCacheNow(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithCacheLogger sets the logger for refresh diagnostics.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates a cache over the given store. The first lookup loads
// the snapshot lazily.
func NewCache(store *Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the item id for a normalized phrase. The phrase must
// already be in canonical form (see textnorm.Normalize).
func (c *Cache) Lookup(ctx context.Context, phrase string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked(ctx)
	id, ok := c.triggers[phrase]
	return id, ok
}

// Item returns the cached item for an id.
func (c *Cache) Item(ctx context.Context, id int64) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked(ctx)
	it, ok := c.items[id]
	return it, ok
}

// Invalidate discards the current snapshot. The next lookup reloads from
// the store. Call this after editing the menu.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

func (c *Cache) refreshLocked(ctx context.Context) {
	if c.triggers != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return
	}

	triggers, err := c.store.Triggers(ctx)
	if err != nil {
		c.logger.Warn("trigger cache refresh failed, serving stale snapshot", "error", err)
		// Push loadedAt forward so a broken store isn't hammered on
		// every lookup.
		if c.triggers != nil {
			c.loadedAt = c.now()
		}
		return
	}

	items := make(map[int64]Item)
	seen := make(map[int64]bool)
	for _, id := range triggers {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, err := c.store.GetItem(ctx, id)
		if err != nil {
			c.logger.Warn("trigger cache item load failed", "item_id", id, "error", err)
			continue
		}
		items[id] = it
	}

	c.triggers = triggers
	c.items = items
	c.loadedAt = c.now()
}
