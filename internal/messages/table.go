package messages

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTableTTL is how long live overrides are cached before re-reading
// the store.
const DefaultTableTTL = 5 * time.Minute

// Table resolves message keys through the tiers: live store overrides,
// then the compiled-in fallback, then a placeholder. The live tier is
// cached with a TTL so a lookup per reply doesn't mean a query per
// reply; store failures degrade to the fallback tier.
type Table struct {
	store  *Store // nil means fallback-only
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	live     map[string]string
	loadedAt time.Time
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithStore attaches the live override store.
func WithStore(store *Store) TableOption {
	return func(t *Table) { t.store = store }
}

// WithTableTTL overrides the live-tier cache lifetime.
func WithTableTTL(ttl time.Duration) TableOption {
	return func(t *Table) { t.ttl = ttl }
}

// WithTableNow injects the time source for the cache.
func WithTableNow(now func() time.Time) TableOption {
	return func(t *Table) { t.now = now }
}

// WithTableLogger sets the logger for refresh diagnostics.
func WithTableLogger(logger *slog.Logger) TableOption {
	return func(t *Table) { t.logger = logger }
}

// NewTable creates a message table. Without WithStore it serves the
// compiled-in fallback only.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		ttl:    DefaultTableTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get resolves a key through the tiers and tags the source.
func (t *Table) Get(ctx context.Context, key string) Result {
	if text, ok := t.liveText(ctx, key); ok {
		return Result{Text: text, Source: SourceStore}
	}
	if text, ok := fallback[key]; ok {
		return Result{Text: text, Source: SourceFallback}
	}
	t.logger.Warn("message key has no text", "key", key)
	return Result{Text: fmt.Sprintf("[%s]", key), Source: SourcePlaceholder}
}

// Text is Get without the source tag.
func (t *Table) Text(ctx context.Context, key string) string {
	return t.Get(ctx, key).Text
}

// Textf resolves a template key and fills it.
func (t *Table) Textf(ctx context.Context, key string, args ...any) string {
	return fmt.Sprintf(t.Get(ctx, key).Text, args...)
}

// Invalidate discards the cached live tier.
func (t *Table) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadedAt = time.Time{}
	t.live = nil
}

func (t *Table) liveText(ctx context.Context, key string) (string, bool) {
	if t.store == nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.live == nil || t.now().Sub(t.loadedAt) >= t.ttl {
		live, err := t.store.All(ctx)
		if err != nil {
			t.logger.Warn("message table refresh failed, using fallback tier", "error", err)
			if t.live == nil {
				return "", false
			}
		} else {
			t.live = live
		}
		t.loadedAt = t.now()
	}

	text, ok := t.live[key]
	return text, ok
}
