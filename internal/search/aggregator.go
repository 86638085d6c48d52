package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	"lunemusic/internal/metrics"
)

const (
	defaultLiveLimit = 10
	defaultTimeout   = 15 * time.Second
)

var ErrInvalidQuery = errors.New("query is required")

// Aggregator answers a text query from the catalog when it has any match and
// from the live providers otherwise. The two sources are never mixed.
type Aggregator struct {
	catalog    ports.CatalogStore
	audio      LiveProvider
	video      LiveProvider
	liveLimit  int
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
	cache      *liveCache
	breakers   map[string]*breaker
	namespaces []domain.Namespace
}

type AggregatorOption func(*Aggregator)

func WithLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithLiveLimit(limit int) AggregatorOption {
	return func(a *Aggregator) {
		if limit > 0 {
			a.liveLimit = limit
		}
	}
}

func WithTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

func WithCacheTTL(ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if ttl > 0 {
			a.cache.ttl = ttl
		}
	}
}

func WithCacheDisabled(disabled bool) AggregatorOption {
	return func(a *Aggregator) {
		a.cache.disabled = disabled
	}
}

func WithRedisCache(backend *RedisCacheBackend) AggregatorOption {
	return func(a *Aggregator) {
		a.cache.redis = backend
	}
}

func withClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(catalog ports.CatalogStore, audio, video LiveProvider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		catalog:    catalog,
		audio:      audio,
		video:      video,
		liveLimit:  defaultLiveLimit,
		timeout:    defaultTimeout,
		logger:     slog.Default(),
		now:        time.Now,
		cache:      newLiveCache(),
		namespaces: domain.CatalogNamespaces,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.breakers = make(map[string]*breaker)
	for _, p := range []LiveProvider{a.audio, a.video} {
		if p != nil {
			a.breakers[p.Name()] = &breaker{}
		}
	}
	return a
}

// Aggregate returns the ordered results for query. An empty slice with a nil
// error means nothing matched anywhere.
func (a *Aggregator) Aggregate(ctx context.Context, query string) ([]domain.SearchResultItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	matcher := BuildMatcher(query)
	if !matcher.Empty() && a.catalog != nil {
		items, err := a.searchCatalog(runCtx, matcher)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			metrics.SearchesTotal.WithLabelValues("catalog").Inc()
			return items, nil
		}
	}

	items := a.searchLive(runCtx, query)
	if len(items) == 0 {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.SearchesTotal.WithLabelValues("live").Inc()
	}
	return items, nil
}

func (a *Aggregator) searchCatalog(ctx context.Context, matcher Matcher) ([]domain.SearchResultItem, error) {
	perNamespace := make([][]domain.CatalogEntry, len(a.namespaces))
	g, gctx := errgroup.WithContext(ctx)
	for i, ns := range a.namespaces {
		g.Go(func() error {
			entries, err := a.catalog.Match(gctx, ns, matcher.Pattern())
			if err != nil {
				return fmt.Errorf("catalog %s: %w", ns, err)
			}
			perNamespace[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []domain.SearchResultItem
	for _, entries := range perNamespace {
		for _, entry := range entries {
			items = append(items, catalogItem(entry))
		}
	}
	return items, nil
}

func (a *Aggregator) searchLive(ctx context.Context, query string) []domain.SearchResultItem {
	key := cacheKey(query)
	if cached, ok := a.cache.lookup(ctx, key, a.now()); ok {
		return cached
	}

	var audioItems, videoItems []domain.SearchResultItem
	var g errgroup.Group
	g.Go(func() error {
		audioItems = a.queryProvider(ctx, a.audio, query)
		return nil
	})
	g.Go(func() error {
		videoItems = a.queryProvider(ctx, a.video, query)
		return nil
	})
	_ = g.Wait()

	items := make([]domain.SearchResultItem, 0, len(audioItems)+len(videoItems))
	items = append(items, audioItems...)
	items = append(items, videoItems...)
	if len(items) > 0 {
		a.cache.store(ctx, key, items, a.now())
	}
	return items
}

// queryProvider never fails the aggregate: an erroring or blocked provider
// contributes no items.
func (a *Aggregator) queryProvider(ctx context.Context, provider LiveProvider, query string) []domain.SearchResultItem {
	if provider == nil {
		return nil
	}
	name := provider.Name()
	cb := a.breakers[name]
	if until, lastErr, open := cb.open(a.now()); open {
		a.logger.Debug("provider skipped, circuit open",
			slog.String("provider", name),
			slog.Time("blockedUntil", until),
			slog.String("lastError", lastErr),
		)
		return nil
	}

	startedAt := time.Now()
	items, err := provider.Search(ctx, query, a.liveLimit)
	cb.observe(name, err, time.Since(startedAt), a.now())
	if err != nil {
		a.logger.Warn("provider search failed",
			slog.String("provider", name),
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(items) > a.liveLimit {
		items = items[:a.liveLimit]
	}
	return items
}

func catalogItem(entry domain.CatalogEntry) domain.SearchResultItem {
	return domain.SearchResultItem{
		Title:        entry.Title,
		Artist:       entry.Artist,
		Duration:     domain.Seconds(entry.Duration),
		Origin:       domain.CatalogOrigin(entry.Namespace),
		SelectionKey: entry.ID,
	}
}
