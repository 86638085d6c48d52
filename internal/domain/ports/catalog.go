package ports

import (
	"context"

	"lunemusic/internal/domain"
)

// CatalogStore persists published tracks, one collection per namespace.
// Lookups return domain.ErrNotFound on a miss; Create returns
// domain.ErrAlreadyExists when the provider id is already stored.
type CatalogStore interface {
	FindByID(ctx context.Context, ns domain.Namespace, id string) (domain.CatalogEntry, error)
	FindByProviderID(ctx context.Context, ns domain.Namespace, providerID string) (domain.CatalogEntry, error)
	FindBySourceURL(ctx context.Context, ns domain.Namespace, sourceURL string) (domain.CatalogEntry, error)
	// Match returns entries whose title or artist matches pattern, a
	// case-insensitive regular expression, in storage order.
	Match(ctx context.Context, ns domain.Namespace, pattern string) ([]domain.CatalogEntry, error)
	Create(ctx context.Context, entry domain.CatalogEntry) (domain.CatalogEntry, error)
	Count(ctx context.Context, ns domain.Namespace) (int64, error)
}
