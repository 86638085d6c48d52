package search

import (
	"context"

	"lunemusic/internal/domain"
)

// LiveProvider searches a remote catalog. Items it returns must carry a live
// origin and a provider-native selection key.
type LiveProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResultItem, error)
}
