package ports

import (
	"context"

	"lunemusic/internal/domain"
)

// Fetcher downloads a track from its provider, converts it, publishes it to
// the requester and the distribution channel and reports what was published.
type Fetcher interface {
	FetchAndPublish(ctx context.Context, providerID string, to domain.Delivery) (domain.Track, error)
}

// Replayer re-sends an already published catalog entry to a requester.
type Replayer interface {
	Replay(ctx context.Context, entry domain.CatalogEntry, to domain.Delivery) error
}
