package pipeline

import (
	"context"
	"fmt"
	"strings"

	"lunemusic/internal/domain"
)

// MediaSource resolves a provider id to downloadable media.
type MediaSource interface {
	Media(ctx context.Context, providerID string) (domain.Media, error)
}

// Fetcher runs the pipeline for one namespace's provider.
type Fetcher struct {
	ns       domain.Namespace
	source   MediaSource
	pipeline *Pipeline
}

func NewFetcher(ns domain.Namespace, source MediaSource, pipeline *Pipeline) *Fetcher {
	return &Fetcher{ns: ns, source: source, pipeline: pipeline}
}

func (f *Fetcher) FetchAndPublish(ctx context.Context, providerID string, to domain.Delivery) (domain.Track, error) {
	media, err := f.source.Media(ctx, providerID)
	if err != nil {
		return domain.Track{}, fmt.Errorf("%s metadata: %w", f.ns, err)
	}
	if strings.TrimSpace(media.ProviderID) == "" {
		media.ProviderID = providerID
	}
	return f.pipeline.Run(ctx, f.ns, media.WithFallbacks(), to)
}
