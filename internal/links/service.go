package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	"lunemusic/internal/providers/saavn"
	"lunemusic/internal/providers/spotify"
	"lunemusic/internal/search"
	"lunemusic/internal/selection"
)

const spotifyMatchLimit = 10

type SelectionResolver interface {
	ResolveRequest(ctx context.Context, req selection.Request) selection.Outcome
}

type SaavnClient interface {
	LookupByLink(ctx context.Context, link string) (string, error)
	SearchSongs(ctx context.Context, query string, limit int) ([]saavn.Song, error)
}

type SpotifyClient interface {
	Track(ctx context.Context, id string) (spotify.Track, error)
}

// Service turns a pasted track link into a replay or a fetch.
type Service struct {
	catalog  ports.CatalogStore
	replayer ports.Replayer
	resolver SelectionResolver
	saavn    SaavnClient
	spotify  SpotifyClient
	logger   *slog.Logger
}

func NewService(catalog ports.CatalogStore, replayer ports.Replayer, resolver SelectionResolver, saavnClient SaavnClient, spotifyClient SpotifyClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog:  catalog,
		replayer: replayer,
		resolver: resolver,
		saavn:    saavnClient,
		spotify:  spotifyClient,
		logger:   logger,
	}
}

// Handle resolves link for the requester. onFetch runs before any download.
func (s *Service) Handle(ctx context.Context, link Link, to domain.Delivery, onFetch func()) selection.Outcome {
	switch link.Kind {
	case KindYouTube:
		return s.resolver.ResolveRequest(ctx, selection.Request{
			Namespace: domain.NamespaceVideo, ID: link.ID, To: to, OnFetch: onFetch,
		})
	case KindSaavn:
		return s.handleSaavn(ctx, link, to, onFetch)
	case KindSpotify:
		return s.handleSpotify(ctx, link, to, onFetch)
	default:
		return selection.Outcome{Status: selection.StatusFailed, Reason: selection.ReasonInvalidID, Err: selection.ErrInvalidSelection}
	}
}

func (s *Service) handleSaavn(ctx context.Context, link Link, to domain.Delivery, onFetch func()) selection.Outcome {
	entry, err := s.catalog.FindBySourceURL(ctx, domain.NamespaceAudio, link.URL)
	switch {
	case err == nil:
		return s.replay(ctx, entry, to)
	case !errors.Is(err, domain.ErrNotFound):
		return failed(selection.ReasonStoreError, fmt.Errorf("%w: %w", selection.ErrStore, err))
	}

	songID, err := s.saavn.LookupByLink(ctx, link.URL)
	if err != nil {
		if errors.Is(err, saavn.ErrSongNotFound) {
			return failed(selection.ReasonNotFound, selection.ErrNotFound)
		}
		return failed(selection.ReasonFetchError, fmt.Errorf("%w: %w", selection.ErrFetch, err))
	}
	return s.resolver.ResolveRequest(ctx, selection.Request{
		Namespace: domain.NamespaceAudio, ID: songID, To: to, OnFetch: onFetch,
	})
}

// handleSpotify prefers an exact Saavn match for the track so it lands in
// the audio catalog; otherwise the stream fetcher downloads it.
func (s *Service) handleSpotify(ctx context.Context, link Link, to domain.Delivery, onFetch func()) selection.Outcome {
	entry, err := s.catalog.FindByProviderID(ctx, domain.NamespaceStream, link.ID)
	switch {
	case err == nil:
		return s.replay(ctx, entry, to)
	case !errors.Is(err, domain.ErrNotFound):
		return failed(selection.ReasonStoreError, fmt.Errorf("%w: %w", selection.ErrStore, err))
	}

	req := selection.Request{Namespace: domain.NamespaceStream, ID: link.ID, To: to, OnFetch: onFetch}
	track, err := s.spotify.Track(ctx, link.ID)
	if err != nil {
		if errors.Is(err, spotify.ErrTrackNotFound) {
			return failed(selection.ReasonNotFound, selection.ErrNotFound)
		}
		return failed(selection.ReasonFetchError, fmt.Errorf("%w: %w", selection.ErrFetch, err))
	}

	if songID := s.matchSaavn(ctx, track); songID != "" {
		req.Namespace = domain.NamespaceAudio
		req.ID = songID
	}
	return s.resolver.ResolveRequest(ctx, req)
}

func (s *Service) matchSaavn(ctx context.Context, track spotify.Track) string {
	songs, err := s.saavn.SearchSongs(ctx, track.Title, spotifyMatchLimit)
	if err != nil {
		s.logger.Warn("saavn match search failed",
			slog.String("spotifyId", track.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	for _, song := range songs {
		if !search.SameText(song.Title, track.Title) || len(song.PrimaryArtists) == 0 {
			continue
		}
		if search.SameText(song.PrimaryArtists[0], track.PrimaryArtist()) {
			return song.ID
		}
	}
	return ""
}

func (s *Service) replay(ctx context.Context, entry domain.CatalogEntry, to domain.Delivery) selection.Outcome {
	if err := s.replayer.Replay(ctx, entry, to); err != nil {
		return failed(selection.ReasonReplay, fmt.Errorf("%w: %w", selection.ErrReplay, err))
	}
	return selection.Outcome{Status: selection.StatusReplayed, Entry: entry}
}

func failed(reason selection.Reason, err error) selection.Outcome {
	return selection.Outcome{Status: selection.StatusFailed, Reason: reason, Err: err}
}
