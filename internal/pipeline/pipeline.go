package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"lunemusic/internal/domain"
	"lunemusic/internal/metrics"
	"lunemusic/internal/pipeline/ffmpeg"
	"lunemusic/internal/telemetry"
)

// Audio is a converted file ready to be published.
type Audio struct {
	Path     string
	FileName string
	Title    string
	Artist   string
	Duration int
}

// Publisher sends a converted file to the requester and to the distribution
// channel, returning the channel copy's message id.
type Publisher interface {
	Publish(ctx context.Context, audio Audio, to domain.Delivery) (domain.DistributionRef, error)
}

type Encoder interface {
	Encode(ctx context.Context, job ffmpeg.Job) error
}

const (
	defaultConcurrency = 2
	defaultTimeout     = 5 * time.Minute
)

type Pipeline struct {
	client    *http.Client
	encoder   Encoder
	publisher Publisher
	workDir   string
	timeout   time.Duration
	slots     *semaphore.Weighted
	logger    *slog.Logger
	newID     func() string
}

type Option func(*Pipeline)

func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.client = client
		}
	}
}

func WithWorkDir(dir string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(dir) != "" {
			p.workDir = dir
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithConcurrency caps how many runs download and encode at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(encoder Encoder, publisher Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:    &http.Client{},
		encoder:   encoder,
		publisher: publisher,
		workDir:   os.TempDir(),
		timeout:   defaultTimeout,
		slots:     semaphore.NewWeighted(defaultConcurrency),
		logger:    slog.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run downloads media, converts it with tags and cover, publishes it and
// reports the published track. Temporary files are always removed.
func (p *Pipeline) Run(ctx context.Context, ns domain.Namespace, media domain.Media, to domain.Delivery) (track domain.Track, err error) {
	if strings.TrimSpace(media.AudioURL) == "" {
		return domain.Track{}, errors.New("no download URL available")
	}
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return domain.Track{}, err
	}
	defer p.slots.Release(1)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("namespace", string(ns)),
		attribute.String("providerId", media.ProviderID),
	)

	startedAt := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.PipelineDuration.WithLabelValues(string(ns), status).Observe(time.Since(startedAt).Seconds())
	}()

	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return domain.Track{}, fmt.Errorf("prepare work dir: %w", err)
	}
	base := filepath.Join(p.workDir, p.newID())
	sourcePath := base + ".src"
	coverPath := base + ".jpg"
	outputPath := base + ".mp3"
	defer p.cleanup(sourcePath, coverPath, outputPath)

	if err := download(ctx, p.client, media.AudioURL, sourcePath); err != nil {
		return domain.Track{}, fmt.Errorf("audio download failed: %w", err)
	}

	cover := ""
	if media.CoverURL != "" {
		if err := download(ctx, p.client, media.CoverURL, coverPath); err != nil {
			p.logger.Warn("cover download failed, continuing without it",
				slog.String("providerId", media.ProviderID),
				slog.String("error", err.Error()),
			)
		} else {
			cover = coverPath
		}
	}

	job := ffmpeg.Job{
		Input:  sourcePath,
		Cover:  cover,
		Output: outputPath,
		Tags: ffmpeg.Tags{
			Title:     media.Title,
			Artist:    media.Artist,
			Album:     media.Album,
			Date:      media.Year,
			Genre:     media.Genre,
			Publisher: media.Publisher,
			Copyright: media.Copyright,
			Comment:   media.Comment,
		},
	}
	if err := p.encoder.Encode(ctx, job); err != nil {
		return domain.Track{}, err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return domain.Track{}, fmt.Errorf("conversion produced no file: %w", err)
	}

	ref, err := p.publisher.Publish(ctx, Audio{
		Path:     outputPath,
		FileName: FileName(media.Title, media.Artist),
		Title:    media.Title,
		Artist:   media.Artist,
		Duration: media.Duration,
	}, to)
	if err != nil {
		return domain.Track{}, fmt.Errorf("publish: %w", err)
	}

	p.logger.Info("track published",
		slog.String("namespace", string(ns)),
		slog.String("providerId", media.ProviderID),
		slog.Int("ref", int(ref)),
		slog.Duration("elapsed", time.Since(startedAt)),
	)
	return domain.Track{
		ProviderID: media.ProviderID,
		Title:      media.Title,
		Artist:     media.Artist,
		Duration:   media.Duration,
		SourceURL:  media.SourceURL,
		Ref:        ref,
	}, nil
}

func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Debug("temp file cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
}

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// FileName builds the "Title - Artist.mp3" name shown to listeners.
func FileName(title, artist string) string {
	safeTitle := clip(strings.TrimSpace(unsafeFileChars.ReplaceAllString(title, "")), 100)
	safeArtist := clip(strings.TrimSpace(unsafeFileChars.ReplaceAllString(artist, "")), 50)
	switch {
	case safeTitle == "" && safeArtist == "":
		return "track.mp3"
	case safeArtist == "":
		return safeTitle + ".mp3"
	case safeTitle == "":
		return safeArtist + ".mp3"
	}
	return safeTitle + " - " + safeArtist + ".mp3"
}

func clip(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit]))
}
