package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "lunemusic/internal/api/http"
	"lunemusic/internal/app"
	"lunemusic/internal/broadcast"
	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	"lunemusic/internal/links"
	"lunemusic/internal/metrics"
	"lunemusic/internal/pipeline"
	"lunemusic/internal/pipeline/ffmpeg"
	"lunemusic/internal/providers/saavn"
	"lunemusic/internal/providers/spotify"
	"lunemusic/internal/providers/youtube"
	mongorepo "lunemusic/internal/repository/mongo"
	"lunemusic/internal/search"
	"lunemusic/internal/selection"
	"lunemusic/internal/session"
	"lunemusic/internal/telegram"
	"lunemusic/internal/telemetry"
)

const (
	serviceName          = "lunemusic-bot"
	sessionSweepInterval = time.Minute
	telegramHTTPTimeout  = 90 * time.Second
	providerHTTPTimeout  = 30 * time.Second
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.Int64("channelId", cfg.ChannelID),
		slog.Bool("hasOwner", cfg.OwnerID != 0),
		slog.String("forceJoinChannel", cfg.ForceJoinChannel),
		slog.String("mongoDatabase", cfg.MongoDatabase),
		slog.Bool("hasRedis", cfg.RedisURL != ""),
		slog.Bool("hasYouTubeKey", cfg.YouTubeAPIKey != ""),
		slog.Bool("hasRapidAPIKey", cfg.RapidAPIKey != ""),
		slog.Duration("sessionTTL", cfg.SessionTTL),
		slog.Duration("fetchTimeout", cfg.FetchTimeout),
		slog.String("opsAddr", cfg.OpsHTTPAddr),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(rootCtx, 15*time.Second)
	mongoClient, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		cancelConnect()
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		cancelConnect()
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	catalog := mongorepo.NewCatalogRepository(mongoClient, cfg.MongoDatabase)
	users := mongorepo.NewUserRepository(mongoClient, cfg.MongoDatabase)
	if err := catalog.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("catalog ensure indexes failed", slog.String("error", err.Error()))
	}
	if err := users.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("users ensure indexes failed", slog.String("error", err.Error()))
	}
	cancelConnect()

	redisClient := connectRedis(rootCtx, cfg.RedisURL, logger)
	sessions := buildSessionStore(rootCtx, redisClient, cfg.SessionTTL, logger)

	saavnClient := saavn.NewClient(saavn.Config{BaseURL: cfg.SaavnAPIBase, Client: newProviderClient()})
	youtubeClient := youtube.NewClient(youtube.Config{
		APIKey:       cfg.YouTubeAPIKey,
		APIBase:      cfg.YouTubeAPIBase,
		RapidAPIKey:  cfg.RapidAPIKey,
		RapidAPIHost: cfg.RapidAPIHost,
		Client:       newProviderClient(),
	})
	spotifyClient := spotify.NewClient(spotify.Config{SpotdownEndpoint: cfg.SpotdownEndpoint, Client: newProviderClient()})

	aggregator := search.NewAggregator(catalog, saavnClient, youtubeClient, buildAggregatorOptions(cfg, redisClient, logger)...)

	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, &http.Client{
		Timeout:   telegramHTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		logger.Error("telegram login failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("telegram authorized", slog.String("username", api.Self.UserName))

	messenger := telegram.NewMessenger(api, cfg.ChannelID, cfg.CaptionFooter, logger)
	pipe := pipeline.New(ffmpeg.New(cfg.FFMPEGPath), messenger,
		pipeline.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
		pipeline.WithWorkDir(cfg.WorkDir),
		pipeline.WithTimeout(cfg.FetchTimeout),
		pipeline.WithConcurrency(cfg.FetchWorkers),
		pipeline.WithLogger(logger),
	)
	resolver := selection.NewResolver(catalog, messenger,
		selection.WithLogger(logger),
		selection.WithFetcher(domain.NamespaceVideo, pipeline.NewFetcher(domain.NamespaceVideo, youtubeClient, pipe)),
		selection.WithFetcher(domain.NamespaceAudio, pipeline.NewFetcher(domain.NamespaceAudio, saavnClient, pipe)),
		selection.WithFetcher(domain.NamespaceStream, pipeline.NewFetcher(domain.NamespaceStream, spotifyClient, pipe)),
	)
	linkService := links.NewService(catalog, messenger, resolver, saavnClient, spotifyClient, logger)
	broadcaster := broadcast.New(messenger, users,
		broadcast.WithInterval(cfg.BroadcastInterval),
		broadcast.WithLogger(logger),
	)

	bot := telegram.NewBot(api, messenger, telegram.Config{
		OwnerID:          cfg.OwnerID,
		ForceJoinChannel: cfg.ForceJoinChannel,
	}, telegram.Deps{
		Search:      aggregator,
		Resolver:    resolver,
		Links:       linkService,
		Broadcaster: broadcaster,
		Users:       users,
		Sessions:    sessions,
	}, logger)

	opsServer := &http.Server{
		Addr:              cfg.OpsHTTPAddr,
		Handler:           apihttp.NewServer(buildOpsOptions(mongoClient, redisClient, aggregator, logger)...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- opsServer.ListenAndServe()
	}()
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := bot.Run(rootCtx); err != nil {
			errCh <- err
		}
	}()

	logger.Info("lunemusic bot started", slog.String("opsAddr", cfg.OpsHTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("service error", slog.String("error", err.Error()))
		}
		stop()
	}

	<-botDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown error", slog.String("error", err.Error()))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}
	logger.Info("lunemusic bot stopped")
}

func newProviderClient() *http.Client {
	return &http.Client{
		Timeout:   providerHTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// bot then keeps sessions and the live cache in memory.
func connectRedis(ctx context.Context, rawURL string, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(rawURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory state only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory state only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildSessionStore(ctx context.Context, client *redis.Client, ttl time.Duration, logger *slog.Logger) ports.SessionStore {
	if client != nil {
		logger.Info("search sessions stored in redis", slog.Duration("ttl", ttl))
		return session.NewRedisStore(client, ttl)
	}
	store := session.NewMemoryStore(ttl)
	go store.Run(ctx, sessionSweepInterval)
	return store
}

func buildAggregatorOptions(cfg app.Config, client *redis.Client, logger *slog.Logger) []search.AggregatorOption {
	opts := []search.AggregatorOption{
		search.WithLogger(logger),
		search.WithTimeout(cfg.SearchTimeout),
		search.WithCacheTTL(cfg.SearchCacheTTL),
	}
	if client != nil {
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(client)))
	}
	return opts
}

func buildOpsOptions(mongoClient *mongo.Client, redisClient *redis.Client, aggregator *search.Aggregator, logger *slog.Logger) []apihttp.ServerOption {
	opts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithProviders(aggregator),
		apihttp.WithCheck("mongo", func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}),
	}
	if redisClient != nil {
		opts = append(opts, apihttp.WithCheck("redis", search.NewRedisCacheBackend(redisClient).Ping))
	}
	return opts
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
