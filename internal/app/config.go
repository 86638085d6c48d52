package app

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken         string
	OwnerID          int64
	ChannelID        int64
	ForceJoinChannel string
	CaptionFooter    string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	SessionTTL     time.Duration
	SearchCacheTTL time.Duration
	SearchTimeout  time.Duration
	FetchTimeout   time.Duration
	FetchWorkers   int

	SaavnAPIBase     string
	YouTubeAPIKey    string
	YouTubeAPIBase   string
	RapidAPIKey      string
	RapidAPIHost     string
	SpotdownEndpoint string

	FFMPEGPath string
	WorkDir    string

	BroadcastInterval time.Duration

	OpsHTTPAddr  string
	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
}

func LoadConfig() Config {
	return Config{
		BotToken:          strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		OwnerID:           getEnvInt64("OWNER_ID", 0),
		ChannelID:         getEnvInt64("CHANNEL_ID", 0),
		ForceJoinChannel:  getEnv("FORCE_JOIN_CHANNEL", getEnv("FORCE_JOIN_CHANNEL_ID", "")),
		CaptionFooter:     getEnv("CAPTION_FOOTER", ""),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getEnv("MONGO_DB", "lunemusic"),
		RedisURL:          getEnv("REDIS_URL", ""),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		SearchCacheTTL:    time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 10)) * time.Minute,
		SearchTimeout:     time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 10)) * time.Second,
		FetchTimeout:      time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 300)) * time.Second,
		FetchWorkers:      getEnvInt("FETCH_WORKERS", 2),
		SaavnAPIBase:      getEnv("SAAVN_API_BASE", ""),
		YouTubeAPIKey:     strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		YouTubeAPIBase:    getEnv("YOUTUBE_API_BASE", ""),
		RapidAPIKey:       strings.TrimSpace(os.Getenv("RAPIDAPI_KEY")),
		RapidAPIHost:      getEnv("RAPIDAPI_HOST", ""),
		SpotdownEndpoint:  getEnv("SPOTDOWN_ENDPOINT", ""),
		FFMPEGPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		WorkDir:           getEnv("WORK_DIR", os.TempDir()),
		BroadcastInterval: time.Duration(getEnvInt("BROADCAST_INTERVAL_MS", 50)) * time.Millisecond,
		OpsHTTPAddr:       getEnv("OPS_HTTP_ADDR", ":9090"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate reports the settings the bot cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.ChannelID == 0 {
		errs = append(errs, errors.New("CHANNEL_ID is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvInt64 accepts negative values; channel ids are negative.
func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
