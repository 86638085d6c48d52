package app

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"BOT_TOKEN", "OWNER_ID", "CHANNEL_ID", "FORCE_JOIN_CHANNEL", "FORCE_JOIN_CHANNEL_ID",
	"CAPTION_FOOTER", "MONGO_URI", "MONGO_DB", "REDIS_URL",
	"SESSION_TTL_MINUTES", "SEARCH_CACHE_TTL_MINUTES", "SEARCH_TIMEOUT_SECONDS",
	"FETCH_TIMEOUT_SECONDS", "FETCH_WORKERS",
	"SAAVN_API_BASE", "YOUTUBE_API_KEY", "YOUTUBE_API_BASE", "RAPIDAPI_KEY", "RAPIDAPI_HOST",
	"SPOTDOWN_ENDPOINT", "FFMPEG_PATH", "WORK_DIR", "BROADCAST_INTERVAL_MS",
	"OPS_HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadConfig()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"MongoURI", cfg.MongoURI, "mongodb://localhost:27017"},
		{"MongoDatabase", cfg.MongoDatabase, "lunemusic"},
		{"SessionTTL", cfg.SessionTTL, 30 * time.Minute},
		{"SearchCacheTTL", cfg.SearchCacheTTL, 10 * time.Minute},
		{"SearchTimeout", cfg.SearchTimeout, 10 * time.Second},
		{"FetchTimeout", cfg.FetchTimeout, 5 * time.Minute},
		{"FetchWorkers", cfg.FetchWorkers, 2},
		{"FFMPEGPath", cfg.FFMPEGPath, "ffmpeg"},
		{"WorkDir", cfg.WorkDir, os.TempDir()},
		{"BroadcastInterval", cfg.BroadcastInterval, 50 * time.Millisecond},
		{"OpsHTTPAddr", cfg.OpsHTTPAddr, ":9090"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"OwnerID", cfg.OwnerID, int64(0)},
		{"ForceJoinChannel", cfg.ForceJoinChannel, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", tt.got, tt.got, tt.want, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"BOT_TOKEN":             " 123:abc ",
		"OWNER_ID":              "777",
		"CHANNEL_ID":            "-1001234567890",
		"FORCE_JOIN_CHANNEL_ID": "@lunechannel",
		"SESSION_TTL_MINUTES":   "5",
		"FETCH_TIMEOUT_SECONDS": "90",
		"LOG_LEVEL":             "DEBUG",
		"OPS_HTTP_ADDR":         ":9999",
	})
	cfg := LoadConfig()

	if cfg.BotToken != "123:abc" {
		t.Errorf("BotToken = %q", cfg.BotToken)
	}
	if cfg.OwnerID != 777 || cfg.ChannelID != -1001234567890 {
		t.Errorf("ids = %d, %d", cfg.OwnerID, cfg.ChannelID)
	}
	if cfg.ForceJoinChannel != "@lunechannel" {
		t.Errorf("ForceJoinChannel = %q", cfg.ForceJoinChannel)
	}
	if cfg.SessionTTL != 5*time.Minute || cfg.FetchTimeout != 90*time.Second {
		t.Errorf("durations = %v, %v", cfg.SessionTTL, cfg.FetchTimeout)
	}
	if cfg.LogLevel != "debug" || cfg.OpsHTTPAddr != ":9999" {
		t.Errorf("logLevel=%q addr=%q", cfg.LogLevel, cfg.OpsHTTPAddr)
	}
}

func TestForceJoinChannelPrefersNewKey(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"FORCE_JOIN_CHANNEL":    "@primary",
		"FORCE_JOIN_CHANNEL_ID": "@legacy",
	})
	if got := LoadConfig().ForceJoinChannel; got != "@primary" {
		t.Fatalf("ForceJoinChannel = %q", got)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	setEnvs(t, map[string]string{
		"SESSION_TTL_MINUTES": "-3",
		"FETCH_WORKERS":       "many",
		"OWNER_ID":            "abc",
	})
	cfg := LoadConfig()
	if cfg.SessionTTL != 30*time.Minute || cfg.FetchWorkers != 2 || cfg.OwnerID != 0 {
		t.Fatalf("fallbacks not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	err := Config{}.Validate()
	if err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") || !strings.Contains(err.Error(), "CHANNEL_ID") {
		t.Fatalf("Validate() = %v", err)
	}
	if err := (Config{BotToken: "t", ChannelID: -1}).Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}
