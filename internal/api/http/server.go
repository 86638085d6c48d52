package apihttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"lunemusic/internal/search"
)

const (
	healthCheckTimeout   = 2 * time.Second
	opsRequestsPerSecond = 20
	opsBurst             = 40
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

type ProviderDiagnosticsSource interface {
	ProviderDiagnostics() []search.ProviderDiagnostics
}

// Server is the operations endpoint: liveness, dependency health, live
// provider diagnostics and Prometheus metrics.
type Server struct {
	checks    map[string]CheckFunc
	providers ProviderDiagnosticsSource
	logger    *slog.Logger
	now       func() time.Time
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCheck adds a dependency probe reported under name on /health.
func WithCheck(name string, check CheckFunc) ServerOption {
	return func(s *Server) {
		if check != nil {
			s.checks[name] = check
		}
	}
}

func WithProviders(providers ProviderDiagnosticsSource) ServerOption {
	return func(s *Server) {
		s.providers = providers
	}
}

func NewServer(options ...ServerOption) *Server {
	server := &Server{
		checks: make(map[string]CheckFunc),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/providers", s.handleProvidersHealth)
	mux.Handle("/metrics", promhttp.Handler())
	traced := otelhttp.NewHandler(instrument(s.logger, mux), "lunemusic-ops",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && r.URL.Path != "/health"
		}),
	)
	return recoverPanics(s.logger, throttle(rate.NewLimiter(opsRequestsPerSecond, opsBurst), traced))
}

type checkResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TookMS int64  `json:"tookMs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	results := make([]checkResult, 0, len(names))
	for _, name := range names {
		start := time.Now()
		err := s.checks[name](ctx)
		result := checkResult{Name: name, OK: err == nil, TookMS: time.Since(start).Milliseconds()}
		if err != nil {
			result.Error = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			s.logger.Warn("health check failed", slog.String("check", name), slog.String("error", err.Error()))
		}
		results = append(results, result)
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC(),
		"checks":    results,
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.providers == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search aggregator is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": s.now().UTC(),
		"items":     s.providers.ProviderDiagnostics(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
