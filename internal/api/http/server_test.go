package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"lunemusic/internal/search"
)

type fakeProviders struct {
	items []search.ProviderDiagnostics
}

func (f fakeProviders) ProviderDiagnostics() []search.ProviderDiagnostics { return f.items }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealthAllChecksPass(t *testing.T) {
	server := NewServer(
		WithCheck("mongo", func(context.Context) error { return nil }),
		WithCheck("redis", func(context.Context) error { return nil }),
	)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
	checks := body["checks"].([]any)
	if len(checks) != 2 || checks[0].(map[string]any)["name"] != "mongo" {
		t.Fatalf("checks = %v", checks)
	}
}

func TestHealthDegradedOnFailedCheck(t *testing.T) {
	server := NewServer(WithCheck("mongo", func(context.Context) error { return errors.New("server selection timeout") }))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	check := body["checks"].([]any)[0].(map[string]any)
	if body["status"] != "degraded" || check["ok"] != false || check["error"] != "server selection timeout" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProvidersHealth(t *testing.T) {
	server := NewServer(WithProviders(fakeProviders{items: []search.ProviderDiagnostics{
		{Name: "saavn", TotalRequests: 4},
		{Name: "youtube", ConsecutiveFailures: 3, LastError: "quota exceeded"},
	}}))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decodeBody(t, rec)["items"].([]any)
	if len(items) != 2 || items[1].(map[string]any)["lastError"] != "quota exceeded" {
		t.Fatalf("items = %v", items)
	}
}

func TestProvidersHealthWithoutAggregator(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/providers", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRecoveryMiddlewareReturns500(t *testing.T) {
	handler := recoverPanics(NewServer().logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/providers", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/health":           "/health",
		"/health/providers": "/health/providers",
		"/metrics":          "/metrics",
		"/admin":            "/other",
	}
	for in, want := range tests {
		if got := normalizeRoute(in); got != want {
			t.Fatalf("normalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestThrottleRejectsBeyondBurst(t *testing.T) {
	handler := throttle(rate.NewLimiter(0, 1), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health/providers", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health/providers", nil))
	probe := httptest.NewRecorder()
	handler.ServeHTTP(probe, httptest.NewRequest(http.MethodGet, "/health", nil))

	if first.Code != http.StatusNoContent || second.Code != http.StatusTooManyRequests || probe.Code != http.StatusNoContent {
		t.Fatalf("codes = %d, %d, %d", first.Code, second.Code, probe.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.RemoteAddr = "10.0.0.5:4312"
	if got := clientIP(r); got != "10.0.0.5" {
		t.Fatalf("clientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Fatalf("clientIP = %q", got)
	}
}
