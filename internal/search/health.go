package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"lunemusic/internal/metrics"
)

const (
	providerFailureThreshold = 3
	providerBlockBase        = 2 * time.Minute
	providerBlockMax         = 15 * time.Minute
)

// ProviderDiagnostics is a point-in-time view of a live provider's health.
type ProviderDiagnostics struct {
	Name                string     `json:"name"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs"`
	TotalRequests       int64      `json:"totalRequests"`
	TotalFailures       int64      `json:"totalFailures"`
	TimeoutCount        int64      `json:"timeoutCount"`
}

// breaker guards one live provider. It opens after providerFailureThreshold
// consecutive failures; each further failure doubles the open window up to
// providerBlockMax. One success closes it.
type breaker struct {
	mu        sync.Mutex
	streak    int
	openUntil time.Time
	lastErr   string
	lastOK    time.Time
	lastFail  time.Time
	latency   time.Duration
	requests  int64
	failures  int64
	timeouts  int64
}

func (b *breaker) open(now time.Time) (until time.Time, lastErr string, open bool) {
	if b == nil {
		return time.Time{}, "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() || now.After(b.openUntil) {
		return time.Time{}, "", false
	}
	return b.openUntil, b.lastErr, true
}

func (b *breaker) observe(provider string, err error, latency time.Duration, now time.Time) {
	if b == nil {
		return
	}
	metrics.ProviderRequestDuration.WithLabelValues(provider).Observe(latency.Seconds())

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++
	b.latency = latency

	if err == nil {
		b.streak = 0
		b.openUntil = time.Time{}
		b.lastErr = ""
		b.lastOK = now
		metrics.ProviderRequestsTotal.WithLabelValues(provider, "ok").Inc()
		metrics.ProviderAvailable.WithLabelValues(provider).Set(1)
		return
	}

	b.streak++
	b.failures++
	b.lastFail = now
	b.lastErr = err.Error()
	status := "error"
	if isTimeoutLikeError(err) {
		b.timeouts++
		status = "timeout"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, status).Inc()

	if b.streak >= providerFailureThreshold {
		b.openUntil = now.Add(exponentialBlockDuration(b.streak))
		metrics.ProviderAvailable.WithLabelValues(provider).Set(0)
	}
}

func (b *breaker) snapshot(provider string) ProviderDiagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ProviderDiagnostics{
		Name:                provider,
		ConsecutiveFailures: b.streak,
		BlockedUntil:        timePtr(b.openUntil),
		LastError:           b.lastErr,
		LastSuccessAt:       timePtr(b.lastOK),
		LastFailureAt:       timePtr(b.lastFail),
		LastLatencyMS:       b.latency.Milliseconds(),
		TotalRequests:       b.requests,
		TotalFailures:       b.failures,
		TimeoutCount:        b.timeouts,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// exponentialBlockDuration is providerBlockBase doubled once per failure past
// the threshold, capped at providerBlockMax.
func exponentialBlockDuration(failures int) time.Duration {
	d := providerBlockBase
	for extra := failures - providerFailureThreshold; extra > 0; extra-- {
		d *= 2
		if d >= providerBlockMax {
			return providerBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

// ProviderDiagnostics reports every configured live provider, sorted by name.
func (a *Aggregator) ProviderDiagnostics() []ProviderDiagnostics {
	items := make([]ProviderDiagnostics, 0, len(a.breakers))
	for name, cb := range a.breakers {
		items = append(items, cb.snapshot(name))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
