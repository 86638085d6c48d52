package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"lunemusic/internal/domain"
	"lunemusic/internal/metrics"
)

const (
	defaultInterval      = 50 * time.Millisecond
	defaultProgressEvery = 10
	maxRetryAfter        = 30 * time.Second
)

// Forwarder forwards an existing message to one chat.
type Forwarder interface {
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

// Recipients lists who receives a broadcast and records who blocked the bot.
type Recipients interface {
	ListReachable(ctx context.Context) ([]domain.User, error)
	MarkBlocked(ctx context.Context, userID int64) error
}

// Job names the message being broadcast.
type Job struct {
	FromChatID int64
	MessageID  int
}

// Report counts deliveries. Processed grows by one per recipient.
type Report struct {
	Total     int
	Processed int
	Success   int
	Failed    int
	Blocked   int
}

func (r Report) Done() bool { return r.Processed == r.Total }

type Broadcaster struct {
	forwarder     Forwarder
	recipients    Recipients
	limiter       *rate.Limiter
	progressEvery int
	logger        *slog.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

type Option func(*Broadcaster)

// WithInterval sets the minimum gap between two sends.
func WithInterval(interval time.Duration) Option {
	return func(b *Broadcaster) {
		if interval > 0 {
			b.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

func WithProgressEvery(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.progressEvery = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func New(forwarder Forwarder, recipients Recipients, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		forwarder:     forwarder,
		recipients:    recipients,
		limiter:       rate.NewLimiter(rate.Every(defaultInterval), 1),
		progressEvery: defaultProgressEvery,
		logger:        slog.Default(),
		sleep:         sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run forwards job to every reachable user in order. A failed recipient is
// counted and skipped; only a listing error or a cancelled context stops the
// run. onProgress receives a snapshot every progressEvery recipients and once
// at the end.
func (b *Broadcaster) Run(ctx context.Context, job Job, onProgress func(Report)) (Report, error) {
	users, err := b.recipients.ListReachable(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list recipients: %w", err)
	}

	report := Report{Total: len(users)}
	for _, user := range users {
		if err := b.limiter.Wait(ctx); err != nil {
			return report, err
		}

		switch b.deliver(ctx, job, user.UserID) {
		case deliveryOK:
			report.Success++
		case deliveryBlocked:
			report.Blocked++
			if err := b.recipients.MarkBlocked(ctx, user.UserID); err != nil {
				b.logger.Warn("mark blocked failed",
					slog.Int64("userId", user.UserID),
					slog.String("error", err.Error()),
				)
			}
		default:
			report.Failed++
		}
		report.Processed++

		if onProgress != nil && (report.Processed%b.progressEvery == 0 || report.Done()) {
			onProgress(report)
		}
	}
	if onProgress != nil && report.Total == 0 {
		onProgress(report)
	}

	b.logger.Info("broadcast finished",
		slog.Int("total", report.Total),
		slog.Int("success", report.Success),
		slog.Int("failed", report.Failed),
		slog.Int("blocked", report.Blocked),
	)
	return report, nil
}

type delivery int

const (
	deliveryOK delivery = iota
	deliveryBlocked
	deliveryFailed
)

func (d delivery) String() string {
	switch d {
	case deliveryOK:
		return "ok"
	case deliveryBlocked:
		return "blocked"
	default:
		return "failed"
	}
}

// deliver sends once, and once more after a flood-wait answer.
func (b *Broadcaster) deliver(ctx context.Context, job Job, userID int64) delivery {
	err := b.forwarder.Forward(ctx, userID, job.FromChatID, job.MessageID)
	if wait, ok := retryAfter(err); ok {
		if sleepErr := b.sleep(ctx, wait); sleepErr == nil {
			err = b.forwarder.Forward(ctx, userID, job.FromChatID, job.MessageID)
		}
	}

	result := classify(err)
	metrics.BroadcastDeliveriesTotal.WithLabelValues(result.String()).Inc()
	if err != nil {
		b.logger.Debug("broadcast delivery failed",
			slog.Int64("userId", userID),
			slog.String("result", result.String()),
			slog.String("error", err.Error()),
		)
	}
	return result
}

// classify treats 403 (bot blocked, user deactivated) as permanent and
// everything else as transient.
func classify(err error) delivery {
	if err == nil {
		return deliveryOK
	}
	if apiErr, ok := asAPIError(err); ok && apiErr.Code == http.StatusForbidden {
		return deliveryBlocked
	}
	return deliveryFailed
}

func retryAfter(err error) (time.Duration, bool) {
	apiErr, ok := asAPIError(err)
	if !ok || apiErr.Code != http.StatusTooManyRequests || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	wait := time.Duration(apiErr.RetryAfter) * time.Second
	if wait > maxRetryAfter {
		return 0, false
	}
	return wait, true
}

// asAPIError accepts the Bot API error as a value or a pointer.
func asAPIError(err error) (tgbotapi.Error, bool) {
	if err == nil {
		return tgbotapi.Error{}, false
	}
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
