package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"lunemusic/internal/broadcast"
	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	"lunemusic/internal/links"
	"lunemusic/internal/listing"
	"lunemusic/internal/metrics"
	"lunemusic/internal/selection"
)

const pollTimeoutSeconds = 30

type Searcher interface {
	Aggregate(ctx context.Context, query string) ([]domain.SearchResultItem, error)
}

type SelectionResolver interface {
	ResolveRequest(ctx context.Context, req selection.Request) selection.Outcome
}

type LinkHandler interface {
	Handle(ctx context.Context, link links.Link, to domain.Delivery, onFetch func()) selection.Outcome
}

type Broadcaster interface {
	Run(ctx context.Context, job broadcast.Job, onProgress func(broadcast.Report)) (broadcast.Report, error)
}

type Config struct {
	OwnerID          int64
	ForceJoinChannel string
	PageSize         int
}

type Deps struct {
	Search      Searcher
	Resolver    SelectionResolver
	Links       LinkHandler
	Broadcaster Broadcaster
	Users       ports.UserStore
	Sessions    ports.SessionStore
}

// Bot dispatches Telegram updates to the search, selection, link and admin
// flows.
type Bot struct {
	api    API
	out    *Messenger
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewBot(api API, out *Messenger, cfg Config, deps Deps, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = listing.DefaultPageSize
	}
	return &Bot{
		api:    api,
		out:    out,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Run long-polls for updates until ctx is done, then waits for in-flight
// handlers. Handlers run detached from ctx so a fetch that already started
// still reaches its requester during shutdown.
func (b *Bot) Run(ctx context.Context) error {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use the bot"},
		tgbotapi.BotCommand{Command: "stats", Description: "Your statistics"},
	)
	if _, err := b.api.Request(commands); err != nil {
		b.logger.Warn("set commands failed", slog.String("error", err.Error()))
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)
	handlerCtx := context.WithoutCancel(ctx)

	b.logger.Info("bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return fmt.Errorf("updates channel closed")
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(handlerCtx, update)
			}()
		}
	}
}

// Wait blocks until every dispatched handler has returned.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate processes a single update. A panic is logged and swallowed.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	log := b.logger.With(
		slog.Int("updateId", update.UpdateID),
		slog.String("correlationId", uuid.NewString()),
	)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("update handler panicked",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	switch {
	case update.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, log, update.Message)
	case update.CallbackQuery != nil:
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, log, update.CallbackQuery)
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (b *Bot) isOwner(userID int64) bool {
	return b.cfg.OwnerID != 0 && userID == b.cfg.OwnerID
}

func (b *Bot) touch(ctx context.Context, log *slog.Logger, from *tgbotapi.User) {
	if from == nil || b.deps.Users == nil {
		return
	}
	profile := domain.UserProfile{
		UserID:    from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
	}
	if err := b.deps.Users.Touch(ctx, profile, b.now().UTC()); err != nil {
		log.Warn("user upsert failed", slog.Int64("userId", from.ID), slog.String("error", err.Error()))
	}
}
