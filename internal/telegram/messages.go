package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/domain"
	"lunemusic/internal/links"
	"lunemusic/internal/listing"
	"lunemusic/internal/search"
)

func (b *Bot) handleMessage(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	b.touch(ctx, log, msg.From)

	if msg.IsCommand() {
		b.handleCommand(ctx, log, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if !b.isMember(msg.From.ID) {
		b.sendForceJoin(msg.Chat.ID)
		return
	}

	link := links.Classify(text)
	switch link.Kind {
	case links.KindNone:
		b.search(ctx, log, msg, text)
		// "hi" is searched like any text and greeted afterwards.
		if strings.EqualFold(text, "hi") {
			_, _ = b.out.SendText(msg.Chat.ID, greetingText(msg.From.FirstName), replyTo(msg.MessageID))
		}
	case links.KindUnsupported:
		_, _ = b.out.SendText(msg.Chat.ID, textUnsupportedLink, replyTo(msg.MessageID))
	default:
		b.handleLink(ctx, log, msg, link)
	}
}

func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if !b.isMember(msg.From.ID) {
			b.sendForceJoin(chatID)
			return
		}
		_, _ = b.out.SendText(chatID, welcomeText(msg.From.FirstName), withMarkdown(), withKeyboard(welcomeKeyboard()))
	case "help":
		_, _ = b.out.SendText(chatID, textHelp, withMarkdown())
	case "stats":
		b.sendUserStats(ctx, log, chatID, msg.From.ID)
	case "broadcast":
		b.requestBroadcast(msg)
	case "users":
		b.sendBotStats(ctx, log, msg)
	case "export":
		b.exportUsers(ctx, log, msg)
	}
}

func (b *Bot) sendUserStats(ctx context.Context, log *slog.Logger, chatID, userID int64) {
	if b.deps.Users == nil {
		return
	}
	user, err := b.deps.Users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn("load user failed", slog.Int64("userId", userID), slog.String("error", err.Error()))
		}
		_, _ = b.out.SendText(chatID, textGenericError)
		return
	}
	_, _ = b.out.SendText(chatID, statsText(user), withMarkdown())
}

// search runs an aggregated search and posts page one of the listing.
func (b *Bot) search(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message, query string) {
	chatID := msg.Chat.ID
	results, err := b.deps.Search.Aggregate(ctx, query)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			return
		}
		log.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		_, _ = b.out.SendText(chatID, textGenericError, replyTo(msg.MessageID))
		return
	}
	if len(results) == 0 {
		_, _ = b.out.SendText(chatID, textNoResults, replyTo(msg.MessageID))
		return
	}

	page := listing.Paginate(results, 1, b.cfg.PageSize)
	rendered := listing.Render(page)
	sent, err := b.out.SendText(chatID, rendered.Text,
		withMarkdown(),
		replyTo(msg.MessageID),
		withKeyboard(listingKeyboard(rendered.Rows)),
	)
	if err != nil {
		return
	}

	session := domain.SearchSession{
		ChatID:           chatID,
		Results:          results,
		OriginMessageID:  msg.MessageID,
		CurrentPage:      page.Number,
		ListingMessageID: sent.MessageID,
		CreatedAt:        b.now().UTC(),
	}
	if err := b.deps.Sessions.Set(ctx, session); err != nil {
		log.Warn("save session failed", slog.Int64("chatId", chatID), slog.String("error", err.Error()))
	}
}

func (b *Bot) handleLink(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message, link links.Link) {
	chatID := msg.Chat.ID
	to := domain.Delivery{ChatID: chatID, ReplyToMessageID: msg.MessageID}

	progress := &progressMessage{bot: b, chatID: chatID, text: downloadingFrom(linkSource(link.Kind))}
	outcome := b.deps.Links.Handle(ctx, link, to, progress.show)
	progress.clear()

	if !outcome.OK() {
		log.Info("link not delivered",
			slog.String("kind", link.Kind.String()),
			slog.String("reason", string(outcome.Reason)),
		)
		_, _ = b.out.SendText(chatID, failureText(outcome), replyTo(msg.MessageID))
	}
}

func linkSource(kind links.Kind) string {
	switch kind {
	case links.KindYouTube:
		return "YouTube"
	case links.KindSaavn:
		return "Saavn"
	case links.KindSpotify:
		return "Spotify"
	default:
		return "link"
	}
}

// progressMessage is the transient "downloading" notice shown while a fetch
// runs.
type progressMessage struct {
	bot       *Bot
	chatID    int64
	text      string
	messageID int
}

func (p *progressMessage) show() {
	if sent, err := p.bot.out.SendText(p.chatID, p.text); err == nil {
		p.messageID = sent.MessageID
	}
}

func (p *progressMessage) clear() {
	p.bot.out.Delete(p.chatID, p.messageID)
	p.messageID = 0
}
