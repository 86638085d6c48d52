package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/domain"
	"lunemusic/internal/listing"
	"lunemusic/internal/selection"
)

func (b *Bot) handleCallback(ctx context.Context, log *slog.Logger, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		b.out.Answer(cb.ID, "", false)
		return
	}
	data := cb.Data

	if data == dataCheckMembership {
		b.checkMembership(cb)
		return
	}
	if !b.isMember(cb.From.ID) {
		b.out.Answer(cb.ID, joinFirstAlert(b.cfg.ForceJoinChannel), true)
		return
	}

	switch {
	case data == dataMyStats:
		b.out.Answer(cb.ID, "", false)
		b.sendUserStats(ctx, log, cb.Message.Chat.ID, cb.From.ID)
	case data == dataHelp:
		b.out.Answer(cb.ID, "", false)
		_, _ = b.out.SendText(cb.Message.Chat.ID, textHelp, withMarkdown())
	case strings.HasPrefix(data, dataConfirmBroadcast):
		b.confirmBroadcast(ctx, log, cb)
	case data == dataCancelBroadcast:
		b.cancelBroadcast(cb)
	case selection.IsListingData(data):
		b.handleListing(ctx, log, cb)
	default:
		b.out.Answer(cb.ID, "", false)
	}
}

func (b *Bot) checkMembership(cb *tgbotapi.CallbackQuery) {
	if !b.isMember(cb.From.ID) {
		b.out.Answer(cb.ID, notJoinedAlert(b.cfg.ForceJoinChannel), true)
		return
	}
	b.out.Answer(cb.ID, textVerifiedAlert, true)
	b.out.Delete(cb.Message.Chat.ID, cb.Message.MessageID)
	_, _ = b.out.SendText(cb.Message.Chat.ID, textVerified, withMarkdown())
}

// handleListing serves the buttons of a search listing. Only the newest
// listing of a chat is live; buttons on older ones report an expired session.
func (b *Bot) handleListing(ctx context.Context, log *slog.Logger, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	session, ok, err := b.deps.Sessions.Get(ctx, chatID)
	if err != nil {
		log.Warn("load session failed", slog.Int64("chatId", chatID), slog.String("error", err.Error()))
		b.out.Answer(cb.ID, textGenericError, false)
		return
	}
	if !ok || (session.ListingMessageID != 0 && session.ListingMessageID != cb.Message.MessageID) {
		b.out.Answer(cb.ID, textSessionExpired, false)
		return
	}

	tok, err := selection.Parse(cb.Data)
	if err != nil {
		b.out.Answer(cb.ID, textInvalidSongID, false)
		return
	}

	switch tok.Kind {
	case selection.KindCancel:
		b.out.Delete(chatID, cb.Message.MessageID)
		b.dropSession(ctx, log, chatID)
		b.out.Answer(cb.ID, textSearchCancelled, false)
	case selection.KindPage:
		b.turnPage(ctx, log, cb, session, tok.Page)
	case selection.KindPlay:
		b.play(ctx, log, cb, session, tok)
	}
}

func (b *Bot) turnPage(ctx context.Context, log *slog.Logger, cb *tgbotapi.CallbackQuery, session domain.SearchSession, number int) {
	page := listing.Paginate(session.Results, number, b.cfg.PageSize)
	rendered := listing.Render(page)
	markup := listingKeyboard(rendered.Rows)
	if err := b.out.EditText(session.ChatID, cb.Message.MessageID, rendered.Text, &markup); err != nil {
		log.Debug("edit listing failed", slog.String("error", err.Error()))
	}
	session.CurrentPage = page.Number
	if err := b.deps.Sessions.Set(ctx, session); err != nil {
		log.Warn("save session failed", slog.Int64("chatId", session.ChatID), slog.String("error", err.Error()))
	}
	b.out.Answer(cb.ID, "", false)
}

// play resolves a selection. Every terminal outcome, failures included, ends
// the listing: the message is deleted and the session dropped.
func (b *Bot) play(ctx context.Context, log *slog.Logger, cb *tgbotapi.CallbackQuery, session domain.SearchSession, tok selection.Token) {
	chatID := cb.Message.Chat.ID
	defer func() {
		b.out.Delete(chatID, cb.Message.MessageID)
		b.dropSession(ctx, log, chatID)
	}()

	if !tok.HasValidID() {
		b.out.Answer(cb.ID, textInvalidSongID, false)
		_, _ = b.out.SendText(chatID, textInvalidSongID)
		return
	}
	b.out.Answer(cb.ID, textPlaying, false)

	progress := &progressMessage{bot: b, chatID: chatID, text: textDownloading}
	req := selection.RequestFor(tok, domain.Delivery{ChatID: chatID, ReplyToMessageID: session.OriginMessageID})
	req.OnFetch = progress.show
	outcome := b.deps.Resolver.ResolveRequest(ctx, req)
	progress.clear()

	if !outcome.OK() {
		_, _ = b.out.SendText(chatID, failureText(outcome))
	}
}

func (b *Bot) dropSession(ctx context.Context, log *slog.Logger, chatID int64) {
	if err := b.deps.Sessions.Delete(ctx, chatID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Debug("delete session failed", slog.Int64("chatId", chatID), slog.String("error", err.Error()))
	}
}
