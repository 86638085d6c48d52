package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/broadcast"
	"lunemusic/internal/export"
)

const recentActivityWindow = 24 * time.Hour

func (b *Bot) requireOwner(msg *tgbotapi.Message) bool {
	if b.isOwner(msg.From.ID) {
		return true
	}
	_, _ = b.out.SendText(msg.Chat.ID, textOwnerOnly)
	return false
}

// requestBroadcast asks the owner to confirm forwarding the replied message.
func (b *Bot) requestBroadcast(msg *tgbotapi.Message) {
	if !b.requireOwner(msg) {
		return
	}
	if msg.ReplyToMessage == nil {
		_, _ = b.out.SendText(msg.Chat.ID, textBroadcastUsage, withMarkdown())
		return
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(labelConfirmYes, dataConfirmBroadcast+strconv.Itoa(msg.ReplyToMessage.MessageID)),
		tgbotapi.NewInlineKeyboardButtonData(labelConfirmNo, dataCancelBroadcast),
	))
	_, _ = b.out.SendText(msg.Chat.ID, textBroadcastConfirm, withMarkdown(), withKeyboard(keyboard))
}

func (b *Bot) confirmBroadcast(ctx context.Context, log *slog.Logger, cb *tgbotapi.CallbackQuery) {
	if !b.isOwner(cb.From.ID) {
		b.out.Answer(cb.ID, textUnauthorized, true)
		return
	}
	messageID, err := strconv.Atoi(strings.TrimPrefix(cb.Data, dataConfirmBroadcast))
	if err != nil || messageID <= 0 {
		b.out.Answer(cb.ID, textGenericError, false)
		return
	}
	chatID := cb.Message.Chat.ID
	b.out.Answer(cb.ID, textBroadcastStart, false)
	b.out.Delete(chatID, cb.Message.MessageID)

	status, err := b.out.SendText(chatID, textBroadcastWaiting)
	if err != nil {
		return
	}
	job := broadcast.Job{FromChatID: chatID, MessageID: messageID}
	report, err := b.deps.Broadcaster.Run(ctx, job, func(r broadcast.Report) {
		if !r.Done() {
			b.out.EditPlain(chatID, status.MessageID, broadcastProgressText(r))
		}
	})
	if err != nil {
		log.Error("broadcast failed", slog.String("error", err.Error()))
		b.out.EditPlain(chatID, status.MessageID, textBroadcastFailed+err.Error())
		return
	}
	b.out.EditPlain(chatID, status.MessageID, broadcastDoneText(report))
}

func (b *Bot) cancelBroadcast(cb *tgbotapi.CallbackQuery) {
	if !b.isOwner(cb.From.ID) {
		b.out.Answer(cb.ID, textUnauthorized, true)
		return
	}
	b.out.Answer(cb.ID, textBroadcastCancel, false)
	b.out.Delete(cb.Message.Chat.ID, cb.Message.MessageID)
}

func (b *Bot) sendBotStats(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if !b.requireOwner(msg) {
		return
	}
	stats, err := b.deps.Users.Stats(ctx, b.now().Add(-recentActivityWindow))
	if err != nil {
		log.Error("user stats failed", slog.String("error", err.Error()))
		_, _ = b.out.SendText(msg.Chat.ID, textGenericError)
		return
	}
	_, _ = b.out.SendText(msg.Chat.ID, userStatsText(stats), withMarkdown())
}

func (b *Bot) exportUsers(ctx context.Context, log *slog.Logger, msg *tgbotapi.Message) {
	if !b.requireOwner(msg) {
		return
	}
	users, err := b.deps.Users.ListAll(ctx)
	if err != nil {
		log.Error("list users failed", slog.String("error", err.Error()))
		_, _ = b.out.SendText(msg.Chat.ID, textExportError)
		return
	}
	if len(users) == 0 {
		_, _ = b.out.SendText(msg.Chat.ID, textNoUsers)
		return
	}
	data, err := export.UsersCSV(users)
	if err != nil {
		log.Error("encode users failed", slog.String("error", err.Error()))
		_, _ = b.out.SendText(msg.Chat.ID, textExportError)
		return
	}
	if err := b.out.SendDocument(msg.Chat.ID, export.FileName(b.now()), data, exportCaption(len(users))); err != nil {
		log.Error("send export failed", slog.String("error", err.Error()))
		_, _ = b.out.SendText(msg.Chat.ID, textExportError)
	}
}
