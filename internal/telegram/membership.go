package telegram

import (
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// channelRef splits a configured channel into the chat id or public username
// GetChatMember expects.
func channelRef(channel string) (chatID int64, username string) {
	channel = strings.TrimSpace(channel)
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return id, ""
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return 0, channel
}

// channelURL is the t.me link for a public channel, empty for numeric ids.
func channelURL(channel string) string {
	if _, username := channelRef(channel); username != "" {
		return "https://t.me/" + strings.TrimPrefix(username, "@")
	}
	return ""
}

// isMember reports whether userID may use the bot. The owner always may, and
// so does everyone when no force-join channel is configured. Lookup errors
// count as not joined.
func (b *Bot) isMember(userID int64) bool {
	if b.cfg.ForceJoinChannel == "" || userID == b.cfg.OwnerID {
		return true
	}
	chatID, username := channelRef(b.cfg.ForceJoinChannel)
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chatID,
			SuperGroupUsername: username,
			UserID:             userID,
		},
	})
	if err != nil {
		b.logger.Warn("membership check failed",
			slog.Int64("userId", userID),
			slog.String("channel", b.cfg.ForceJoinChannel),
			slog.String("error", err.Error()),
		)
		return false
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true
	default:
		return false
	}
}

func (b *Bot) forceJoinKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if url := channelURL(b.cfg.ForceJoinChannel); url != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(labelJoinChannel, url)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(labelJoined, dataCheckMembership)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendForceJoin(chatID int64) {
	_, _ = b.out.SendText(chatID, forceJoinText(b.cfg.ForceJoinChannel), withMarkdown(), withKeyboard(b.forceJoinKeyboard()))
}
