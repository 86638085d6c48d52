package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/listing"
)

const (
	dataCheckMembership  = "check_membership"
	dataMyStats          = "my_stats"
	dataHelp             = "help"
	dataConfirmBroadcast = "confirm_broadcast:"
	dataCancelBroadcast  = "cancel_broadcast"
)

func listingKeyboard(rows [][]listing.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(labelStats, dataMyStats),
		tgbotapi.NewInlineKeyboardButtonData(labelHelp, dataHelp),
	))
}
