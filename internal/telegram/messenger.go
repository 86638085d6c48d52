package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lunemusic/internal/domain"
	"lunemusic/internal/pipeline"
)

const DefaultCaptionFooter = "Support @LuneMusic_Bot"

// Messenger owns every outbound call: replays from the distribution channel,
// publishing new audio, forwarding broadcasts and plain chat messages.
type Messenger struct {
	api       API
	channelID int64
	footer    string
	logger    *slog.Logger
}

func NewMessenger(api API, channelID int64, footer string, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	footer = strings.TrimSpace(footer)
	if footer == "" {
		footer = DefaultCaptionFooter
	}
	return &Messenger{api: api, channelID: channelID, footer: footer, logger: logger}
}

func (m *Messenger) Caption(title, artist string) string {
	return fmt.Sprintf("🎵 %s\n👤 %s\n\n%s", title, artist, m.footer)
}

// Replay copies the channel message behind entry to the requester.
func (m *Messenger) Replay(_ context.Context, entry domain.CatalogEntry, to domain.Delivery) error {
	cfg := tgbotapi.NewCopyMessage(to.ChatID, m.channelID, int(entry.DistributionRef))
	cfg.Caption = m.Caption(entry.Title, entry.Artist)
	cfg.ReplyToMessageID = to.ReplyToMessageID
	_, err := m.api.Request(cfg)
	return err
}

// Publish uploads audio to the requester, then posts the same file to the
// distribution channel and returns the channel message id.
func (m *Messenger) Publish(_ context.Context, audio pipeline.Audio, to domain.Delivery) (domain.DistributionRef, error) {
	upload, closeFile, err := openUpload(audio)
	if err != nil {
		return 0, err
	}
	defer closeFile()

	toUser := m.audioConfig(to.ChatID, upload, audio)
	toUser.ReplyToMessageID = to.ReplyToMessageID
	sent, err := m.api.Send(toUser)
	if err != nil {
		return 0, fmt.Errorf("send audio to requester: %w", err)
	}

	var channelFile tgbotapi.RequestFileData
	if sent.Audio != nil && sent.Audio.FileID != "" {
		channelFile = tgbotapi.FileID(sent.Audio.FileID)
	} else {
		reopened, closeAgain, err := openUpload(audio)
		if err != nil {
			return 0, err
		}
		defer closeAgain()
		channelFile = reopened
	}

	posted, err := m.api.Send(m.audioConfig(m.channelID, channelFile, audio))
	if err != nil {
		return 0, fmt.Errorf("send audio to channel: %w", err)
	}
	return domain.DistributionRef(posted.MessageID), nil
}

func (m *Messenger) audioConfig(chatID int64, file tgbotapi.RequestFileData, audio pipeline.Audio) tgbotapi.AudioConfig {
	cfg := tgbotapi.NewAudio(chatID, file)
	cfg.Caption = m.Caption(audio.Title, audio.Artist)
	cfg.Title = audio.Title
	cfg.Performer = audio.Artist
	cfg.Duration = audio.Duration
	return cfg
}

func openUpload(audio pipeline.Audio) (tgbotapi.FileReader, func(), error) {
	f, err := os.Open(audio.Path)
	if err != nil {
		return tgbotapi.FileReader{}, func() {}, fmt.Errorf("open converted file: %w", err)
	}
	return tgbotapi.FileReader{Name: audio.FileName, Reader: f}, func() { _ = f.Close() }, nil
}

// Forward implements the broadcast fan-out send.
func (m *Messenger) Forward(_ context.Context, toChatID, fromChatID int64, messageID int) error {
	_, err := m.api.Send(tgbotapi.NewForward(toChatID, fromChatID, messageID))
	return err
}

type sendOption func(*tgbotapi.MessageConfig)

func withMarkdown() sendOption {
	return func(c *tgbotapi.MessageConfig) { c.ParseMode = tgbotapi.ModeMarkdown }
}

func replyTo(messageID int) sendOption {
	return func(c *tgbotapi.MessageConfig) { c.ReplyToMessageID = messageID }
}

func withKeyboard(markup tgbotapi.InlineKeyboardMarkup) sendOption {
	return func(c *tgbotapi.MessageConfig) { c.ReplyMarkup = markup }
}

func (m *Messenger) SendText(chatID int64, text string, opts ...sendOption) (tgbotapi.Message, error) {
	cfg := tgbotapi.NewMessage(chatID, text)
	for _, opt := range opts {
		opt(&cfg)
	}
	sent, err := m.api.Send(cfg)
	if err != nil {
		m.logger.Warn("send message failed", slog.Int64("chatId", chatID), slog.String("error", err.Error()))
	}
	return sent, err
}

func (m *Messenger) EditText(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	cfg.ParseMode = tgbotapi.ModeMarkdown
	cfg.ReplyMarkup = markup
	_, err := m.api.Request(cfg)
	return err
}

// EditPlain edits without a parse mode; used for status counters.
func (m *Messenger) EditPlain(chatID int64, messageID int, text string) {
	if _, err := m.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		m.logger.Debug("edit message failed", slog.Int64("chatId", chatID), slog.String("error", err.Error()))
	}
}

// Delete removes a message and swallows failures.
func (m *Messenger) Delete(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		m.logger.Debug("delete message failed",
			slog.Int64("chatId", chatID),
			slog.Int("messageId", messageID),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Messenger) Answer(callbackID, text string, alert bool) {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := m.api.Request(cfg); err != nil {
		m.logger.Debug("answer callback failed", slog.String("error", err.Error()))
	}
}

func (m *Messenger) SendDocument(chatID int64, name string, data []byte, caption string) error {
	cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	cfg.Caption = caption
	_, err := m.api.Send(cfg)
	return err
}
