package telegram

import (
	"fmt"
	"strings"
	"time"

	"lunemusic/internal/broadcast"
	"lunemusic/internal/domain"
	"lunemusic/internal/selection"
)

const (
	textHelp = "📖 *Help Guide*\n\n" +
		"🔍 *Search:* send any song name, e.g. `Believer Imagine Dragons`\n" +
		"🔗 *Links:* paste a YouTube, JioSaavn or Spotify track link\n" +
		"▶️ *Play:* tap a result to get the audio file\n\n" +
		"*Commands*\n" +
		"/start - Start the bot\n" +
		"/help - Show this guide\n" +
		"/stats - Your statistics\n\n" +
		"🟢 JioSaavn results  🔴 YouTube results"

	textNoResults        = "❌ Koi result nahi mila. Kuch aur search karo."
	textSessionExpired   = "❌ Session expired. Search again!"
	textSearchCancelled  = "🗑️ Search cancelled"
	textPlaying          = "▶️ Playing..."
	textSongNotFound     = "❌ Song not found!"
	textInvalidSongID    = "❌ Invalid song ID!"
	textDownloading      = "⏳ Downloading song... Please wait!"
	textGenericError     = "❌ An error occurred"
	textUnsupportedLink  = "❌ Unsupported link. Send a YouTube, JioSaavn or Spotify track link, or just type a song name."
	textOwnerOnly        = "❌ This command is only available for the bot owner."
	textUnauthorized     = "❌ Unauthorized"
	textVerifiedAlert    = "✅ Verified! You can now use the bot."
	textVerified         = "✅ *Membership Verified!*\n\nYou can now search and download songs. Just send a song name!"
	textBroadcastUsage   = "📢 *Broadcast*\n\nReply to the message you want to broadcast with /broadcast."
	textBroadcastConfirm = "⚠️ *Confirm Broadcast*\n\nThe replied message will be forwarded to every user. Continue?"
	textBroadcastStart   = "📤 Starting broadcast..."
	textBroadcastWaiting = "📤 Starting broadcast...\n\n⏳ Please wait..."
	textBroadcastCancel  = "❌ Broadcast cancelled"
	textBroadcastFailed  = "❌ Broadcast failed: "
	textNoUsers          = "📭 No users found."
	textExportError      = "❌ Error exporting users."

	labelStats        = "📊 My Stats"
	labelHelp         = "❓ Help"
	labelJoinChannel  = "📢 Join Channel"
	labelJoined       = "✅ I've Joined"
	labelConfirmYes   = "✅ Yes, Broadcast"
	labelConfirmNo    = "❌ Cancel"
	dateLayout        = "02 Jan 2006"
	dateTimeLayout    = "02 Jan 2006 15:04"
	unknownFieldValue = "N/A"
)

func welcomeText(firstName string) string {
	return fmt.Sprintf("👋 *Welcome, %s!*\n\n"+
		"🎵 I can find any song for you.\n"+
		"🔍 Just send me a song name or paste a YouTube, JioSaavn or Spotify link.\n\n"+
		"Tap a button below to get started.", escapeMarkdown(firstName))
}

func greetingText(firstName string) string {
	return fmt.Sprintf("👋 Hello %s! How can I help you today?", firstName)
}

func statsText(user domain.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = unknownFieldValue
	}
	return fmt.Sprintf("📊 *Your Statistics*\n\n"+
		"👤 Name: %s\n"+
		"🆔 User ID: `%d`\n"+
		"📅 Joined: %s\n"+
		"🕐 Last Active: %s\n"+
		"💬 Total Interactions: %d",
		escapeMarkdown(name), user.UserID,
		formatDate(user.CreatedAt, dateLayout), formatDate(user.LastActive, dateTimeLayout),
		user.Interactions)
}

func userStatsText(stats domain.UserStats) string {
	return fmt.Sprintf("📊 *Bot User Statistics*\n\n"+
		"👥 Total Users: %d\n"+
		"✅ Active Users: %d\n"+
		"🚫 Blocked Bot: %d\n"+
		"🕐 Active (24h): %d",
		stats.Total, stats.Active, stats.Blocked, stats.RecentActive)
}

func forceJoinText(channel string) string {
	return fmt.Sprintf("🔒 *Access Restricted*\n\n"+
		"Please join %s to use this bot.\n\n"+
		"After joining, tap *I've Joined*.", escapeMarkdown(channel))
}

func joinFirstAlert(channel string) string {
	return fmt.Sprintf("❌ Please join %s first!", channel)
}

func notJoinedAlert(channel string) string {
	return fmt.Sprintf("❌ You haven't joined %s yet! Please join first.", channel)
}

func downloadingFrom(source string) string {
	return fmt.Sprintf("⏳ Downloading from %s... Please wait!", source)
}

func broadcastProgressText(r broadcast.Report) string {
	return fmt.Sprintf("📤 Broadcasting...\n\n"+
		"✅ Success: %d\n"+
		"❌ Failed: %d\n"+
		"🚫 Blocked: %d\n\n"+
		"📊 Progress: %d/%d",
		r.Success, r.Failed, r.Blocked, r.Processed, r.Total)
}

func broadcastDoneText(r broadcast.Report) string {
	return fmt.Sprintf("✅ Broadcast Complete!\n\n"+
		"📊 Results:\n"+
		"✅ Success: %d\n"+
		"❌ Failed: %d\n"+
		"🚫 Blocked: %d\n"+
		"📝 Total: %d",
		r.Success, r.Failed, r.Blocked, r.Total)
}

func exportCaption(count int) string {
	return fmt.Sprintf("📋 User Export - %d users", count)
}

// failureText maps a failed resolution to the message the requester sees.
func failureText(outcome selection.Outcome) string {
	switch outcome.Reason {
	case selection.ReasonInvalidID:
		return textInvalidSongID
	case selection.ReasonNotFound:
		return textSongNotFound
	case selection.ReasonFetchError:
		if outcome.Err == nil {
			return textGenericError
		}
		return "❌ Error downloading song: " + outcome.Err.Error()
	default:
		return textGenericError
	}
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return unknownFieldValue
	}
	return t.UTC().Format(layout)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user-supplied text for legacy Markdown messages.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
