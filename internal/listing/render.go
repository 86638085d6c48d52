package listing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"lunemusic/internal/domain"
	"lunemusic/internal/selection"
)

const (
	maxLabelLength = 60
	ellipsis       = "..."

	iconVideo = "🔴"
	iconAudio = "🟢"

	prevLabel   = "⬅️ Prev"
	nextLabel   = "➡️ Next"
	cancelLabel = "❌ Cancel"
)

type Button struct {
	Label string
	Data  string
}

// Rendered is a transport-neutral listing message.
type Rendered struct {
	Text string
	Rows [][]Button
}

// Render builds the listing for one page: a button per item, prev/next only
// when those pages exist and a cancel button on every page.
func Render(page Page) Rendered {
	var text strings.Builder
	text.WriteString("🎵 *Search Results*\n")
	fmt.Fprintf(&text, "📄 Page *%d* / *%d*\n", page.Number, page.TotalPages)
	fmt.Fprintf(&text, "🔢 Total Results: *%d*\n\n", page.Total)

	rows := make([][]Button, 0, len(page.Items)+2)
	for i, item := range page.Items {
		rows = append(rows, []Button{{
			Label: Label(page.Offset+i+1, item),
			Data:  selection.Play(item.Origin, item.SelectionKey).Encode(),
		}})
	}

	var nav []Button
	if page.HasPrev() {
		nav = append(nav, Button{Label: prevLabel, Data: selection.PageTo(page.Number - 1).Encode()})
	}
	if page.HasNext() {
		nav = append(nav, Button{Label: nextLabel, Data: selection.PageTo(page.Number + 1).Encode()})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []Button{{Label: cancelLabel, Data: selection.Cancel().Encode()}})

	return Rendered{Text: text.String(), Rows: rows}
}

// Label formats "<n>. <icon> <title> - <artist> [<duration>]" capped at 60 characters.
func Label(position int, item domain.SearchResultItem) string {
	icon := iconAudio
	if item.Origin.IsVideo() {
		icon = iconVideo
	}
	label := fmt.Sprintf("%d. %s %s - %s", position, icon, item.Title, item.Artist)
	if !item.Duration.IsZero() {
		label += " [" + FormatDuration(item.Duration) + "]"
	}
	return truncate(label, maxLabelLength)
}

// FormatDuration renders seconds as M:SS and passes provider text through.
func FormatDuration(d domain.Duration) string {
	if d.Text != "" {
		return d.Text
	}
	if d.Seconds <= 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", d.Seconds/60, d.Seconds%60)
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
