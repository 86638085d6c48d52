package domain

import "time"

// Duration holds either a numeric length in seconds or text a provider
// already formatted.
type Duration struct {
	Seconds int    `json:"seconds,omitempty"`
	Text    string `json:"text,omitempty"`
}

func Seconds(s int) Duration { return Duration{Seconds: s} }

func (d Duration) IsZero() bool {
	return d.Seconds == 0 && d.Text == ""
}

type SearchResultItem struct {
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Duration     Duration `json:"duration"`
	Origin       Origin   `json:"origin"`
	SelectionKey string   `json:"selectionKey"`
}

type SearchSession struct {
	ChatID           int64              `json:"chatId"`
	Results          []SearchResultItem `json:"results"`
	OriginMessageID  int                `json:"originMessageId"`
	CurrentPage      int                `json:"currentPage"`
	ListingMessageID int                `json:"listingMessageId,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}
