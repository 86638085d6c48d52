package domain

// Media is everything needed to download, tag and publish one track.
type Media struct {
	ProviderID string
	Title      string
	Artist     string
	Album      string
	Year       string
	Genre      string
	Publisher  string
	Copyright  string
	Comment    string
	Duration   int
	AudioURL   string
	CoverURL   string
	SourceURL  string
}

const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
)

// WithFallbacks fills the title and artist a provider left blank.
func (m Media) WithFallbacks() Media {
	if m.Title == "" {
		m.Title = UnknownTitle
	}
	if m.Artist == "" {
		m.Artist = UnknownArtist
	}
	return m
}
