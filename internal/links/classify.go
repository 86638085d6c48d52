package links

import (
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	KindYouTube
	KindSaavn
	KindSpotify
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindYouTube:
		return "youtube"
	case KindSaavn:
		return "saavn"
	case KindSpotify:
		return "spotify"
	case KindUnsupported:
		return "unsupported"
	default:
		return "none"
	}
}

// Link is a recognised track URL. ID is the provider-native id where the
// URL carries one; Saavn permalinks are looked up by URL instead.
type Link struct {
	Kind Kind
	ID   string
	URL  string
}

var youtubeIDMarkers = []string{"v=", "youtu.be/", "shorts/", "live/"}

// Classify recognises track links. Text that does not start with http is
// KindNone and goes to text search.
func Classify(text string) Link {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "http") {
		return Link{Kind: KindNone}
	}
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		id := youtubeID(text)
		if id == "" {
			return Link{Kind: KindUnsupported, URL: text}
		}
		return Link{Kind: KindYouTube, ID: id, URL: text}
	case strings.Contains(lower, "saavn.com"):
		return Link{Kind: KindSaavn, URL: text}
	case strings.Contains(lower, "spotify.com"):
		id := spotifyTrackID(text)
		if id == "" {
			return Link{Kind: KindUnsupported, URL: text}
		}
		return Link{Kind: KindSpotify, ID: id, URL: text}
	default:
		return Link{Kind: KindUnsupported, URL: text}
	}
}

func youtubeID(text string) string {
	for _, marker := range youtubeIDMarkers {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		if id := cutID(text[idx+len(marker):]); id != "" {
			return id
		}
	}
	return ""
}

func spotifyTrackID(text string) string {
	_, rest, found := strings.Cut(text, "track/")
	if !found {
		return ""
	}
	return cutID(rest)
}

// cutID ends an id at the first query, fragment, path or whitespace byte.
func cutID(rest string) string {
	if end := strings.IndexAny(rest, "?&#/ \t\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
