package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"lunemusic/internal/domain"
	"lunemusic/internal/providers/common"
)

const (
	defaultEmbedBase = "https://open.spotify.com/embed/track/"
	defaultSpotdown  = "https://spotdown.org/api/direct-download"
	trackURLBase     = "https://open.spotify.com/track/"
	mediaComment     = "Downloaded from Spotify"
	maxPageBytes     = 4 * 1024 * 1024
)

var ErrTrackNotFound = errors.New("spotify track not found")

type Config struct {
	EmbedBase        string
	SpotdownEndpoint string
	Client           *http.Client
}

// Client reads track metadata from the public embed page and resolves
// audio through the spotdown direct-download endpoint.
type Client struct {
	client    *http.Client
	embedBase string
	spotdown  string
}

func NewClient(cfg Config) *Client {
	embedBase := strings.TrimSpace(cfg.EmbedBase)
	if embedBase == "" {
		embedBase = defaultEmbedBase
	}
	if !strings.HasSuffix(embedBase, "/") {
		embedBase += "/"
	}
	spotdown := strings.TrimSpace(cfg.SpotdownEndpoint)
	if spotdown == "" {
		spotdown = defaultSpotdown
	}
	return &Client{
		client:    common.ClientOrDefault(cfg.Client),
		embedBase: embedBase,
		spotdown:  spotdown,
	}
}

// Track is the metadata of one Spotify track.
type Track struct {
	ID         string
	Title      string
	Artists    []string
	DurationMs int
	CoverURL   string
}

// PrimaryArtist returns the first credited artist.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

func TrackURL(id string) string {
	return trackURLBase + id
}

type nextData struct {
	Props struct {
		PageProps struct {
			State struct {
				Data struct {
					Entity entity `json:"entity"`
				} `json:"data"`
			} `json:"state"`
		} `json:"pageProps"`
	} `json:"props"`
}

type entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Artists  []struct {
		Name string `json:"name"`
	} `json:"artists"`
	VisualIdentity struct {
		Image []struct {
			URL      string `json:"url"`
			MaxWidth int    `json:"maxWidth"`
		} `json:"image"`
	} `json:"visualIdentity"`
	CoverArt struct {
		Sources []struct {
			URL   string `json:"url"`
			Width int    `json:"width"`
		} `json:"sources"`
	} `json:"coverArt"`
}

// Track fetches the embed page for id and extracts its metadata.
func (c *Client) Track(ctx context.Context, id string) (Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Track{}, ErrTrackNotFound
	}
	body, err := common.Get(ctx, c.client, c.embedBase+url.PathEscape(id), map[string]string{"Accept": "text/html"}, maxPageBytes)
	if err != nil {
		var statusErr *common.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return Track{}, ErrTrackNotFound
		}
		return Track{}, fmt.Errorf("spotify embed: %w", err)
	}

	track, err := parseEmbed(body)
	if err != nil {
		return Track{}, err
	}
	if track.ID == "" {
		track.ID = id
	}
	return track, nil
}

// Media resolves tags from the embed page and audio from spotdown.
func (c *Client) Media(ctx context.Context, id string) (domain.Media, error) {
	track, err := c.Track(ctx, id)
	if err != nil {
		return domain.Media{}, err
	}
	values := url.Values{}
	values.Set("url", TrackURL(track.ID))

	return domain.Media{
		ProviderID: track.ID,
		Title:      track.Title,
		Artist:     strings.Join(track.Artists, ", "),
		Comment:    mediaComment,
		Duration:   track.DurationMs / 1000,
		AudioURL:   c.spotdown + "?" + values.Encode(),
		CoverURL:   track.CoverURL,
		SourceURL:  TrackURL(track.ID),
	}.WithFallbacks(), nil
}

func parseEmbed(page []byte) (Track, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return Track{}, fmt.Errorf("parse embed page: %w", err)
	}
	raw := findNextData(doc)
	if raw == "" {
		return Track{}, fmt.Errorf("%w: no page data", ErrTrackNotFound)
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Track{}, fmt.Errorf("decode page data: %w", err)
	}
	e := data.Props.PageProps.State.Data.Entity
	title := common.CleanText(e.Name)
	if title == "" {
		title = common.CleanText(e.Title)
	}
	if title == "" {
		return Track{}, ErrTrackNotFound
	}

	artists := make([]string, 0, len(e.Artists))
	for _, a := range e.Artists {
		if name := common.CleanText(a.Name); name != "" {
			artists = append(artists, name)
		}
	}

	cover, width := "", -1
	for _, img := range e.VisualIdentity.Image {
		if img.URL != "" && img.MaxWidth > width {
			cover, width = img.URL, img.MaxWidth
		}
	}
	for _, src := range e.CoverArt.Sources {
		if src.URL != "" && src.Width > width {
			cover, width = src.URL, src.Width
		}
	}

	return Track{
		ID:         e.ID,
		Title:      title,
		Artists:    artists,
		DurationMs: e.Duration,
		CoverURL:   cover,
	}, nil
}

func findNextData(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == "__NEXT_DATA__" && n.FirstChild != nil {
				return n.FirstChild.Data
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findNextData(child); found != "" {
			return found
		}
	}
	return ""
}
