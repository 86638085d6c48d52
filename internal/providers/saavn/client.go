package saavn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lunemusic/internal/domain"
	"lunemusic/internal/providers/common"
)

const (
	defaultBaseURL = "https://saavn.sumit.co"
	providerName   = "saavn"
	mediaComment   = "Downloaded from Saavn"
)

var ErrSongNotFound = errors.New("song not found")

type Config struct {
	BaseURL string
	Client  *http.Client
}

// Client talks to the Saavn JSON API.
type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:  common.ClientOrDefault(cfg.Client),
		baseURL: baseURL,
	}
}

func (c *Client) Name() string {
	return providerName
}

type image struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type artist struct {
	Name string `json:"name"`
}

type songPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Duration  float64 `json:"duration"`
	Year      any     `json:"year"`
	Language  string  `json:"language"`
	Label     string  `json:"label"`
	Copyright string  `json:"copyright"`
	Album     struct {
		Name string `json:"name"`
	} `json:"album"`
	Artists struct {
		Primary []artist `json:"primary"`
	} `json:"artists"`
	Image       []image `json:"image"`
	DownloadURL []image `json:"downloadUrl"`
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Results []songPayload `json:"results"`
	} `json:"data"`
}

type songsResponse struct {
	Success bool          `json:"success"`
	Data    []songPayload `json:"data"`
}

// Song is a Saavn search hit.
type Song struct {
	ID             string
	Title          string
	Artist         string
	PrimaryArtists []string
	Duration       int
	URL            string
}

// SearchSongs returns up to limit songs for query.
func (c *Client) SearchSongs(ctx context.Context, query string, limit int) ([]Song, error) {
	if limit <= 0 {
		limit = 5
	}
	values := url.Values{}
	values.Set("query", strings.TrimSpace(query))
	values.Set("page", "0")
	values.Set("limit", strconv.Itoa(limit))

	var payload searchResponse
	if err := common.GetJSON(ctx, c.client, c.baseURL+"/api/search/songs?"+values.Encode(), nil, &payload); err != nil {
		return nil, fmt.Errorf("saavn search: %w", err)
	}

	songs := make([]Song, 0, len(payload.Data.Results))
	for _, raw := range payload.Data.Results {
		if strings.TrimSpace(raw.ID) == "" {
			continue
		}
		songs = append(songs, toSong(raw))
		if len(songs) >= limit {
			break
		}
	}
	return songs, nil
}

// Search implements the live audio provider used by the aggregator.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResultItem, error) {
	songs, err := c.SearchSongs(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	items := make([]domain.SearchResultItem, 0, len(songs))
	for _, song := range songs {
		items = append(items, domain.SearchResultItem{
			Title:        song.Title,
			Artist:       song.Artist,
			Duration:     domain.Seconds(song.Duration),
			Origin:       domain.OriginLiveAudio,
			SelectionKey: song.ID,
		})
	}
	return items, nil
}

// Media loads the song and picks its best download and cover URLs.
func (c *Client) Media(ctx context.Context, songID string) (domain.Media, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return domain.Media{}, ErrSongNotFound
	}

	var payload songsResponse
	if err := common.GetJSON(ctx, c.client, c.baseURL+"/api/songs/"+url.PathEscape(songID), nil, &payload); err != nil {
		return domain.Media{}, fmt.Errorf("saavn song: %w", err)
	}
	if !payload.Success || len(payload.Data) == 0 {
		return domain.Media{}, ErrSongNotFound
	}

	raw := payload.Data[0]
	song := toSong(raw)
	media := domain.Media{
		ProviderID: songID,
		Title:      song.Title,
		Artist:     song.Artist,
		Album:      common.CleanText(raw.Album.Name),
		Year:       yearString(raw.Year),
		Genre:      raw.Language,
		Publisher:  raw.Label,
		Copyright:  raw.Copyright,
		Comment:    mediaComment,
		Duration:   song.Duration,
		AudioURL:   bestDownloadURL(raw.DownloadURL),
		CoverURL:   bestImageURL(raw.Image),
		SourceURL:  raw.URL,
	}
	if media.AudioURL == "" {
		return domain.Media{}, errors.New("no download URL available")
	}
	return media.WithFallbacks(), nil
}

// LookupByLink resolves a Saavn permalink to its song id.
func (c *Client) LookupByLink(ctx context.Context, link string) (string, error) {
	values := url.Values{}
	values.Set("link", strings.TrimSpace(link))

	var payload songsResponse
	if err := common.GetJSON(ctx, c.client, c.baseURL+"/api/songs?"+values.Encode(), nil, &payload); err != nil {
		return "", fmt.Errorf("saavn link lookup: %w", err)
	}
	if len(payload.Data) == 0 || strings.TrimSpace(payload.Data[0].ID) == "" {
		return "", ErrSongNotFound
	}
	return payload.Data[0].ID, nil
}

func toSong(raw songPayload) Song {
	names := make([]string, 0, len(raw.Artists.Primary))
	for _, a := range raw.Artists.Primary {
		if name := common.CleanText(a.Name); name != "" {
			names = append(names, name)
		}
	}
	artistText := strings.Join(names, ", ")
	if artistText == "" {
		artistText = domain.UnknownArtist
	}
	return Song{
		ID:             raw.ID,
		Title:          common.CleanText(raw.Name),
		Artist:         artistText,
		PrimaryArtists: names,
		Duration:       int(raw.Duration),
		URL:            raw.URL,
	}
}

// bestDownloadURL prefers 320kbps, then the highest listed quality.
func bestDownloadURL(urls []image) string {
	for _, u := range urls {
		if u.Quality == "320kbps" && u.URL != "" {
			return u.URL
		}
	}
	for i := len(urls) - 1; i >= 0; i-- {
		if urls[i].URL != "" {
			return urls[i].URL
		}
	}
	return ""
}

func bestImageURL(images []image) string {
	for _, img := range images {
		if img.Quality == "500x500" && img.URL != "" {
			return img.URL
		}
	}
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}

// yearString accepts the year as either a JSON string or number.
func yearString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}
