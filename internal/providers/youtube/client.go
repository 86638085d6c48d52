package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"lunemusic/internal/domain"
	"lunemusic/internal/providers/common"
)

const (
	defaultAPIBase      = "https://www.googleapis.com/youtube/v3"
	defaultRapidAPIHost = "youtube-mp36.p.rapidapi.com"
	providerName        = "youtube"
	mediaComment        = "Downloaded from YouTube"
	maxSearchResults    = 25
)

var (
	ErrNoAPIKey        = errors.New("youtube api key is not configured")
	ErrNoDownloadLink  = errors.New("failed to get download link")
	ErrRapidAPIMissing = errors.New("rapidapi key is not configured")
)

type Config struct {
	APIKey           string
	APIBase          string
	RapidAPIKey      string
	RapidAPIHost     string
	RapidAPIEndpoint string
	Client           *http.Client
}

// Client searches through the YouTube Data API and resolves MP3 links
// through the youtube-mp36 RapidAPI.
type Client struct {
	client        *http.Client
	apiKey        string
	apiBase       string
	rapidKey      string
	rapidHost     string
	rapidEndpoint string
}

func NewClient(cfg Config) *Client {
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	rapidHost := strings.TrimSpace(cfg.RapidAPIHost)
	if rapidHost == "" {
		rapidHost = defaultRapidAPIHost
	}
	rapidEndpoint := strings.TrimSpace(cfg.RapidAPIEndpoint)
	if rapidEndpoint == "" {
		rapidEndpoint = "https://" + rapidHost + "/dl"
	}
	return &Client{
		client:        common.ClientOrDefault(cfg.Client),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		apiBase:       apiBase,
		rapidKey:      strings.TrimSpace(cfg.RapidAPIKey),
		rapidHost:     rapidHost,
		rapidEndpoint: rapidEndpoint,
	}
}

func (c *Client) Name() string {
	return providerName
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type snippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnails   struct {
		Default struct {
			URL string `json:"url"`
		} `json:"default"`
		High struct {
			URL string `json:"url"`
		} `json:"high"`
	} `json:"thumbnails"`
}

type videosResponse struct {
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type rapidResponse struct {
	Link     string  `json:"link"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Msg      string  `json:"msg"`
	Duration float64 `json:"duration"`
}

// Search implements the live video provider used by the aggregator.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResultItem, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = 10
	}

	values := url.Values{}
	values.Set("part", "snippet")
	values.Set("type", "video")
	values.Set("maxResults", strconv.Itoa(limit))
	values.Set("q", strings.TrimSpace(query))
	values.Set("key", c.apiKey)

	var payload searchResponse
	if err := common.GetJSON(ctx, c.client, c.apiBase+"/search?"+values.Encode(), nil, &payload); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	items := make([]domain.SearchResultItem, 0, len(payload.Items))
	ids := make([]string, 0, len(payload.Items))
	for _, it := range payload.Items {
		id := strings.TrimSpace(it.ID.VideoID)
		if id == "" {
			continue
		}
		items = append(items, domain.SearchResultItem{
			Title:        common.CleanText(it.Snippet.Title),
			Artist:       common.CleanText(it.Snippet.ChannelTitle),
			Origin:       domain.OriginLiveVideo,
			SelectionKey: id,
		})
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return items, nil
	}

	// Results are still usable without durations.
	details, err := c.videos(ctx, ids)
	if err == nil {
		for i := range items {
			if d, ok := details[items[i].SelectionKey]; ok && d.seconds > 0 {
				items[i].Duration = domain.Seconds(d.seconds)
			}
		}
	}
	return items, nil
}

type videoDetails struct {
	title     string
	channel   string
	seconds   int
	thumbnail string
}

func (c *Client) videos(ctx context.Context, ids []string) (map[string]videoDetails, error) {
	values := url.Values{}
	values.Set("part", "snippet,contentDetails")
	values.Set("id", strings.Join(ids, ","))
	values.Set("key", c.apiKey)

	var payload videosResponse
	if err := common.GetJSON(ctx, c.client, c.apiBase+"/videos?"+values.Encode(), nil, &payload); err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}

	out := make(map[string]videoDetails, len(payload.Items))
	for _, item := range payload.Items {
		thumb := item.Snippet.Thumbnails.High.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		out[item.ID] = videoDetails{
			title:     common.CleanText(item.Snippet.Title),
			channel:   common.CleanText(item.Snippet.ChannelTitle),
			seconds:   parseISO8601Duration(item.ContentDetails.Duration),
			thumbnail: thumb,
		}
	}
	return out, nil
}

// Media resolves metadata and an MP3 link for videoID. Missing metadata
// falls back to placeholder tags and the default thumbnail.
func (c *Client) Media(ctx context.Context, videoID string) (domain.Media, error) {
	videoID = strings.TrimSpace(videoID)
	media := domain.Media{
		ProviderID: videoID,
		Comment:    mediaComment,
		CoverURL:   ThumbnailURL(videoID),
		SourceURL:  "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID),
	}

	if c.apiKey != "" {
		if details, err := c.videos(ctx, []string{videoID}); err == nil {
			if d, ok := details[videoID]; ok {
				media.Title = d.title
				media.Artist = d.channel
				media.Duration = d.seconds
				if d.thumbnail != "" {
					media.CoverURL = d.thumbnail
				}
			}
		}
	}

	link, err := c.downloadLink(ctx, videoID)
	if err != nil {
		return domain.Media{}, err
	}
	media.AudioURL = link.Link
	if media.Title == "" {
		media.Title = common.CleanText(link.Title)
	}
	if media.Duration == 0 {
		media.Duration = int(link.Duration)
	}
	return media.WithFallbacks(), nil
}

func (c *Client) downloadLink(ctx context.Context, videoID string) (rapidResponse, error) {
	if c.rapidKey == "" {
		return rapidResponse{}, ErrRapidAPIMissing
	}
	values := url.Values{}
	values.Set("id", videoID)
	headers := map[string]string{
		"x-rapidapi-key":  c.rapidKey,
		"x-rapidapi-host": c.rapidHost,
		"Accept":          "*/*",
	}

	var payload rapidResponse
	if err := common.GetJSON(ctx, c.client, c.rapidEndpoint+"?"+values.Encode(), headers, &payload); err != nil {
		return rapidResponse{}, fmt.Errorf("youtube download link: %w", err)
	}
	if strings.TrimSpace(payload.Link) == "" {
		if payload.Msg != "" {
			return rapidResponse{}, fmt.Errorf("%w: %s", ErrNoDownloadLink, payload.Msg)
		}
		return rapidResponse{}, ErrNoDownloadLink
	}
	return payload, nil
}

func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + url.PathEscape(videoID) + "/hqdefault.jpg"
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISO8601Duration returns seconds for PT#H#M#S values and 0 otherwise.
func parseISO8601Duration(value string) int {
	matches := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if matches == nil {
		return 0
	}
	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
