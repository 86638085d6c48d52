package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lunemusic/internal/domain"
)

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"PT3M4S", 184},
		{"PT1H", 3600},
		{"PT1H30M", 5400},
		{"PT45S", 45},
		{"PT1H1M1S", 3661},
		{"P1DT1H", 0},
		{"invalid", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseISO8601Duration(tt.input); got != tt.expected {
				t.Errorf("parseISO8601Duration(%q) = %d; want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("type") != "video" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"items": [
			{"id": {"videoId": "vid1"}, "snippet": {"title": "Believer &amp; Co", "channelTitle": "ImagineDragons"}},
			{"id": {"videoId": ""}, "snippet": {"title": "channel result"}},
			{"id": {"videoId": "vid2"}, "snippet": {"title": "Believer (Live)", "channelTitle": "Fan"}}
		]}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [
			{"id": "vid1", "contentDetails": {"duration": "PT3M24S"},
			 "snippet": {"title": "Believer", "channelTitle": "ImagineDragons", "thumbnails": {"high": {"url": "https://thumb/high"}}}}
		]}`))
	})
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-rapidapi-key") != "rk" || r.Header.Get("x-rapidapi-host") != defaultRapidAPIHost {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("id") {
		case "vid1", "vid9":
			_, _ = w.Write([]byte(`{"link": "https://cdn/vid.mp3", "title": "From RapidAPI", "status": "ok", "duration": 200.4}`))
		default:
			_, _ = w.Write([]byte(`{"status": "fail", "msg": "Invalid video id"}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, apiKey string) *Client {
	return NewClient(Config{
		APIKey:           apiKey,
		APIBase:          srv.URL,
		RapidAPIKey:      "rk",
		RapidAPIEndpoint: srv.URL + "/dl",
		Client:           srv.Client(),
	})
}

func TestSearchAttachesDurations(t *testing.T) {
	client := newTestClient(newAPIServer(t), "k")

	items, err := client.Search(context.Background(), "believer", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 video items, got %d", len(items))
	}
	if items[0].Title != "Believer & Co" || items[0].Origin != domain.OriginLiveVideo || items[0].Duration.Seconds != 204 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if !items[1].Duration.IsZero() {
		t.Fatalf("vid2 has no duration, got %+v", items[1].Duration)
	}
}

func TestSearchWithoutKey(t *testing.T) {
	client := newTestClient(newAPIServer(t), "")
	if _, err := client.Search(context.Background(), "believer", 10); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestMediaUsesVideoMetadata(t *testing.T) {
	client := newTestClient(newAPIServer(t), "k")

	media, err := client.Media(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Media: %v", err)
	}
	if media.Title != "Believer" || media.Artist != "ImagineDragons" || media.Duration != 204 {
		t.Fatalf("unexpected metadata: %+v", media)
	}
	if media.AudioURL != "https://cdn/vid.mp3" || media.CoverURL != "https://thumb/high" {
		t.Fatalf("unexpected urls: %+v", media)
	}
}

func TestMediaFallsBackWithoutMetadata(t *testing.T) {
	client := newTestClient(newAPIServer(t), "")

	media, err := client.Media(context.Background(), "vid9")
	if err != nil {
		t.Fatalf("Media: %v", err)
	}
	if media.Title != "From RapidAPI" || media.Artist != domain.UnknownArtist || media.Duration != 200 {
		t.Fatalf("unexpected fallback metadata: %+v", media)
	}
	if media.CoverURL != "https://i.ytimg.com/vi/vid9/hqdefault.jpg" {
		t.Fatalf("unexpected cover: %s", media.CoverURL)
	}
}

func TestMediaWithoutLink(t *testing.T) {
	client := newTestClient(newAPIServer(t), "k")

	_, err := client.Media(context.Background(), "bad")
	if !errors.Is(err, ErrNoDownloadLink) || !strings.Contains(err.Error(), "Invalid video id") {
		t.Fatalf("expected ErrNoDownloadLink with message, got %v", err)
	}
}
