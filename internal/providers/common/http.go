package common

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

const (
	DefaultUserAgent = "lunemusic/1.0"
	maxJSONBytes     = 4 * 1024 * 1024
)

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider HTTP %d", e.Code)
	}
	return fmt.Sprintf("provider HTTP %d: %s", e.Code, e.Body)
}

// GetJSON issues a GET and decodes a JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, out any) error {
	body, err := Get(ctx, client, rawURL, headers, maxJSONBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

// Get issues a GET and returns at most limit bytes of a 2xx body.
func Get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

var spacePattern = regexp.MustCompile(`\s+`)

// CleanText decodes HTML entities and collapses whitespace.
func CleanText(raw string) string {
	value := html.UnescapeString(strings.TrimSpace(raw))
	return strings.TrimSpace(spacePattern.ReplaceAllString(value, " "))
}

// ClientOrDefault returns client, or a plain client when nil.
func ClientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{}
	}
	return client
}
