// Package resolver provides a client for the song metadata service.
//
// The service turns a search term or media URL into playable metadata
// (name, artist, duration, media reference). Resolution is network
// I/O with a bounded timeout; callers pass a context for cancellation.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/domain/song"
)

// Client is a song resolver API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config represents resolver client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// candidate mirrors the service's JSON result shape.
type candidate struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Name         string `json:"name"`
	Artist       string `json:"artist"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// New creates a new resolver client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("resolver base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Resolve searches the metadata service for playable candidates.
// Returns an empty slice when nothing matched.
func (c *Client) Resolve(ctx context.Context, query string, limit int) ([]song.Song, error) {
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > 25 {
		limit = 25
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))

	reqURL := c.baseURL + "/resolve?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "resolver request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read resolver response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("resolver returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []candidate
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, errors.Wrap(err, "failed to parse resolver response")
	}

	songs := make([]song.Song, 0, len(results))
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		songs = append(songs, song.Song{
			MediaRef:     r.ID,
			URL:          r.URL,
			Name:         r.Name,
			Artist:       r.Artist,
			DurationSecs: r.Duration,
			ThumbnailURL: r.ThumbnailURL,
		})
	}
	return songs, nil
}
