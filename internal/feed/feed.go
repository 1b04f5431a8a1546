// Package feed fetches candidate images from an external content feed.
// The wire shape follows the Civitai images API but only the fields the
// intake contract needs are read, so any compatible feed works.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/musekit/curator/internal/types"
)

// Config holds feed client configuration
type Config struct {
	// BaseURL is the feed API root.
	// Default: https://civitai.com/api/v1
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Platform tags intake records with their source.
	// Default: civitai
	Platform string

	// RequestsPerSecond throttles outbound calls.
	// Default: 2
	RequestsPerSecond rate.Limit
}

// DefaultConfig returns the default feed configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://civitai.com/api/v1",
		Platform:          "civitai",
		RequestsPerSecond: 2,
	}
}

// ConfigFromEnv loads feed configuration from environment variables.
//
// Environment variables:
//   - CURATOR_FEED_BASE_URL: Feed API root (default: https://civitai.com/api/v1)
//   - CURATOR_FEED_PLATFORM: Source platform tag (default: civitai)
//   - CIVITAI_API_KEY: Bearer token for the feed API
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CURATOR_FEED_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CURATOR_FEED_PLATFORM"); v != "" {
		cfg.Platform = v
	}
	cfg.APIKey = os.Getenv("CIVITAI_API_KEY")
	return cfg
}

// Validate checks the configuration for usability
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive (got %v)", c.RequestsPerSecond)
	}
	return nil
}

// FetchOptions controls one page fetch
type FetchOptions struct {
	Limit  int    // page size, 0 uses the feed default
	Cursor string // opaque pagination cursor from a previous fetch
	NSFW   bool   // include NSFW-flagged feed items
}

// Client is a rate-limited feed API client
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a feed client
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed config: %w", err)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(cfg.RequestsPerSecond, 1),
	}, nil
}

// feedImage is the wire shape of one feed item
type feedImage struct {
	ID       json.Number `json:"id"`
	URL      string      `json:"url"`
	Username string      `json:"username"`
	Tags     []string    `json:"tags"`
	Stats    struct {
		Rating *float64 `json:"rating"`
	} `json:"stats"`
}

// feedResponse is the wire shape of one feed page
type feedResponse struct {
	Items    []feedImage `json:"items"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
	} `json:"metadata"`
}

// FetchImages retrieves one page of candidate images and the cursor for
// the next page. Items without a URL are skipped.
func (c *Client) FetchImages(ctx context.Context, opts FetchOptions) ([]types.ExternalImage, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("feed rate limit wait: %w", err)
	}

	endpoint, err := url.Parse(c.cfg.BaseURL + "/images")
	if err != nil {
		return nil, "", fmt.Errorf("building feed URL: %w", err)
	}
	q := endpoint.Query()
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	q.Set("nsfw", strconv.FormatBool(opts.NSFW))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching feed page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("feed returned %d: %s", resp.StatusCode, body)
	}

	var page feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decoding feed page: %w", err)
	}

	images := make([]types.ExternalImage, 0, len(page.Items))
	for _, item := range page.Items {
		if item.URL == "" {
			slog.Warn("Skipping feed item without URL", "id", item.ID.String())
			continue
		}
		images = append(images, types.ExternalImage{
			URL:      item.URL,
			ID:       item.ID.String(),
			Platform: c.cfg.Platform,
			Rating:   item.Stats.Rating,
			Tags:     item.Tags,
			Author:   item.Username,
		})
	}

	return images, page.Metadata.NextCursor, nil
}
