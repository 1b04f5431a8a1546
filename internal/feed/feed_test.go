package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"
	cfg.RequestsPerSecond = 1000
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func TestFetchImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "false", r.URL.Query().Get("nsfw"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": 101,
					"url": "https://cdn.example/101.png",
					"username": "artist",
					"tags": ["fantasy", "portrait"],
					"stats": {"rating": 4.5}
				},
				{"id": 102, "url": ""},
				{"id": 103, "url": "https://cdn.example/103.png", "stats": {}}
			],
			"metadata": {"nextCursor": "abc123"}
		}`))
	})

	images, cursor, err := client.FetchImages(context.Background(), FetchOptions{Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, "abc123", cursor)
	require.Len(t, images, 2, "items without a URL are skipped")

	first := images[0]
	assert.Equal(t, "https://cdn.example/101.png", first.URL)
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, "civitai", first.Platform)
	assert.Equal(t, "artist", first.Author)
	assert.Equal(t, []string{"fantasy", "portrait"}, first.Tags)
	require.NotNil(t, first.Rating)
	assert.InDelta(t, 4.5, *first.Rating, 0.001)

	assert.Nil(t, images[1].Rating, "missing stats leave the rating unset")
}

func TestFetchImagesPassesCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("cursor"))
		_, _ = w.Write([]byte(`{"items": [], "metadata": {}}`))
	})

	images, cursor, err := client.FetchImages(context.Background(), FetchOptions{Cursor: "abc123"})
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Empty(t, cursor)
}

func TestFetchImagesServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	_, _, err := client.FetchImages(context.Background(), FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RequestsPerSecond = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CURATOR_FEED_BASE_URL", "https://feed.example/api")
	t.Setenv("CURATOR_FEED_PLATFORM", "examplehub")
	t.Setenv("CIVITAI_API_KEY", "k-123")

	cfg := ConfigFromEnv()
	assert.Equal(t, "https://feed.example/api", cfg.BaseURL)
	assert.Equal(t, "examplehub", cfg.Platform)
	assert.Equal(t, "k-123", cfg.APIKey)
}
