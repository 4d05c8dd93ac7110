package youtube_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"clubfeed/fetch"
	"clubfeed/youtube"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelJSON = `{"items": [{
	"id": "UC123",
	"snippet": {"title": "Altius Badminton", "customUrl": "@altiusbadminton"},
	"contentDetails": {"relatedPlaylists": {"uploads": "UU123"}}
}]}`

const playlistJSON = `{"items": [
	{"snippet": {"title": "Final highlights", "publishedAt": "2025-01-07T10:00:00Z",
		"resourceId": {"videoId": "vid1"},
		"thumbnails": {"default": {"url": "https://i.ytimg.com/vi/vid1/default.jpg"}, "medium": {"url": "https://i.ytimg.com/vi/vid1/mqdefault.jpg"}, "high": {"url": "https://i.ytimg.com/vi/vid1/hqdefault.jpg"}}}},
	{"snippet": {"title": "Training drills", "publishedAt": "2025-01-05T10:00:00Z",
		"resourceId": {"videoId": "vid2"},
		"thumbnails": {"default": {"url": "https://i.ytimg.com/vi/vid2/default.jpg"}, "medium": {"url": "https://i.ytimg.com/vi/vid2/mqdefault.jpg"}}}},
	{"snippet": {"title": "Private video", "resourceId": {}}}
]}`

type api struct {
	channels func(r *http.Request) (int, string)
	search   func(r *http.Request) (int, string)
	playlist func(r *http.Request) (int, string)
}

func (a api) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var handler func(r *http.Request) (int, string)
		switch r.URL.Path {
		case "/channels":
			handler = a.channels
		case "/search":
			handler = a.search
		case "/playlistItems":
			handler = a.playlist
		}
		if handler == nil {
			t.Errorf("unexpected call to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		status, body := handler(r)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func lister(srv *httptest.Server) *youtube.Lister {
	cfg := youtube.DefaultConfig()
	cfg.APIKey = "secret"
	cfg.Handle = "altiusbadminton"
	cfg.BaseURL = srv.URL
	return youtube.New(cfg, fetch.New(fetch.Config{}))
}

func ok(body string) func(*http.Request) (int, string) {
	return func(*http.Request) (int, string) { return http.StatusOK, body }
}

func TestHappyPath(t *testing.T) {
	srv := api{
		channels: func(r *http.Request) (int, string) {
			assert.Equal(t, "@altiusbadminton", r.URL.Query().Get("forHandle"))
			return http.StatusOK, channelJSON
		},
		playlist: func(r *http.Request) (int, string) {
			assert.Equal(t, "UU123", r.URL.Query().Get("playlistId"))
			assert.Equal(t, "6", r.URL.Query().Get("maxResults"))
			return http.StatusOK, playlistJSON
		},
	}.server(t)

	resp, err := lister(srv).Videos(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "UC123", resp.Channel.Id)
	assert.Equal(t, "Altius Badminton", resp.Channel.Title)
	assert.Equal(t, "@altiusbadminton", resp.Channel.Handle)

	require.Len(t, resp.Videos, 2)
	assert.Equal(t, "vid1", resp.Videos[0].Id)
	assert.Equal(t, "https://i.ytimg.com/vi/vid1/hqdefault.jpg", resp.Videos[0].Thumbnail)
	assert.Equal(t, "2025-01-07T10:00:00Z", resp.Videos[0].PublishedAt)
	assert.Equal(t, "https://i.ytimg.com/vi/vid2/mqdefault.jpg", resp.Videos[1].Thumbnail)
}

func TestSearchFallback(t *testing.T) {
	srv := api{
		channels: func(r *http.Request) (int, string) {
			if r.URL.Query().Get("id") == "UC123" {
				return http.StatusOK, channelJSON
			}
			return http.StatusOK, `{"items": []}`
		},
		search: func(r *http.Request) (int, string) {
			assert.Equal(t, "channel", r.URL.Query().Get("type"))
			assert.Equal(t, "altiusbadminton", r.URL.Query().Get("q"))
			return http.StatusOK, `{"items": [{"id": {"kind": "youtube#channel", "channelId": "UC123"}}]}`
		},
		playlist: ok(playlistJSON),
	}.server(t)

	resp, err := lister(srv).Videos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UC123", resp.Channel.Id)
	assert.Len(t, resp.Videos, 2)
}

func TestChannelNotFound(t *testing.T) {
	srv := api{
		channels: ok(`{"items": []}`),
		search:   ok(`{"items": []}`),
	}.server(t)

	_, err := lister(srv).Videos(context.Background())
	assert.ErrorIs(t, err, youtube.ErrChannelNotFound)
}

func TestUploadsNotFound(t *testing.T) {
	srv := api{
		channels: ok(`{"items": [{"id": "UC123", "snippet": {"title": "x"}, "contentDetails": {"relatedPlaylists": {}}}]}`),
	}.server(t)

	_, err := lister(srv).Videos(context.Background())
	assert.ErrorIs(t, err, youtube.ErrUploadsNotFound)
}

func TestUpstreamFailure(t *testing.T) {
	srv := api{
		channels: func(*http.Request) (int, string) {
			return http.StatusForbidden, `{"error": {"code": 403, "message": "quotaExceeded"}}`
		},
	}.server(t)

	_, err := lister(srv).Videos(context.Background())

	var status *fetch.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusForbidden, status.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
}

func TestMissingAPIKey(t *testing.T) {
	_, err := youtube.New(youtube.DefaultConfig(), fetch.New(fetch.Config{})).Videos(context.Background())
	assert.ErrorIs(t, err, youtube.ErrNoAPIKey)
}
