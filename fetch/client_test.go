package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"clubfeed/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fetch.DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	body, err := fetch.New(fetch.Config{}).Direct(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
}

func TestDirectRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	client := fetch.New(fetch.Config{MaxRetries: 3, RetryInitial: time.Millisecond, RetryMaxInterval: time.Millisecond})
	body, err := client.Direct(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "finally", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDirectDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	client := fetch.New(fetch.Config{MaxRetries: 3, RetryInitial: time.Millisecond})
	_, err := client.Direct(context.Background(), srv.URL)

	var status *fetch.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDirectEmptyBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	_, err := fetch.New(fetch.Config{}).Direct(context.Background(), srv.URL)
	assert.ErrorIs(t, err, fetch.ErrEmptyBody)
}

func TestDirectTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := fetch.New(fetch.Config{Timeout: 50 * time.Millisecond}).Direct(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProxyURL(t *testing.T) {
	t.Run("scraperapi wins and renders bwf", func(t *testing.T) {
		client := fetch.New(fetch.Config{
			ScraperAPIKey:  "sa-key",
			ScrapingBeeKey: "sb-key",
			RenderHosts:    []string{"bwfbadminton.com"},
		})
		raw, err := client.ProxyURL("https://www.bwfbadminton.com/news/")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "api.scraperapi.com", u.Host)
		assert.Equal(t, "sa-key", u.Query().Get("api_key"))
		assert.Equal(t, "https://www.bwfbadminton.com/news/", u.Query().Get("url"))
		assert.Equal(t, "true", u.Query().Get("render"))
	})

	t.Run("scrapingbee without render", func(t *testing.T) {
		client := fetch.New(fetch.Config{ScrapingBeeKey: "sb-key", RenderHosts: []string{"bwfbadminton.com"}})
		raw, err := client.ProxyURL("https://m.facebook.com/club")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "app.scrapingbee.com", u.Host)
		assert.Equal(t, "false", u.Query().Get("render_js"))
	})

	t.Run("no key", func(t *testing.T) {
		_, err := fetch.New(fetch.Config{}).ProxyURL("https://example.com")
		assert.ErrorIs(t, err, fetch.ErrNoProxy)
	})
}

func TestMirrorURL(t *testing.T) {
	client := fetch.New(fetch.Config{})
	assert.Equal(t, "https://r.jina.ai/https://bwfbadminton.com/news/", client.MirrorURL("https://bwfbadminton.com/news/"))
}

func TestPageFallsBackToMirror(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	var mirrored string
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirrored = r.URL.Path
		w.Write([]byte("mirrored page"))
	}))
	defer mirror.Close()

	client := fetch.New(fetch.Config{MirrorBase: mirror.URL})
	body, err := client.Page(context.Background(), origin.URL+"/news/")
	require.NoError(t, err)
	assert.Equal(t, "mirrored page", body)
	assert.Contains(t, mirrored, "/news/")
}

func TestPageUsesProxyInsteadOfMirror(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer origin.Close()

	var proxied atomic.Bool
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied.Store(true)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()

	var mirrored atomic.Bool
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirrored.Store(true)
		w.Write([]byte("should not be used"))
	}))
	defer mirror.Close()

	client := fetch.New(fetch.Config{ScraperAPIKey: "key", ScraperAPIBase: proxy.URL, MirrorBase: mirror.URL})
	_, err := client.Page(context.Background(), origin.URL)

	assert.ErrorIs(t, err, fetch.ErrExhausted)
	assert.True(t, proxied.Load())
	assert.False(t, mirrored.Load())
	assert.NotContains(t, err.Error(), "api_key=key")
}

func TestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bad") != "" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"message":"quota"}}`))
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"club"}`))
	}))
	defer srv.Close()

	client := fetch.New(fetch.Config{})

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, client.JSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "club", out.Name)

	err := client.JSON(context.Background(), srv.URL+"?bad=1&key=secret", &out)
	var status *fetch.StatusError
	require.True(t, errors.As(err, &status))
	assert.Equal(t, http.StatusForbidden, status.StatusCode)
	assert.Contains(t, status.Body, "quota")
	assert.NotContains(t, status.URL, "secret")
}

func TestNetworkErrorsHideCredentials(t *testing.T) {
	// Nothing listens on port 1
	client := fetch.New(fetch.Config{Timeout: time.Second})

	for _, target := range []string{
		"http://127.0.0.1:1/channels?forHandle=%40club&key=SECRET",
		"http://127.0.0.1:1/posts?access_token=SECRET",
		"http://127.0.0.1:1/?api_key=SECRET&url=https%3A%2F%2Fbwfbadminton.com%2F",
	} {
		_, err := client.Direct(context.Background(), target)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "SECRET")
		assert.Contains(t, err.Error(), "REDACTED")

		err = client.JSON(context.Background(), target, &struct{}{})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "SECRET")
	}
}

func TestPageErrorsHideProxyKey(t *testing.T) {
	client := fetch.New(fetch.Config{
		Timeout:        time.Second,
		ScraperAPIKey:  "SECRET",
		ScraperAPIBase: "http://127.0.0.1:1/",
	})

	_, err := client.Page(context.Background(), "http://127.0.0.1:1/news/")
	require.ErrorIs(t, err, fetch.ErrExhausted)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestStatusErrorBodyIsValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(strings.Repeat("ж", 400)))
	}))
	defer srv.Close()

	_, err := fetch.New(fetch.Config{}).Direct(context.Background(), srv.URL)
	var status *fetch.StatusError
	require.True(t, errors.As(err, &status))
	assert.True(t, utf8.ValidString(status.Body))
	assert.Equal(t, 300, utf8.RuneCountInString(status.Body))
}
