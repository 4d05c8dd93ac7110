// Package fetch gets raw page bodies from upstreams that do not always want
// to be fetched. A Client knows three ways to reach a URL: a plain GET, a paid
// rendering proxy and a free read-only mirror. Page tries them in that order.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clubfeed/extract"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; clubfeed/1.0; +https://github.com/clubfeed/clubfeed)"
	DefaultTimeout   = 15 * time.Second

	DefaultScraperAPIBase  = "https://api.scraperapi.com/"
	DefaultScrapingBeeBase = "https://app.scrapingbee.com/api/v1/"
	DefaultMirrorBase      = "https://r.jina.ai/"

	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON = "application/json"

	maxBodySize = 8 << 20
)

var (
	// ErrNoProxy is returned by ViaProxy when no proxy key is configured.
	ErrNoProxy   = errors.New("no rendering proxy configured")
	ErrEmptyBody = errors.New("empty response body")
)

// StatusError is a non-2xx reply from an upstream.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request could help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	HTTPClient *http.Client
	UserAgent  string
	// Per attempt, not per chain.
	Timeout time.Duration

	// Retries of transient failures on top of the first attempt.
	MaxRetries       int
	RetryInitial     time.Duration
	RetryMaxInterval time.Duration

	ScraperAPIKey   string
	ScrapingBeeKey  string
	ScraperAPIBase  string
	ScrapingBeeBase string
	MirrorBase      string
	// DisableMirror turns the r.jina.ai fallback off entirely.
	DisableMirror bool

	// Hosts (and their subdomains) that need JavaScript rendering.
	RenderHosts []string
}

func DefaultConfig() Config {
	return Config{
		UserAgent:        DefaultUserAgent,
		Timeout:          DefaultTimeout,
		MaxRetries:       2,
		RetryInitial:     250 * time.Millisecond,
		RetryMaxInterval: 2 * time.Second,
		ScraperAPIBase:   DefaultScraperAPIBase,
		ScrapingBeeBase:  DefaultScrapingBeeBase,
		MirrorBase:       DefaultMirrorBase,
		RenderHosts:      []string{"bwfbadminton.com"},
	}
}

type Client struct {
	cfg  Config
	http *http.Client
}

// New fills the zero fields of cfg that cannot sensibly stay zero. Retries
// are left as given, so a zero Config never retries.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 250 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 2 * time.Second
	}
	if cfg.ScraperAPIBase == "" {
		cfg.ScraperAPIBase = DefaultScraperAPIBase
	}
	if cfg.ScrapingBeeBase == "" {
		cfg.ScrapingBeeBase = DefaultScrapingBeeBase
	}
	if cfg.MirrorBase == "" {
		cfg.MirrorBase = DefaultMirrorBase
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{cfg: cfg, http: httpClient}
}

// HasProxy reports whether a paid rendering proxy key is configured.
func (c *Client) HasProxy() bool {
	return c.cfg.ScraperAPIKey != "" || c.cfg.ScrapingBeeKey != ""
}

// Direct is a plain GET of target.
func (c *Client) Direct(ctx context.Context, target string) (string, error) {
	return c.get(ctx, target, acceptHTML)
}

// ViaProxy fetches target through ScraperAPI or ScrapingBee. ScraperAPI wins
// when both keys are set.
func (c *Client) ViaProxy(ctx context.Context, target string) (string, error) {
	proxied, err := c.ProxyURL(target)
	if err != nil {
		return "", err
	}
	return c.get(ctx, proxied, acceptHTML)
}

// ProxyURL builds the proxy request URL for target.
func (c *Client) ProxyURL(target string) (string, error) {
	render := c.needsRender(target)

	var base string
	q := url.Values{}
	switch {
	case c.cfg.ScraperAPIKey != "":
		base = c.cfg.ScraperAPIBase
		q.Set("api_key", c.cfg.ScraperAPIKey)
		q.Set("url", target)
		if render {
			q.Set("render", "true")
		}
	case c.cfg.ScrapingBeeKey != "":
		base = c.cfg.ScrapingBeeBase
		q.Set("api_key", c.cfg.ScrapingBeeKey)
		q.Set("url", target)
		// ScrapingBee renders by default
		q.Set("render_js", fmt.Sprintf("%t", render))
	default:
		return "", ErrNoProxy
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing proxy base: %w", err)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ViaMirror fetches target through the r.jina.ai reader mirror.
func (c *Client) ViaMirror(ctx context.Context, target string) (string, error) {
	return c.get(ctx, c.MirrorURL(target), acceptHTML)
}

func (c *Client) MirrorURL(target string) string {
	return strings.TrimRight(c.cfg.MirrorBase, "/") + "/" + target
}

// Page fetches target with every configured strategy in order: direct, then
// the paid proxy, then the mirror when no proxy key is set.
func (c *Client) Page(ctx context.Context, target string) (string, error) {
	return FirstSuccess(ctx, c.strategies(target)...)
}

func (c *Client) strategies(target string) []Strategy[string] {
	strategies := []Strategy[string]{
		{Name: "direct", Run: func(ctx context.Context) (string, error) { return c.Direct(ctx, target) }},
	}
	if c.HasProxy() {
		strategies = append(strategies, Strategy[string]{
			Name: "proxy",
			Run:  func(ctx context.Context) (string, error) { return c.ViaProxy(ctx, target) },
		})
	} else if !c.cfg.DisableMirror {
		strategies = append(strategies, Strategy[string]{
			Name: "mirror",
			Run:  func(ctx context.Context) (string, error) { return c.ViaMirror(ctx, target) },
		})
	}
	return strategies
}

// JSON GETs target and decodes the body into out.
func (c *Client) JSON(ctx context.Context, target string, out any) error {
	body, err := c.get(ctx, target, acceptJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decoding %s: %w", redact(target), err)
	}
	return nil
}

func (c *Client) needsRender(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range c.cfg.RenderHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (c *Client) get(ctx context.Context, target, accept string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitial
	b.MaxInterval = c.cfg.RetryMaxInterval
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(c.cfg.MaxRetries, 0)))

	attempt := 0
	return backoff.RetryWithData(func() (string, error) {
		attempt++
		body, err := c.do(ctx, target, accept)
		if err == nil {
			return body, nil
		}

		var status *StatusError
		switch {
		case ctx.Err() != nil:
			return "", backoff.Permanent(ctx.Err())
		case errors.As(err, &status) && !status.Temporary():
			return "", backoff.Permanent(err)
		case errors.Is(err, ErrEmptyBody):
			return "", backoff.Permanent(err)
		}

		log.WithFields(log.Fields{
			"url":     redact(target),
			"attempt": attempt,
			"error":   err,
		}).Debug("Transient upstream failure")
		return "", err
	}, backoff.WithContext(policy, ctx))
}

func (c *Client) do(ctx context.Context, target, accept string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("building request for %s: %w", redact(target), unwrapURLError(err)))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ru;q=0.8,uk;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", redact(target), unwrapURLError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", redact(target), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			URL:        redact(target),
			StatusCode: resp.StatusCode,
			Body:       snippet(string(data)),
		}
	}

	if strings.TrimSpace(string(data)) == "" {
		return "", ErrEmptyBody
	}

	return string(data), nil
}

// redact hides credentials carried in the query string so they never end up
// in logs or error messages.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	changed := false
	for _, key := range []string{"api_key", "access_token", "key"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return target
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// unwrapURLError drops the *url.Error layer, which repeats the unredacted
// request URL in its message.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func snippet(s string) string {
	return extract.Truncate(strings.TrimSpace(s), 300)
}
