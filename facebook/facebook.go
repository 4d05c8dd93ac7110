// Package facebook collects recent posts of a Facebook page. Sources are
// tried in order (Graph API, an RSS aggregation feed, the mobile site) and
// their posts merged until enough are collected.
package facebook

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"clubfeed/cache"
	"clubfeed/extract"
	"clubfeed/fetch"
	"clubfeed/metrics"
	"clubfeed/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	pipeline = "facebook"
	cacheKey = "fb-feed"

	DefaultLimit = 12
	MaxLimit     = 50

	titleLength   = 180
	excerptLength = 300
)

// ErrNoSources means neither a token, a feed URL nor a page is configured.
var ErrNoSources = errors.New("no facebook source configured")

// Fetcher is the part of fetch.Client the sources need.
type Fetcher interface {
	Page(ctx context.Context, url string) (string, error)
	Direct(ctx context.Context, url string) (string, error)
	JSON(ctx context.Context, url string, out any) error
}

type Config struct {
	// Page id or vanity name.
	Page       string
	GraphToken string
	GraphBase  string
	RSSFeedURL string
	MobileBase string

	MaxPages int
	TTL      time.Duration
	// TTL of a fetch that found no posts. Zero stores nothing.
	EmptyTTL time.Duration
	CacheCap int

	EventKeywords  []string
	DetectLanguage bool
}

func DefaultConfig() Config {
	return Config{
		GraphBase:     "https://graph.facebook.com/v19.0",
		MobileBase:    "https://m.facebook.com",
		MaxPages:      12,
		TTL:           10 * time.Minute,
		EmptyTTL:      2 * time.Minute,
		CacheCap:      100,
		EventKeywords: DefaultEventKeywords,
	}
}

type Query struct {
	Limit      int
	EventsOnly bool
	Refresh    bool
}

// ClampLimit maps a requested limit into 1..MaxLimit, 0 meaning the default.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// rawPost is a post as a source found it, before normalization.
type rawPost struct {
	ID    string
	Title string
	Text  string
	Image string
	Date  string
	URL   string
}

type source struct {
	name string
	run  func(ctx context.Context, want int) ([]rawPost, error)
}

type Aggregator struct {
	cfg      Config
	fetcher  Fetcher
	cache    cache.Cache[[]models.Post]
	events   *EventMatcher
	detector *Detector
	now      func() time.Time
}

func New(cfg Config, fetcher Fetcher, c cache.Cache[[]models.Post]) *Aggregator {
	if cfg.CacheCap <= 0 {
		cfg.CacheCap = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 12
	}
	a := &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   c,
		events:  NewEventMatcher(cfg.EventKeywords),
		now:     time.Now,
	}
	if cfg.DetectLanguage {
		a.detector = NewDetector()
	}
	return a
}

// SetClock replaces the clock used for relative dates on the mobile site.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Fetch returns posts for q, newest first. The cache holds the unfiltered
// set so one entry serves every limit and filter.
func (a *Aggregator) Fetch(ctx context.Context, q Query) (*models.PostsResponse, error) {
	q.Limit = ClampLimit(q.Limit)

	if !q.Refresh {
		if posts, ok := a.cache.Get(cacheKey); ok {
			metrics.CacheLookups.WithLabelValues(pipeline, "hit").Inc()
			return &models.PostsResponse{Cached: true, Items: a.view(posts, q)}, nil
		}
		metrics.CacheLookups.WithLabelValues(pipeline, "miss").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(pipeline, "bypass").Inc()
	}

	start := time.Now()
	posts, err := a.collect(ctx, min(2*q.Limit, a.cfg.CacheCap))
	metrics.PipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.PipelineItems.WithLabelValues(pipeline).Set(float64(len(posts)))

	if len(posts) > a.cfg.CacheCap {
		posts = posts[:a.cfg.CacheCap]
	}
	ttl := a.cfg.TTL
	if len(posts) == 0 {
		ttl = a.cfg.EmptyTTL
	}
	if ttl > 0 {
		a.cache.Set(cacheKey, posts, ttl)
	}

	log.WithFields(log.Fields{
		"posts":   len(posts),
		"elapsed": time.Since(start),
	}).Info("Collected Facebook posts")

	return &models.PostsResponse{Cached: false, Items: a.view(posts, q)}, nil
}

func (a *Aggregator) sources() []source {
	var sources []source
	if a.cfg.GraphToken != "" && a.cfg.Page != "" {
		sources = append(sources, source{name: "graph", run: a.fromGraph})
	}
	if a.cfg.RSSFeedURL != "" {
		sources = append(sources, source{name: "rss", run: a.fromRSSFeed})
	}
	if a.cfg.Page != "" {
		sources = append(sources, source{name: "mobile", run: a.fromMobile})
	}
	return sources
}

// collect runs the sources in order, merging by URL until target posts are
// gathered. A failing source is skipped; only when all fail is it an error.
func (a *Aggregator) collect(ctx context.Context, target int) ([]models.Post, error) {
	sources := a.sources()
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	var (
		posts     []models.Post
		seen      = map[string]bool{}
		errs      []error
		succeeded int
	)

	for _, s := range sources {
		if len(posts) >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := s.run(ctx, target-len(posts))
		if err != nil {
			metrics.UpstreamRequests.WithLabelValues("facebook_"+s.name, metrics.OutcomeError).Inc()
			log.WithFields(log.Fields{
				"source": s.name,
				"error":  err,
			}).Warn("Facebook source failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		metrics.UpstreamRequests.WithLabelValues("facebook_"+s.name, metrics.OutcomeOK).Inc()
		succeeded++

		added := 0
		for _, r := range raw {
			post, ok := a.normalizeItem(r)
			if !ok || seen[post.Url] {
				continue
			}
			seen[post.Url] = true
			posts = append(posts, post)
			added++
			if len(posts) >= target {
				break
			}
		}

		log.WithFields(log.Fields{
			"source": s.name,
			"found":  len(raw),
			"added":  added,
		}).Debug("Merged Facebook source")
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %w", fetch.ErrExhausted, errors.Join(errs...))
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// normalizeItem shapes a raw post for the API. Posts without a URL are
// dropped.
func (a *Aggregator) normalizeItem(r rawPost) (models.Post, bool) {
	link := strings.TrimSpace(r.URL)
	if link == "" {
		return models.Post{}, false
	}

	text := extract.PlainText(r.Text, 0)
	title := extract.PlainText(r.Title, 0)
	if title == "" {
		title = firstLine(r.Text)
	}

	id := strings.TrimSpace(r.ID)
	if id == "" {
		sum := sha1.Sum([]byte(link))
		id = hex.EncodeToString(sum[:8])
	}

	post := models.Post{
		Id:       id,
		Title:    extract.Truncate(title, titleLength),
		Excerpt:  extract.Truncate(text, excerptLength),
		Image:    extract.ToAbs("", extract.DecodeHTML(r.Image)),
		Date:     extract.ParseDate(r.Date),
		Url:      link,
		Category: "news",
	}
	if a.detector != nil {
		post.Lang = a.detector.Detect(title + " " + text)
	}
	return post, true
}

func firstLine(html string) string {
	// break on block tags before they are stripped
	html = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(html)
	for _, line := range strings.Split(extract.StripTags(extract.DecodeHTML(html)), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			return line
		}
	}
	return ""
}

// view filters, sorts and limits a copy of posts.
func (a *Aggregator) view(posts []models.Post, q Query) []models.Post {
	out := slices.Clone(posts)
	if q.EventsOnly {
		out = lo.Filter(out, func(p models.Post, _ int) bool {
			return a.events.Match(p.Title + " " + p.Excerpt)
		})
	}

	SortByDate(out)

	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []models.Post{}
	}
	return out
}

// SortByDate orders posts newest first. Posts without a date sort as the
// epoch; ties keep their order.
func SortByDate(posts []models.Post) {
	epoch := time.Unix(0, 0).UTC()
	key := func(p models.Post) time.Time {
		if t, ok := extract.ParseTime(p.Date); ok {
			return t
		}
		return epoch
	}
	slices.SortStableFunc(posts, func(x, y models.Post) int {
		return key(y).Compare(key(x))
	})
}
