// Package bwf aggregates news from the official BWF website. The listing
// pages are scraped first; when they yield nothing, a Google News search
// scoped to the same domain is used to discover articles instead.
package bwf

import (
	"context"
	"errors"
	"fmt"
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
	pipeline = "bwf"
	cacheKey = "bwf-news"
)

// ErrAllSourcesFailed means neither the listing pages nor the news search
// could be fetched at all.
var ErrAllSourcesFailed = errors.New("no bwf news source reachable")

// Fetcher is the part of fetch.Client the aggregator needs.
type Fetcher interface {
	// Page fetches HTML through every available strategy.
	Page(ctx context.Context, url string) (string, error)
	// Direct is a plain GET, used for the RSS search.
	Direct(ctx context.Context, url string) (string, error)
}

type Config struct {
	Domain        string
	ListingURLs   []string
	GoogleNewsURL string
	// Google News "when:" window, e.g. 365d.
	RSSWindow string

	MaxTargets    int
	MaxRSSTargets int
	MaxItems      int
	Concurrency   int
	PreviewLength int
	TTL           time.Duration
	// TTL of a fetch that found no articles. Zero stores nothing.
	EmptyTTL time.Duration

	// Extra image URLs never to use as an article picture.
	BadImages []string
}

func DefaultConfig() Config {
	return Config{
		Domain:        "bwfbadminton.com",
		ListingURLs:   []string{"https://bwfbadminton.com/news/"},
		GoogleNewsURL: "https://news.google.com/rss/search",
		RSSWindow:     "365d",
		MaxTargets:    24,
		MaxRSSTargets: 20,
		MaxItems:      20,
		Concurrency:   5,
		PreviewLength: 220,
		TTL:           24 * time.Hour,
		EmptyTTL:      15 * time.Minute,
	}
}

type Aggregator struct {
	cfg     Config
	fetcher Fetcher
	cache   cache.Cache[[]models.NewsItem]
	images  *extract.ImagePolicy
	now     func() time.Time
}

func New(cfg Config, fetcher Fetcher, c cache.Cache[[]models.NewsItem]) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   c,
		images: &extract.ImagePolicy{
			Blocked: append(append([]string{}, extract.KnownBadImages...), cfg.BadImages...),
		},
		now: time.Now,
	}
}

// SetClock replaces the clock that dates articles published without a date.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Fetch returns the cached news when fresh, otherwise scrapes it anew. With
// refresh set the cache is skipped on read but still written.
func (a *Aggregator) Fetch(ctx context.Context, refresh bool) (*models.NewsResponse, error) {
	if !refresh {
		if items, ok := a.cache.Get(cacheKey); ok {
			metrics.CacheLookups.WithLabelValues(pipeline, "hit").Inc()
			return &models.NewsResponse{Cached: true, Items: items}, nil
		}
		metrics.CacheLookups.WithLabelValues(pipeline, "miss").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(pipeline, "bypass").Inc()
	}

	start := time.Now()
	items, err := a.aggregate(ctx)
	metrics.PipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.PipelineItems.WithLabelValues(pipeline).Set(float64(len(items)))

	ttl := a.cfg.TTL
	if len(items) == 0 {
		ttl = a.cfg.EmptyTTL
	}
	if ttl > 0 {
		a.cache.Set(cacheKey, items, ttl)
	}

	log.WithFields(log.Fields{
		"items":   len(items),
		"elapsed": time.Since(start),
	}).Info("Aggregated BWF news")

	return &models.NewsResponse{Cached: false, Items: items}, nil
}

func (a *Aggregator) aggregate(ctx context.Context) ([]models.NewsItem, error) {
	links, listingOK := a.collectListingLinks(ctx)

	targets := lo.Map(links, func(link string, _ int) target {
		return target{URL: link}
	})
	items, err := a.scrapeAll(ctx, targets)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		log.WithField("links", len(links)).Info("Listing scrape yielded nothing, searching Google News")

		rssTargets, rssErr := a.discoverViaRSS(ctx)
		if rssErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !listingOK {
				return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, rssErr)
			}
			log.WithField("error", rssErr).Warn("Google News search failed")
		}

		items, err = a.scrapeAll(ctx, rssTargets)
		if err != nil {
			return nil, err
		}
	}

	items = lo.UniqBy(items, func(item models.NewsItem) string { return item.Href })
	if len(items) > a.cfg.MaxItems {
		items = items[:a.cfg.MaxItems]
	}
	if items == nil {
		items = []models.NewsItem{}
	}
	return items, nil
}

// target is an article to scrape. Fallback, when set, is served if the
// article page itself cannot be fetched.
type target struct {
	URL      string
	Fallback *models.NewsItem
}

func (a *Aggregator) scrapeAll(ctx context.Context, targets []target) ([]models.NewsItem, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	return fetch.Collect(ctx, targets, a.cfg.Concurrency, func(ctx context.Context, t target) (models.NewsItem, error) {
		item, err := a.scrapeArticle(ctx, t.URL)
		if err == nil {
			return item, nil
		}
		if t.Fallback != nil && ctx.Err() == nil {
			log.WithFields(log.Fields{
				"url":   t.URL,
				"error": err,
			}).Debug("Article scrape failed, using search result")
			return *t.Fallback, nil
		}
		return models.NewsItem{}, err
	})
}

func (a *Aggregator) scrapeArticle(ctx context.Context, url string) (models.NewsItem, error) {
	body, err := a.fetcher.Page(ctx, url)
	if err != nil {
		return models.NewsItem{}, err
	}
	return a.parseArticle(url, body)
}
