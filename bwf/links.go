package bwf

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"clubfeed/extract"
	"clubfeed/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	urlLiteral   = regexp.MustCompile(`https?://[^\s"'<>()\[\]]+`)
	articlePath  = regexp.MustCompile(`/news(?:-single)?/.+`)
	paginatePath = regexp.MustCompile(`/news/page/\d+/?$`)
)

// collectListingLinks scrapes every listing URL for article links. The bool
// is false only when every listing page failed to load.
func (a *Aggregator) collectListingLinks(ctx context.Context) ([]string, bool) {
	var links []string
	loaded := 0

	for _, listing := range a.cfg.ListingURLs {
		body, err := a.fetcher.Page(ctx, listing)
		if err != nil {
			log.WithFields(log.Fields{
				"url":   listing,
				"error": err,
			}).Warn("Could not load news listing")
			continue
		}
		loaded++

		found := a.extractArticleLinks(listing, body)
		log.WithFields(log.Fields{
			"url":   listing,
			"links": len(found),
		}).Debug("Scraped news listing")
		links = append(links, found...)
	}

	links = lo.Uniq(links)
	if len(links) > a.cfg.MaxTargets {
		links = links[:a.cfg.MaxTargets]
	}
	return links, loaded > 0 || len(a.cfg.ListingURLs) == 0
}

// extractArticleLinks returns the article links of a listing page in
// document order. Bodies without anchors (mirror output is plain text) are
// scanned for URL literals instead.
func (a *Aggregator) extractArticleLinks(listing, body string) []string {
	var candidates []string

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			candidates = append(candidates, href)
		})
	}
	if len(candidates) == 0 {
		candidates = urlLiteral.FindAllString(body, -1)
	}

	var links []string
	for _, candidate := range candidates {
		if link := a.articleURL(listing, candidate); link != "" {
			links = append(links, link)
		}
	}
	return lo.Uniq(links)
}

// articleURL resolves href and returns it when it points at a news article
// on the official domain, "" otherwise.
func (a *Aggregator) articleURL(listing, href string) string {
	abs := extract.ToAbs(listing, extract.DecodeHTML(href))
	if abs == "" {
		return ""
	}

	u, err := url.Parse(abs)
	if err != nil || !a.onDomain(u.Hostname()) {
		return ""
	}
	u.Fragment = ""

	if !articlePath.MatchString(u.Path) || paginatePath.MatchString(u.Path) {
		return ""
	}
	if l, err := url.Parse(listing); err == nil && strings.TrimRight(l.Path, "/") == strings.TrimRight(u.Path, "/") {
		return ""
	}
	return u.String()
}

func (a *Aggregator) onDomain(host string) bool {
	host = strings.ToLower(host)
	domain := strings.ToLower(a.cfg.Domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// GoogleNewsQuery is the search URL used for discovery.
func (a *Aggregator) GoogleNewsQuery() string {
	q := url.Values{}
	q.Set("q", "site:"+a.cfg.Domain+"/news when:"+a.cfg.RSSWindow)
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	return a.cfg.GoogleNewsURL + "?" + q.Encode()
}

// discoverViaRSS searches Google News for recent articles on the official
// domain. Every target carries the search result as its fallback item.
func (a *Aggregator) discoverViaRSS(ctx context.Context) ([]target, error) {
	body, err := a.fetcher.Direct(ctx, a.GoogleNewsQuery())
	if err != nil {
		return nil, err
	}

	items, err := extract.ParseRSS(body)
	if err != nil {
		return nil, err
	}

	var targets []target
	for _, item := range items {
		link := a.officialLink(item)
		if link == "" {
			continue
		}

		fallback := &models.NewsItem{
			Title:   item.Title,
			Href:    link,
			Img:     a.images.SelectBest(link, item.Image),
			Preview: extract.PlainText(item.Description, a.cfg.PreviewLength),
			Date:    item.Published,
		}
		if fallback.Date == "" {
			fallback.Date = extract.FormatDate(a.now())
		}
		if fallback.Title == "" {
			fallback = nil
		}
		targets = append(targets, target{URL: link, Fallback: fallback})
	}

	targets = lo.UniqBy(targets, func(t target) string { return t.URL })
	if len(targets) > a.cfg.MaxRSSTargets {
		targets = targets[:a.cfg.MaxRSSTargets]
	}

	log.WithFields(log.Fields{
		"results": len(items),
		"targets": len(targets),
	}).Debug("Google News discovery")

	return targets, nil
}

// officialLink returns the item link when it is on the official domain.
// Google often wraps results in its own redirect links, so the description's
// anchors are checked as well.
func (a *Aggregator) officialLink(item extract.RSSItem) string {
	if u, err := url.Parse(item.Link); err == nil && a.onDomain(u.Hostname()) {
		u.Fragment = ""
		return u.String()
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description)); err == nil {
		var link string
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			if u, err := url.Parse(href); err == nil && a.onDomain(u.Hostname()) {
				u.Fragment = ""
				link = u.String()
				return false
			}
			return true
		})
		return link
	}
	return ""
}
