package facebook

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clubfeed/extract"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

var (
	postLink = regexp.MustCompile(`story\.php|permalink\.php|/posts/|/permalink/|/photos/`)
	moreText = regexp.MustCompile(`(?i)see more stories|show more|more stories|ещё|еще|більше`)

	// query parameters that identify a post, everything else is tracking
	postParams = []string{"story_fbid", "fbid", "id"}
)

// MobileURL is the first page scraped for the configured page.
func (a *Aggregator) MobileURL() string {
	return strings.TrimRight(a.cfg.MobileBase, "/") + "/" + url.PathEscape(a.cfg.Page)
}

// fromMobile scrapes the mobile site, following "see more" links until want
// posts are found or MaxPages pages were read.
func (a *Aggregator) fromMobile(ctx context.Context, want int) ([]rawPost, error) {
	var (
		posts   []rawPost
		seen    = map[string]bool{}
		visited = map[string]bool{}
		next    = a.MobileURL()
	)

	for page := 0; page < a.cfg.MaxPages && next != "" && len(posts) < want; page++ {
		if visited[next] {
			break
		}
		visited[next] = true

		body, err := a.fetcher.Page(ctx, next)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			log.WithFields(log.Fields{
				"url":   next,
				"page":  page,
				"error": err,
			}).Warn("Stopping mobile pagination")
			break
		}

		found, more := a.parseMobilePage(next, body)
		for _, p := range found {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			posts = append(posts, p)
		}
		next = more
	}

	return posts, nil
}

// parseMobilePage returns the posts on one page and the next page URL.
func (a *Aggregator) parseMobilePage(pageURL, body string) ([]rawPost, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, ""
	}

	now := a.now()
	var (
		posts []rawPost
		seen  = map[string]bool{}
		next  string
	)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		if link := canonicalPostURL(pageURL, href); link != "" {
			if seen[link] {
				return
			}
			seen[link] = true

			container := postContainer(s)
			posts = append(posts, rawPost{
				Text:  containerText(container),
				Image: containerImage(pageURL, container),
				Date:  containerDate(container, now),
				URL:   link,
			})
			return
		}

		if next == "" && (strings.Contains(href, "cursor=") || moreText.MatchString(s.Text())) {
			if abs := extract.ToAbs(pageURL, extract.DecodeHTML(href)); abs != "" && abs != pageURL {
				next = abs
			}
		}
	})

	return posts, next
}

// canonicalPostURL returns href as a www.facebook.com post URL without
// tracking parameters, or "" when href is not a post link.
func canonicalPostURL(base, href string) string {
	abs := extract.ToAbs(base, extract.DecodeHTML(href))
	if abs == "" {
		return ""
	}
	u, err := url.Parse(abs)
	if err != nil || !postLink.MatchString(u.Path) {
		return ""
	}

	q := u.Query()
	keep := url.Values{}
	for _, k := range postParams {
		if v := q.Get(k); v != "" {
			keep.Set(k, v)
		}
	}
	u.RawQuery = keep.Encode()
	u.Fragment = ""

	if host := u.Hostname(); host == "facebook.com" || strings.HasSuffix(host, ".facebook.com") {
		u.Host = "www.facebook.com"
		u.Scheme = "https"
	}
	return u.String()
}

func postContainer(s *goquery.Selection) *goquery.Selection {
	if c := s.Closest("article"); c.Length() > 0 {
		return c
	}
	if c := s.Closest("div[data-ft]"); c.Length() > 0 {
		return c
	}
	return s.Parent()
}

func containerText(c *goquery.Selection) string {
	var parts []string
	c.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}

	clone := c.Clone()
	clone.Find("abbr, footer, script, style").Remove()
	return strings.TrimSpace(clone.Text())
}

func containerImage(base string, c *goquery.Selection) string {
	var image string
	c.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if src == "" || strings.Contains(src, "emoji") || strings.Contains(src, "rsrc.php") || strings.Contains(src, "static.xx.fbcdn.net") {
			return true
		}
		if w, err := strconv.Atoi(img.AttrOr("width", "")); err == nil && w < 50 {
			return true
		}
		image = extract.ToAbs(base, extract.DecodeHTML(src))
		return image == ""
	})
	return image
}

func containerDate(c *goquery.Selection, now time.Time) string {
	abbr := c.Find("abbr").First()
	if utime, ok := abbr.Attr("data-utime"); ok {
		if sec, err := strconv.ParseInt(utime, 10, 64); err == nil {
			return extract.FormatDate(time.Unix(sec, 0))
		}
	}
	if ft, ok := c.Attr("data-ft"); ok {
		if m := publishTime.FindStringSubmatch(ft); m != nil {
			if sec, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return extract.FormatDate(time.Unix(sec, 0))
			}
		}
	}
	return parseLooseDate(abbr.Text(), now)
}

var publishTime = regexp.MustCompile(`"publish_time":(\d+)`)
