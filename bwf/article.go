package bwf

import (
	"errors"
	"regexp"
	"strings"

	"clubfeed/extract"
	"clubfeed/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	errNoTitle = errors.New("article has no title")

	// r.jina.ai puts the page title on a "Title:" line
	mirrorTitle = regexp.MustCompile(`(?m)^Title:\s*(.+)$`)
)

func (a *Aggregator) parseArticle(pageURL, body string) (models.NewsItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return models.NewsItem{}, err
	}

	item := models.NewsItem{
		Title:   articleTitle(doc, body),
		Href:    pageURL,
		Img:     a.images.SelectBest(pageURL, imageCandidates(doc)...),
		Date:    articleDate(doc),
		Preview: extract.Truncate(articlePreview(doc), a.cfg.PreviewLength),
	}
	if item.Title == "" {
		return models.NewsItem{}, errNoTitle
	}
	if item.Date == "" {
		item.Date = extract.FormatDate(a.now())
	}
	return item, nil
}

func meta(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func articleTitle(doc *goquery.Document, body string) string {
	if t := extract.PlainText(meta(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`), 0); t != "" {
		return t
	}
	if t := extract.PlainText(doc.Find("title").First().Text(), 0); t != "" {
		return t
	}
	if t := extract.PlainText(doc.Find("h1").First().Text(), 0); t != "" {
		return t
	}
	if m := mirrorTitle.FindStringSubmatch(body); len(m) > 1 {
		return extract.PlainText(m[1], 0)
	}
	return ""
}

// imageCandidates lists possible article pictures, best first.
func imageCandidates(doc *goquery.Document) []string {
	var candidates []string
	for _, sel := range []string{
		`meta[property="og:image"]`,
		`meta[property="og:image:url"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				candidates = append(candidates, v)
			}
		})
	}

	if v, ok := doc.Find(`link[rel="image_src"]`).First().Attr("href"); ok {
		candidates = append(candidates, v)
	}

	for _, sel := range []string{"article img", "main img", "img"} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
				if v, ok := s.Attr(attr); ok {
					candidates = append(candidates, v)
				}
			}
		})
	}
	return candidates
}

func articleDate(doc *goquery.Document) string {
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if d := extract.ParseDate(v); d != "" {
			return d
		}
	}
	return extract.ParseDate(meta(doc, `meta[property="article:published_time"]`))
}

func articlePreview(doc *goquery.Document) string {
	if d := extract.PlainText(meta(doc, `meta[name="description"]`, `meta[property="og:description"]`), 0); d != "" {
		return d
	}

	var preview string
	doc.Find("article p, main p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		preview = extract.PlainText(s.Text(), 0)
		return preview == ""
	})
	return preview
}
