package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSSItem is the subset of an RSS item the pipelines care about
type RSSItem struct {
	Title       string
	Link        string
	Description string
	Published   string
	Image       string
}

var (
	itemRegex      = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	enclosureRegex = regexp.MustCompile(`(?i)<enclosure[^>]+url=["']([^"']+)["']`)
	cdataRegex     = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*?)\]\]>\s*$`)
)

// ParseRSS parses an RSS/Atom document with gofeed. Documents gofeed rejects
// are scanned item by item with regular expressions instead.
func ParseRSS(body string) ([]RSSItem, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err == nil {
		items := make([]RSSItem, 0, len(feed.Items))
		for _, item := range feed.Items {
			if out := fromGofeed(item); out.Link != "" {
				items = append(items, out)
			}
		}
		return items, nil
	}

	items := scanItems(body)
	if len(items) == 0 {
		return nil, fmt.Errorf("parsing rss: %w", err)
	}
	return items, nil
}

func fromGofeed(item *gofeed.Item) RSSItem {
	out := RSSItem{
		Title:       PlainText(item.Title, 0),
		Link:        strings.TrimSpace(item.Link),
		Description: item.Description,
	}

	if item.PublishedParsed != nil {
		out.Published = FormatDate(*item.PublishedParsed)
	} else if item.UpdatedParsed != nil {
		out.Published = FormatDate(*item.UpdatedParsed)
	}

	switch {
	case item.Image != nil && item.Image.URL != "":
		out.Image = item.Image.URL
	case len(item.Enclosures) > 0 && item.Enclosures[0].URL != "":
		out.Image = item.Enclosures[0].URL
	default:
		out.Image = ExtractFirstImageFromContent(item.Description + " " + item.Content)
	}

	return out
}

func scanItems(body string) []RSSItem {
	var items []RSSItem
	for _, m := range itemRegex.FindAllStringSubmatch(body, -1) {
		block := m[1]
		item := RSSItem{
			Title:       PlainText(tagValue(block, "title"), 0),
			Link:        strings.TrimSpace(DecodeHTML(tagValue(block, "link"))),
			Description: DecodeHTML(tagValue(block, "description")),
			Published:   ParseDate(tagValue(block, "pubDate")),
		}
		if e := enclosureRegex.FindStringSubmatch(block); len(e) > 1 {
			item.Image = DecodeHTML(e[1])
		} else {
			item.Image = ExtractFirstImageFromContent(item.Description)
		}
		if item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func tagValue(block, name string) string {
	re := regexp.MustCompile(`(?is)<` + name + `\b[^>]*>(.*?)</` + name + `>`)
	m := re.FindStringSubmatch(block)
	if len(m) < 2 {
		return ""
	}
	if c := cdataRegex.FindStringSubmatch(m[1]); len(c) > 1 {
		return c[1]
	}
	return m[1]
}
