package facebook

import (
	"context"
	"strings"

	"clubfeed/extract"

	"github.com/mmcdole/gofeed"
	jsonfeed "github.com/mmcdole/gofeed/json"
)

// fromRSSFeed reads the aggregation service's feed. It is a JSON Feed in
// the usual setup, anything gofeed understands otherwise.
func (a *Aggregator) fromRSSFeed(ctx context.Context, _ int) ([]rawPost, error) {
	body, err := a.fetcher.Direct(ctx, a.cfg.RSSFeedURL)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.TrimSpace(body), "{") {
		feed, err := (&jsonfeed.Parser{}).Parse(strings.NewReader(body))
		if err == nil {
			return fromJSONFeed(feed), nil
		}
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, err
	}

	posts := make([]rawPost, 0, len(feed.Items))
	for _, item := range feed.Items {
		post := rawPost{
			ID:    item.GUID,
			Title: item.Title,
			Text:  item.Description,
			URL:   item.Link,
		}
		if post.Text == "" {
			post.Text = item.Content
		}
		switch {
		case item.Image != nil:
			post.Image = item.Image.URL
		case len(item.Enclosures) > 0:
			post.Image = item.Enclosures[0].URL
		default:
			post.Image = extract.ExtractFirstImageFromContent(item.Description + " " + item.Content)
		}
		if item.PublishedParsed != nil {
			post.Date = extract.FormatDate(*item.PublishedParsed)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func fromJSONFeed(feed *jsonfeed.Feed) []rawPost {
	posts := make([]rawPost, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := item.ContentText
		if text == "" {
			text = item.Summary
		}
		if text == "" {
			text = item.ContentHTML
		}
		image := item.Image
		if image == "" {
			image = extract.ExtractFirstImageFromContent(item.ContentHTML)
		}
		posts = append(posts, rawPost{
			ID:    item.ID,
			Title: item.Title,
			Text:  text,
			Image: image,
			Date:  item.DatePublished,
			URL:   item.URL,
		})
	}
	return posts
}
