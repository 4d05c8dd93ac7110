package facebook

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const graphFields = "id,message,story,created_time,permalink_url,full_picture"

type graphResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Message      string `json:"message"`
		Story        string `json:"story"`
		CreatedTime  string `json:"created_time"`
		PermalinkURL string `json:"permalink_url"`
		FullPicture  string `json:"full_picture"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// GraphURL is the posts endpoint of the configured page.
func (a *Aggregator) GraphURL(limit int) string {
	q := url.Values{}
	q.Set("fields", graphFields)
	q.Set("limit", fmt.Sprint(min(limit, 100)))
	q.Set("access_token", a.cfg.GraphToken)
	return fmt.Sprintf("%s/%s/posts?%s", strings.TrimRight(a.cfg.GraphBase, "/"), url.PathEscape(a.cfg.Page), q.Encode())
}

func (a *Aggregator) fromGraph(ctx context.Context, want int) ([]rawPost, error) {
	var resp graphResponse
	if err := a.fetcher.JSON(ctx, a.GraphURL(want), &resp); err != nil {
		return nil, err
	}

	posts := make([]rawPost, 0, len(resp.Data))
	for _, d := range resp.Data {
		text := d.Message
		if text == "" {
			text = d.Story
		}
		link := d.PermalinkURL
		if link == "" && d.ID != "" {
			link = "https://www.facebook.com/" + d.ID
		}
		posts = append(posts, rawPost{
			ID:    d.ID,
			Text:  text,
			Image: d.FullPicture,
			Date:  d.CreatedTime,
			URL:   link,
		})
	}
	return posts, nil
}
