// Package youtube lists the latest uploads of a channel through the YouTube
// Data API: handle to channel, channel to uploads playlist, playlist to
// videos.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"clubfeed/metrics"
	"clubfeed/models"

	log "github.com/sirupsen/logrus"
)

const pipeline = "youtube"

var (
	ErrNoAPIKey        = errors.New("youtube api key not configured")
	ErrChannelNotFound = errors.New("channel not found")
	ErrUploadsNotFound = errors.New("uploads playlist not found")
)

type Fetcher interface {
	JSON(ctx context.Context, url string, out any) error
}

type Config struct {
	APIKey     string
	Handle     string
	BaseURL    string
	MaxResults int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://www.googleapis.com/youtube/v3",
		MaxResults: 6,
	}
}

type Lister struct {
	cfg     Config
	fetcher Fetcher
}

func New(cfg Config, fetcher Fetcher) *Lister {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 6
	}
	return &Lister{cfg: cfg, fetcher: fetcher}
}

type thumbnail struct {
	URL string `json:"url"`
}

type channelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title     string `json:"title"`
			CustomURL string `json:"customUrl"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type searchList struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
		} `json:"id"`
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

type playlistItems struct {
	Items []struct {
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
			ResourceID  struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
			Thumbnails struct {
				Default thumbnail `json:"default"`
				Medium  thumbnail `json:"medium"`
				High    thumbnail `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoPublishedAt string `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Videos resolves the configured channel and returns its latest uploads.
func (l *Lister) Videos(ctx context.Context) (*models.VideosResponse, error) {
	if l.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	}()

	channels, err := l.resolveChannel(ctx)
	if err != nil {
		return nil, err
	}
	ch := channels.Items[0]

	uploads := ch.ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return nil, ErrUploadsNotFound
	}

	var items playlistItems
	if err := l.fetcher.JSON(ctx, l.endpoint("playlistItems", url.Values{
		"part":       {"snippet,contentDetails"},
		"playlistId": {uploads},
		"maxResults": {fmt.Sprint(l.cfg.MaxResults)},
	}), &items); err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}

	videos := make([]models.Video, 0, len(items.Items))
	for _, it := range items.Items {
		s := it.Snippet
		if s.ResourceID.VideoID == "" {
			continue
		}
		published := s.PublishedAt
		if it.ContentDetails.VideoPublishedAt != "" {
			published = it.ContentDetails.VideoPublishedAt
		}
		videos = append(videos, models.Video{
			Id:          s.ResourceID.VideoID,
			Title:       s.Title,
			Thumbnail:   firstNonEmpty(s.Thumbnails.High.URL, s.Thumbnails.Medium.URL, s.Thumbnails.Default.URL),
			PublishedAt: published,
		})
	}
	if len(videos) > l.cfg.MaxResults {
		videos = videos[:l.cfg.MaxResults]
	}
	metrics.PipelineItems.WithLabelValues(pipeline).Set(float64(len(videos)))

	handle := ch.Snippet.CustomURL
	if handle == "" {
		handle = l.handle()
	}

	log.WithFields(log.Fields{
		"channel": ch.ID,
		"videos":  len(videos),
	}).Info("Listed YouTube uploads")

	return &models.VideosResponse{
		Channel: models.Channel{Id: ch.ID, Title: ch.Snippet.Title, Handle: handle},
		Videos:  videos,
	}, nil
}

// resolveChannel looks the handle up directly, then through a channel search.
// The returned list always has at least one item.
func (l *Lister) resolveChannel(ctx context.Context) (*channelList, error) {
	var channels channelList
	if err := l.fetcher.JSON(ctx, l.endpoint("channels", url.Values{
		"part":      {"snippet,contentDetails"},
		"forHandle": {l.handle()},
	}), &channels); err != nil {
		return nil, fmt.Errorf("looking up handle: %w", err)
	}
	if len(channels.Items) > 0 {
		return &channels, nil
	}

	log.WithField("handle", l.handle()).Info("Handle lookup empty, searching channels")

	var found searchList
	if err := l.fetcher.JSON(ctx, l.endpoint("search", url.Values{
		"part":       {"snippet"},
		"type":       {"channel"},
		"q":          {strings.TrimPrefix(l.handle(), "@")},
		"maxResults": {"1"},
	}), &found); err != nil {
		return nil, fmt.Errorf("searching channel: %w", err)
	}
	if len(found.Items) == 0 {
		return nil, ErrChannelNotFound
	}

	id := firstNonEmpty(found.Items[0].ID.ChannelID, found.Items[0].Snippet.ChannelID)
	if id == "" {
		return nil, ErrChannelNotFound
	}

	if err := l.fetcher.JSON(ctx, l.endpoint("channels", url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {id},
	}), &channels); err != nil {
		return nil, fmt.Errorf("fetching channel %s: %w", id, err)
	}
	if len(channels.Items) == 0 {
		return nil, ErrChannelNotFound
	}
	return &channels, nil
}

func (l *Lister) handle() string {
	h := strings.TrimSpace(l.cfg.Handle)
	if h != "" && !strings.HasPrefix(h, "@") {
		h = "@" + h
	}
	return h
}

func (l *Lister) endpoint(resource string, q url.Values) string {
	q.Set("key", l.cfg.APIKey)
	return strings.TrimRight(l.cfg.BaseURL, "/") + "/" + resource + "?" + q.Encode()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
