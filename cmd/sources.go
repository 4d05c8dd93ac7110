/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"clubfeed/bwf"
	"clubfeed/cache"
	"clubfeed/config"
	"clubfeed/facebook"
	"clubfeed/fetch"
	"clubfeed/models"
	"clubfeed/youtube"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// sourceFlags are shared by every command that runs a pipeline.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "cache-file",
			Usage:   "bbolt file for cached results, in-memory cache when empty",
			EnvVars: []string{"CLUBFEED_CACHE_FILE"},
		},
		&cli.StringFlag{
			Name:    "scraperapi-key",
			Usage:   "ScraperAPI key for pages that block direct requests",
			EnvVars: []string{"CLUBFEED_SCRAPERAPI_KEY", "SCRAPERAPI_KEY"},
		},
		&cli.StringFlag{
			Name:    "scrapingbee-key",
			Usage:   "ScrapingBee key, used when no ScraperAPI key is set",
			EnvVars: []string{"CLUBFEED_SCRAPINGBEE_KEY", "SCRAPINGBEE_API_KEY"},
		},
		&cli.BoolFlag{
			Name:    "disable-mirror",
			Usage:   "Never fall back to the public text mirror",
			EnvVars: []string{"CLUBFEED_DISABLE_MIRROR"},
		},
		&cli.StringFlag{
			Name:    "fb-page",
			Usage:   "Facebook page id or vanity name",
			EnvVars: []string{"CLUBFEED_FB_PAGE", "FB_PAGE_ID"},
		},
		&cli.StringFlag{
			Name:    "fb-token",
			Usage:   "Facebook Graph API page access token",
			EnvVars: []string{"CLUBFEED_FB_TOKEN", "FB_PAGE_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "fb-rss-url",
			Usage:   "RSS or JSON Feed mirroring the Facebook page",
			EnvVars: []string{"CLUBFEED_FB_RSS_URL", "FB_RSS_FEED_URL"},
		},
		&cli.BoolFlag{
			Name:    "fb-detect-language",
			Usage:   "Tag Facebook posts with their detected language",
			EnvVars: []string{"CLUBFEED_FB_DETECT_LANGUAGE"},
		},
		&cli.StringFlag{
			Name:    "youtube-key",
			Usage:   "YouTube Data API key",
			EnvVars: []string{"CLUBFEED_YOUTUBE_KEY", "YOUTUBE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "youtube-handle",
			Usage:   "YouTube channel handle, e.g. @club",
			EnvVars: []string{"CLUBFEED_YOUTUBE_HANDLE", "YOUTUBE_HANDLE"},
		},
	}
}

type pipelines struct {
	news   *bwf.Aggregator
	posts  *facebook.Aggregator
	videos *youtube.Lister
	store  *cache.Store
}

func (p *pipelines) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// buildPipelines wires the fetch client, the caches and the three pipelines
// from the config file and the source flags.
func buildPipelines(ctx *cli.Context) (*pipelines, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	fc := cfg.FetchConfig()
	fc.ScraperAPIKey = ctx.String("scraperapi-key")
	fc.ScrapingBeeKey = ctx.String("scrapingbee-key")
	fc.DisableMirror = ctx.Bool("disable-mirror")
	client := fetch.New(fc)

	p := &pipelines{}

	var (
		newsCache  cache.Cache[[]models.NewsItem] = cache.NewMemory[[]models.NewsItem]()
		postsCache cache.Cache[[]models.Post]     = cache.NewMemory[[]models.Post]()
	)
	if path := ctx.String("cache-file"); path != "" {
		p.store, err = cache.Open(path)
		if err != nil {
			return nil, err
		}
		if newsCache, err = cache.NewBolt[[]models.NewsItem](p.store, "bwf"); err != nil {
			p.Close()
			return nil, err
		}
		if postsCache, err = cache.NewBolt[[]models.Post](p.store, "facebook"); err != nil {
			p.Close()
			return nil, err
		}
	}

	p.news = bwf.New(cfg.BWFConfig(), client, newsCache)

	fbc := cfg.FacebookConfig()
	fbc.Page = ctx.String("fb-page")
	fbc.GraphToken = ctx.String("fb-token")
	fbc.RSSFeedURL = ctx.String("fb-rss-url")
	fbc.DetectLanguage = ctx.Bool("fb-detect-language")
	p.posts = facebook.New(fbc, client, postsCache)

	yc := cfg.YouTubeConfig()
	yc.APIKey = ctx.String("youtube-key")
	yc.Handle = ctx.String("youtube-handle")
	p.videos = youtube.New(yc, client)

	log.WithFields(log.Fields{
		"proxy":      client.HasProxy(),
		"cache_file": ctx.String("cache-file"),
		"fb_page":    fbc.Page,
		"fb_graph":   fbc.GraphToken != "",
		"yt_handle":  yc.Handle,
	}).Info("Pipelines configured")

	return p, nil
}
