package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"clubfeed/bwf"
	"clubfeed/facebook"
	"clubfeed/fetch"
	"clubfeed/youtube"

	"github.com/BurntSushi/toml"
)

// TomlBWF tunes the BWF news scraper
type TomlBWF struct {
	Domain        string        `toml:"domain"`
	ListingURLs   []string      `toml:"listing_urls"`
	GoogleNewsURL string        `toml:"google_news_url"`
	RSSWindow     string        `toml:"rss_window"`
	MaxTargets    int           `toml:"max_targets"`
	MaxRSSTargets int           `toml:"max_rss_targets"`
	MaxItems      int           `toml:"max_items"`
	Concurrency   int           `toml:"concurrency"`
	PreviewLength int           `toml:"preview_length"`
	TTL           time.Duration `toml:"ttl"`
	EmptyTTL      time.Duration `toml:"empty_ttl"`
	BadImages     []string      `toml:"bad_images"` // Added to the built-in blocklist
}

// TomlFacebook tunes the Facebook aggregator
type TomlFacebook struct {
	GraphBase     string        `toml:"graph_base"`
	MobileBase    string        `toml:"mobile_base"`
	MaxPages      int           `toml:"max_pages"`
	TTL           time.Duration `toml:"ttl"`
	EmptyTTL      time.Duration `toml:"empty_ttl"`
	CacheCap      int           `toml:"cache_cap"`
	EventKeywords []string      `toml:"event_keywords"` // Replaces the built-in list when set
}

type TomlYouTube struct {
	BaseURL    string `toml:"base_url"`
	MaxResults int    `toml:"max_results"`
}

type TomlFetch struct {
	Timeout     time.Duration `toml:"timeout"`
	MaxRetries  int           `toml:"max_retries"`
	RenderHosts []string      `toml:"render_hosts"`
	UserAgent   string        `toml:"user_agent"`
}

// TomlConfig represents the top-level sources configuration
type TomlConfig struct {
	BWF      TomlBWF      `toml:"bwf"`
	Facebook TomlFacebook `toml:"facebook"`
	YouTube  TomlYouTube  `toml:"youtube"`
	Fetch    TomlFetch    `toml:"fetch"`
}

// Default mirrors the built-in configuration of every package.
func Default() *TomlConfig {
	b := bwf.DefaultConfig()
	f := facebook.DefaultConfig()
	y := youtube.DefaultConfig()
	c := fetch.DefaultConfig()

	return &TomlConfig{
		BWF: TomlBWF{
			Domain:        b.Domain,
			ListingURLs:   b.ListingURLs,
			GoogleNewsURL: b.GoogleNewsURL,
			RSSWindow:     b.RSSWindow,
			MaxTargets:    b.MaxTargets,
			MaxRSSTargets: b.MaxRSSTargets,
			MaxItems:      b.MaxItems,
			Concurrency:   b.Concurrency,
			PreviewLength: b.PreviewLength,
			TTL:           b.TTL,
			EmptyTTL:      b.EmptyTTL,
		},
		Facebook: TomlFacebook{
			GraphBase:     f.GraphBase,
			MobileBase:    f.MobileBase,
			MaxPages:      f.MaxPages,
			TTL:           f.TTL,
			EmptyTTL:      f.EmptyTTL,
			CacheCap:      f.CacheCap,
			EventKeywords: slices.Clone(f.EventKeywords),
		},
		YouTube: TomlYouTube{
			BaseURL:    y.BaseURL,
			MaxResults: y.MaxResults,
		},
		Fetch: TomlFetch{
			Timeout:     c.Timeout,
			MaxRetries:  c.MaxRetries,
			RenderHosts: c.RenderHosts,
			UserAgent:   c.UserAgent,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path or a missing file
// gives the defaults.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *TomlConfig) Validate() error {
	switch {
	case c.BWF.Domain == "":
		return errors.New("bwf.domain must be set")
	case c.BWF.Concurrency < 1:
		return errors.New("bwf.concurrency must be at least 1")
	case c.BWF.MaxItems < 1 || c.BWF.MaxTargets < 1:
		return errors.New("bwf caps must be at least 1")
	case c.Facebook.CacheCap < 1:
		return errors.New("facebook.cache_cap must be at least 1")
	case c.Fetch.Timeout <= 0:
		return errors.New("fetch.timeout must be positive")
	}
	return nil
}

func (c *TomlConfig) BWFConfig() bwf.Config {
	return bwf.Config{
		Domain:        c.BWF.Domain,
		ListingURLs:   c.BWF.ListingURLs,
		GoogleNewsURL: c.BWF.GoogleNewsURL,
		RSSWindow:     c.BWF.RSSWindow,
		MaxTargets:    c.BWF.MaxTargets,
		MaxRSSTargets: c.BWF.MaxRSSTargets,
		MaxItems:      c.BWF.MaxItems,
		Concurrency:   c.BWF.Concurrency,
		PreviewLength: c.BWF.PreviewLength,
		TTL:           c.BWF.TTL,
		EmptyTTL:      c.BWF.EmptyTTL,
		BadImages:     c.BWF.BadImages,
	}
}

// FacebookConfig fills the tuning part; page and secrets come from flags.
func (c *TomlConfig) FacebookConfig() facebook.Config {
	return facebook.Config{
		GraphBase:     c.Facebook.GraphBase,
		MobileBase:    c.Facebook.MobileBase,
		MaxPages:      c.Facebook.MaxPages,
		TTL:           c.Facebook.TTL,
		EmptyTTL:      c.Facebook.EmptyTTL,
		CacheCap:      c.Facebook.CacheCap,
		EventKeywords: c.Facebook.EventKeywords,
	}
}

func (c *TomlConfig) YouTubeConfig() youtube.Config {
	return youtube.Config{
		BaseURL:    c.YouTube.BaseURL,
		MaxResults: c.YouTube.MaxResults,
	}
}

func (c *TomlConfig) FetchConfig() fetch.Config {
	fc := fetch.DefaultConfig()
	fc.Timeout = c.Fetch.Timeout
	fc.MaxRetries = c.Fetch.MaxRetries
	fc.RenderHosts = c.Fetch.RenderHosts
	if c.Fetch.UserAgent != "" {
		fc.UserAgent = c.Fetch.UserAgent
	}
	return fc
}
