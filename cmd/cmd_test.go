package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"clubfeed/cache"
	"clubfeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEnv(t *testing.T) {
	existing := map[string]string{
		"YOUTUBE_API_KEY": "old",
		"FB_PAGE_ID":      "club",
		"UNRELATED":       "kept",
	}
	answers := map[string]string{
		"YOUTUBE_API_KEY": "new",
		"FB_PAGE_ID":      "",
		"YOUTUBE_HANDLE":  "@club",
	}

	merged := mergeEnv(existing, answers)
	assert.Equal(t, map[string]string{
		"YOUTUBE_API_KEY": "new",
		"FB_PAGE_ID":      "club",
		"UNRELATED":       "kept",
		"YOUTUBE_HANDLE":  "@club",
	}, merged)
	assert.Equal(t, "old", existing["YOUTUBE_API_KEY"], "existing map is not modified")
}

func TestTidyCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := cache.Open(path)
	require.NoError(t, err)
	posts, err := cache.NewBolt[[]models.Post](store, "facebook")
	require.NoError(t, err)
	posts.Set("stale", []models.Post{{Id: "1"}}, -time.Minute)
	posts.Set("fresh", []models.Post{{Id: "2"}}, time.Hour)
	require.NoError(t, store.Close())

	err = RootApp().Run([]string{"clubfeed", "tidy", "--cache-file", path})
	require.NoError(t, err)

	store, err = cache.Open(path)
	require.NoError(t, err)
	defer store.Close()
	posts, err = cache.NewBolt[[]models.Post](store, "facebook")
	require.NoError(t, err)

	_, ok := posts.Get("stale")
	assert.False(t, ok)
	got, ok := posts.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, "2", got[0].Id)
}

func TestFetchCommandRejectsUnknownPipeline(t *testing.T) {
	err := RootApp().Run([]string{"clubfeed", "fetch", "twitter"})
	assert.ErrorContains(t, err, `unknown pipeline "twitter"`)
}

func TestFetchCommandNeedsPipeline(t *testing.T) {
	err := RootApp().Run([]string{"clubfeed", "fetch"})
	assert.ErrorContains(t, err, "missing pipeline")
}

func TestInvalidLogLevel(t *testing.T) {
	err := RootApp().Run([]string{"clubfeed", "--log-level", "loud", "tidy"})
	assert.Error(t, err)
}
