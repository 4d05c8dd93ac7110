package extract_test

import (
	"clubfeed/extract"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeHTML(t *testing.T) {
	assert.Equal(t, `Tom & Jerry <b> "quoted" it's`, extract.DecodeHTML("Tom &amp; Jerry &lt;b&gt; &quot;quoted&quot; it&#39;s"))
	// numeric entities are not handled
	assert.Equal(t, "&#8217;", extract.DecodeHTML("&#8217;"))
	// single pass only
	assert.Equal(t, "&lt;", extract.DecodeHTML("&amp;lt;"))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		max      int
		expected string
	}{
		{name: "strips tags", in: "<p>Hello <b>world</b></p>", expected: "Hello world"},
		{name: "decodes then strips", in: "&lt;script&gt;x&lt;/script&gt; text", expected: "x text"},
		{name: "collapses whitespace", in: "a \n\t  b", expected: "a b"},
		{name: "caps length", in: "abcdefghij", max: 5, expected: "abcd…"},
		{name: "cyrillic is cut on runes", in: "Турнир Altius", max: 4, expected: "Тур…"},
		{name: "short input untouched", in: "abc", max: 5, expected: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract.PlainText(tt.in, tt.max))
		})
	}
}

func TestExtractFirstImageFromContent(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "img tag wins",
			html:     `<meta property="og:image" content="https://x.test/og.jpg"><img class="a" src="https://x.test/a.png">`,
			expected: "https://x.test/a.png",
		},
		{
			name:     "og image",
			html:     `<meta property="og:image" content="https://x.test/og.jpg?a=1&amp;b=2">`,
			expected: "https://x.test/og.jpg?a=1&b=2",
		},
		{
			name:     "og image with content first",
			html:     `<meta content="https://x.test/og2.jpg" property="og:image">`,
			expected: "https://x.test/og2.jpg",
		},
		{
			name:     "bare url literal",
			html:     `see https://cdn.x.test/photo.webp for details`,
			expected: "https://cdn.x.test/photo.webp",
		},
		{
			name:     "nothing",
			html:     `<p>no pictures here</p>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract.ExtractFirstImageFromContent(tt.html))
		})
	}
}

func TestToAbs(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		src      string
		expected string
	}{
		{name: "relative path", base: "https://bwfbadminton.com/news/", src: "/img/a.jpg", expected: "https://bwfbadminton.com/img/a.jpg"},
		{name: "protocol relative", base: "https://bwfbadminton.com/", src: "//cdn.test/a.jpg", expected: "https://cdn.test/a.jpg"},
		{name: "already absolute", base: "https://bwfbadminton.com/", src: "https://other.test/a.jpg", expected: "https://other.test/a.jpg"},
		{name: "empty src", base: "https://bwfbadminton.com/", src: "", expected: ""},
		{name: "malformed src", base: "https://bwfbadminton.com/", src: "http://[::1", expected: ""},
		{name: "data uri", base: "https://bwfbadminton.com/", src: "data:image/png;base64,AAAA", expected: ""},
		{name: "no base and relative", base: "", src: "/a.jpg", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract.ToAbs(tt.base, tt.src))
		})
	}
}

func TestNormalizeImg(t *testing.T) {
	inputs := map[string]string{
		"https://x.test/wp/photo-613x290.jpg":       "https://x.test/wp/photo.jpg",
		"https://x.test/wp/photo-613x290.JPG?ver=2": "https://x.test/wp/photo.JPG?ver=2",
		"https://x.test/wp/photo-10x10-300x200.png": "https://x.test/wp/photo.png",
		"https://x.test/wp/photo.jpg":               "https://x.test/wp/photo.jpg",
		"https://x.test/wp/photo-1x2x3-4x5.webp":    "https://x.test/wp/photo-1x2x3.webp",
		"https://x.test/wp/photo-2024-final.jpeg":   "https://x.test/wp/photo-2024-final.jpeg",
		"https://x.test/wp/a-123456x1-2x3.gif":      "https://x.test/wp/a.gif",
		"":                                          "",
	}

	for in, expected := range inputs {
		once := extract.NormalizeImg(in)
		assert.Equal(t, expected, once, in)
		assert.Equal(t, once, extract.NormalizeImg(once), "normalization must be idempotent for %q", in)
	}
}

func TestIsBadImage(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://x.test/icon.svg", true},
		{"https://x.test/icon.SVG?v=1", true},
		{"https://x.test/logo/bwf.png", true},
		{"https://x.test/assets/logo-white.png", true},
		{"https://x.test/assets/catalogo.png", false},
		{"https://x.test/static/favicon.ico", true},
		{extract.KnownBadImages[0], true},
		{"https://x.test/news/player.jpg", false},
		{"", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, extract.IsBadImage(tt.url), tt.url)
	}
}

func TestSelectBestImage(t *testing.T) {
	t.Run("never returns the svg", func(t *testing.T) {
		best := extract.SelectBestImage("https://bwfbadminton.com/news/a/", "/images/flag.svg", "/uploads/match-640x360.jpg")
		assert.Equal(t, "https://bwfbadminton.com/uploads/match.jpg", best)
	})

	t.Run("skips unresolvable and logos", func(t *testing.T) {
		best := extract.SelectBestImage("https://bwfbadminton.com/", "", "http://[::1", "/logo/main.png", "https://cdn.test/p.jpg")
		assert.Equal(t, "https://cdn.test/p.jpg", best)
	})

	t.Run("nothing acceptable", func(t *testing.T) {
		assert.Equal(t, "", extract.SelectBestImage("https://bwfbadminton.com/", "/a.svg", "/favicon.png"))
	})

	t.Run("custom blocklist", func(t *testing.T) {
		policy := &extract.ImagePolicy{Blocked: []string{"https://cdn.test/default.jpg"}}
		assert.Equal(t, "https://cdn.test/real.jpg", policy.SelectBest("", "https://cdn.test/default-300x200.jpg", "https://cdn.test/real.jpg"))
	})
}
