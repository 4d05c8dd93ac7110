// Package extract turns raw HTML and RSS from arbitrary sources into plain
// values: decoded text, absolute image URLs and parsed dates.
//
// Nothing in here returns an error for malformed input. Missing or broken
// values come back as the empty string and callers carry on.
package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)

	tagRegex     = regexp.MustCompile(`<[^>]*>`)
	imgRegex     = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
	ogImageRegex = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:image["'][^>]*content=["']([^"']+)["']`)
	ogImageAlt   = regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']+)["'][^>]*property=["']og:image["']`)
	imageURL     = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+?\.(?:jpe?g|png|webp|gif)(?:\?[^\s"'<>()]*)?`)
	sizeSuffix   = regexp.MustCompile(`(?i)(?:-\d+x\d+)+(\.(?:jpe?g|png|webp|gif))`)
)

// DecodeHTML reverses the five standard named entities. Numeric entities are
// left alone.
func DecodeHTML(s string) string {
	return entityReplacer.Replace(s)
}

// StripTags removes every <...> run.
func StripTags(s string) string {
	return tagRegex.ReplaceAllString(s, "")
}

// PlainText decodes, strips tags, collapses whitespace and caps the result at
// max runes (0 means no cap).
func PlainText(s string, max int) string {
	text := strings.Join(strings.Fields(StripTags(DecodeHTML(s))), " ")
	return Truncate(text, max)
}

// Truncate cuts s to at most max runes, ending in an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}

// ExtractFirstImageFromContent looks for an image in an HTML fragment: first
// <img src>, then og:image, then any URL literal ending in an image extension.
func ExtractFirstImageFromContent(html string) string {
	for _, re := range []*regexp.Regexp{imgRegex, ogImageRegex, ogImageAlt} {
		if m := re.FindStringSubmatch(html); len(m) > 1 {
			return DecodeHTML(m[1])
		}
	}
	if m := imageURL.FindString(html); m != "" {
		return DecodeHTML(m)
	}
	return ""
}

// ToAbs resolves src against base. Unparseable or non-http results give "".
func ToAbs(base, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}

	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return ""
		}
		ref = b.ResolveReference(ref)
	}

	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	if ref.Host == "" {
		return ""
	}
	return ref.String()
}

// NormalizeImg strips CMS thumbnail suffixes so size variants of one picture
// collapse: photo-613x290.jpg becomes photo.jpg.
func NormalizeImg(u string) string {
	return sizeSuffix.ReplaceAllString(u, "$1")
}
