package extract

import (
	"net/url"
	"strings"
)

// KnownBadImages are site-chrome images that show up as og:image on pages
// without a real picture. Extend through the sources config.
var KnownBadImages = []string{
	"https://bwfbadminton.com/wp-content/themes/bwf/assets/images/bwf-og-default.png",
}

// ImagePolicy decides which candidate images are acceptable for an article.
type ImagePolicy struct {
	Blocked []string
}

var DefaultImagePolicy = &ImagePolicy{Blocked: KnownBadImages}

// IsBadImage reports whether u is site chrome rather than article content.
func IsBadImage(u string) bool {
	return DefaultImagePolicy.IsBad(u)
}

// SelectBestImage returns the first candidate that resolves, normalizes and
// passes the default policy.
func SelectBestImage(base string, candidates ...string) string {
	return DefaultImagePolicy.SelectBest(base, candidates...)
}

func (p *ImagePolicy) IsBad(u string) bool {
	if u == "" {
		return true
	}

	path := strings.ToLower(u)
	if parsed, err := url.Parse(u); err == nil {
		path = strings.ToLower(parsed.Path)
	}

	if strings.HasSuffix(path, ".svg") {
		return true
	}
	if strings.Contains(path, "/logo") || strings.Contains(path, "/favicon") {
		return true
	}

	normalized := NormalizeImg(u)
	for _, blocked := range p.Blocked {
		if strings.EqualFold(normalized, NormalizeImg(blocked)) {
			return true
		}
	}
	return false
}

func (p *ImagePolicy) SelectBest(base string, candidates ...string) string {
	for _, candidate := range candidates {
		abs := ToAbs(base, DecodeHTML(candidate))
		if abs == "" {
			continue
		}
		img := NormalizeImg(abs)
		if p.IsBad(img) {
			continue
		}
		return img
	}
	return ""
}
