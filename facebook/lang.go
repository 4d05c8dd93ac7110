package facebook

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Detector tags post text with an ISO 639-1 code. Only the languages the
// page actually posts in are loaded.
type Detector struct {
	detector lingua.LanguageDetector
}

func NewDetector() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Russian, lingua.Ukrainian).
			WithMinimumRelativeDistance(0.1).
			Build(),
	}
}

// Detect returns "" when the text is too short or ambiguous.
func (d *Detector) Detect(text string) string {
	if len(strings.Fields(text)) < 3 {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
