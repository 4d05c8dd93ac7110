package facebook

import "strings"

// DefaultEventKeywords are stems of tournament vocabulary in Russian,
// Ukrainian and English. Matching is by substring on lowercased text.
var DefaultEventKeywords = []string{
	// ru
	"турнир", "чемпионат", "кубок", "лига", "матч", "соревнован",
	"расписание", "регистрац", "первенство", "финал",
	// uk
	"турнір", "чемпіонат", "ліга", "змаган", "розклад", "реєстрац",
	// en
	"tournament", "championship", "cup", "league", "match", "schedule",
	"registration", "competition",
}

type EventMatcher struct {
	keywords []string
}

func NewEventMatcher(keywords []string) *EventMatcher {
	if len(keywords) == 0 {
		keywords = DefaultEventKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &EventMatcher{keywords: lowered}
}

// Match reports whether text looks like it announces a competition.
func (m *EventMatcher) Match(text string) bool {
	text = strings.ToLower(text)
	for _, k := range m.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

var defaultMatcher = NewEventMatcher(DefaultEventKeywords)

// IsEventLike matches text against the default keywords.
func IsEventLike(text string) bool {
	return defaultMatcher.Match(text)
}
