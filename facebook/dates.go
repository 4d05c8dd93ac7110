package facebook

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"clubfeed/extract"
)

var (
	relativeAgo = regexp.MustCompile(`^(\d+)\s*(\p{L}+)`)
	clockTime   = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)?`)
	atSplit     = regexp.MustCompile(`\s(?:at|в|о)\s`)

	justNow   = []string{"just now", "только что", "щойно"}
	yesterday = []string{"yesterday", "вчера", "вчора"}

	monthNames = strings.NewReplacer(
		"января", "january", "февраля", "february", "марта", "march",
		"апреля", "april", "мая", "may", "июня", "june", "июля", "july",
		"августа", "august", "сентября", "september", "октября", "october",
		"ноября", "november", "декабря", "december",
		"січня", "january", "лютого", "february", "березня", "march",
		"квітня", "april", "травня", "may", "червня", "june", "липня", "july",
		"серпня", "august", "вересня", "september", "жовтня", "october",
		"листопада", "november", "грудня", "december",
	)

	dayLayouts = []struct {
		layout  string
		hasYear bool
	}{
		{"January 2, 2006", true},
		{"January 2 2006", true},
		{"2 January 2006", true},
		{"January 2", false},
		{"2 January", false},
		{"Jan 2", false},
		{"2 Jan", false},
	}

	units = map[time.Duration][]string{
		time.Second:        {"s", "sec", "secs", "second", "seconds", "сек", "секунд", "секунды", "секунду"},
		time.Minute:        {"m", "min", "mins", "minute", "minutes", "мин", "минут", "минуты", "минуту", "хв", "хвилин", "хвилини", "хвилину"},
		time.Hour:          {"h", "hr", "hrs", "hour", "hours", "ч", "час", "часа", "часов", "год", "годин", "години", "годину"},
		24 * time.Hour:     {"d", "day", "days", "д", "дн", "дня", "дней", "день", "днів", "дні"},
		7 * 24 * time.Hour: {"w", "wk", "wks", "week", "weeks", "нед", "недели", "неделю", "недель", "тиж", "тижнів", "тижні", "тиждень"},
	}
)

// parseLooseDate reads the timestamps the mobile site prints ("3 hrs",
// "Yesterday at 17:05", "5 января в 12:00") relative to now. Anything it
// cannot read gives "".
func parseLooseDate(s string, now time.Time) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, ok := extract.ParseTime(s); ok {
		return extract.FormatDate(t)
	}

	lower := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, w := range justNow {
		if strings.Contains(lower, w) {
			return extract.FormatDate(now)
		}
	}

	if m := relativeAgo.FindStringSubmatch(lower); m != nil {
		if d, ok := unitDuration(m[2]); ok {
			n, _ := strconv.Atoi(m[1])
			return extract.FormatDate(now.Add(-time.Duration(n) * d))
		}
	}

	hour, minute := clockOf(lower)
	for _, w := range yesterday {
		if strings.HasPrefix(lower, w) {
			y := now.AddDate(0, 0, -1)
			return extract.FormatDate(time.Date(y.Year(), y.Month(), y.Day(), hour, minute, 0, 0, now.Location()))
		}
	}

	day := strings.TrimSpace(atSplit.Split(monthNames.Replace(lower), 2)[0])
	for _, l := range dayLayouts {
		t, err := time.Parse(l.layout, day)
		if err != nil {
			continue
		}
		year := t.Year()
		if !l.hasYear {
			year = now.Year()
		}
		t = time.Date(year, t.Month(), t.Day(), hour, minute, 0, 0, now.Location())
		if !l.hasYear && t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return extract.FormatDate(t)
	}

	return ""
}

func unitDuration(unit string) (time.Duration, bool) {
	for d, words := range units {
		for _, w := range words {
			if unit == w {
				return d, true
			}
		}
	}
	return 0, false
}

func clockOf(s string) (int, int) {
	m := clockTime.FindStringSubmatch(s)
	if m == nil {
		return 0, 0
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch {
	case m[3] == "pm" && hour < 12:
		hour += 12
	case m[3] == "am" && hour == 12:
		hour = 0
	}
	return hour, minute
}
