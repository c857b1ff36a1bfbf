package trial

import (
	"strings"
	"time"
)

// DefaultStartDate substitutes for missing or unparsable registry dates.
var DefaultStartDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// ParseDate reads a registry date. "YYYY-MM" means the first of that month.
// ok is false when s was empty or malformed and DefaultStartDate was returned.
func ParseDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultStartDate, false
	}
	layout := dayLayout
	if len(s) == len(monthLayout) {
		layout = monthLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return DefaultStartDate, false
	}
	return t, true
}

// DaysBetween counts whole days from a to b, negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Truncate strips the clock from t, keeping its calendar date in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
