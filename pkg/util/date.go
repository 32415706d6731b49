package util

import (
	"time"
	_ "time/tzdata"
)

// DateLayout is the calendar date format accepted by the API and config.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date in loc. Returns (t, true) on success.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, loc *time.Location, def time.Time) time.Time {
	if t, ok := ParseDate(s, loc); ok {
		return t
	}
	return def
}

// LoadLocation resolves an IANA zone name, falling back to UTC when empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
