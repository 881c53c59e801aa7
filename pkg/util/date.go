package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignFromTo widens the range to whole multiples of the series frequency:
// from is floored and to is ceiled, so nothing inside the range falls out.
func AlignFromTo(from, to time.Time, freq time.Duration) (time.Time, time.Time) {
	if freq <= 0 {
		freq = time.Hour
	}
	from = from.Truncate(freq)
	if t := to.Truncate(freq); t.Before(to) {
		to = t.Add(freq)
	}
	return from, to
}
