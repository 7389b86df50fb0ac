package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// timeLayouts are the timestamp formats of the result tables, tried before
// falling back to dateparse.
var timeLayouts = []string{
	"2 Jan 2006, 15:04:05 UTC",
	"2 Jan 2006 | 15:04:05 UTC",
	"2 Jan 2006 15:04:05 UTC",
	"1/2/06 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var yearRegex = regexp.MustCompile(`(?:^|\D)\d{4}(?:\D|$)`)
var componentRegex = regexp.MustCompile(`\d+|[A-Za-z]+`)

// looksLikeDate rejects fragments such as "12:30" or "2024-" that dateparse
// would otherwise turn into a year 0 or a bare year.
func looksLikeDate(s string) bool {
	return yearRegex.MatchString(s) && len(componentRegex.FindAllString(s, -1)) >= 2
}

// ParseTime parses a table timestamp as UTC. Placeholders like "---" or
// "Pending" yield false.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Trim(s, "-") == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, true
		}
	}
	if !looksLikeDate(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.Year() < 1970 {
		return time.Time{}, false
	}
	return t, true
}

// ParseNumber parses a number that may carry thousands separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseSeconds parses a duration given in seconds ("12,345.67").
func ParseSeconds(s string) (time.Duration, bool) {
	f, ok := ParseNumber(s)
	if !ok || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

// ParseHours parses a duration given in hours ("1.25").
func ParseHours(s string) (time.Duration, bool) {
	f, ok := ParseNumber(s)
	if !ok || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Hour)), true
}

// ParseClock parses a duration in clock notation, "[days:]hours:minutes:seconds"
// with any leading component optional.
func ParseClock(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 4 {
		return 0, false
	}
	units := []time.Duration{time.Second, time.Minute, time.Hour, 24 * time.Hour}
	var total time.Duration
	for i := range parts {
		part := parts[len(parts)-1-i]
		f, err := strconv.ParseFloat(part, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		total += time.Duration(f * float64(units[i]))
	}
	return total, true
}

// ParseDuration accepts either clock notation or plain seconds.
func ParseDuration(s string) (time.Duration, bool) {
	if strings.Contains(s, ":") {
		return ParseClock(s)
	}
	return ParseSeconds(s)
}
