// Package dates turns natural-language occasion dates into concrete calendar
// dates. One parser serves every call site so birthday resolution cannot
// drift between the router, the executor, and the CLI.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// "April 16", "April 16th, 2025", "16 April" and "04/16[/2025]" forms.
// Numeric dates read month first, US style, matching the chat phrasing
// the extractor passes through.
var (
	monthFirstRx = regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?\b`)
	dayFirstRx   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)(?:\s*,?\s*(\d{4}))?\b`)
	numericRx    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}))?\b`)
)

// Resolve parses raw into a UTC date. ISO-8601 is tried first, then
// month-name extraction. When no year is supplied the result is the next
// future occurrence relative to now: a month/day already past this year rolls
// to next year, and a day invalid for the computed year (Feb 29) is retried
// one year later before giving up.
func Resolve(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}

	month, day, year, ok := extract(raw)
	if !ok {
		return time.Time{}, false
	}

	if year != 0 {
		if !validDay(year, month, day) {
			return time.Time{}, false
		}
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
	}

	return nextOccurrence(month, day, now)
}

// NextOccurrence applies the recurring-date rule directly to a month/day pair.
func NextOccurrence(month time.Month, day int, now time.Time) (time.Time, bool) {
	return nextOccurrence(month, day, now)
}

func nextOccurrence(month time.Month, day int, now time.Time) (time.Time, bool) {
	year := now.Year()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if !validDay(year, month, day) || candidate.Before(today) {
		year++
		if !validDay(year, month, day) {
			return time.Time{}, false
		}
		candidate = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	return candidate, true
}

func extract(raw string) (time.Month, int, int, bool) {
	if m := monthFirstRx.FindStringSubmatch(raw); m != nil {
		if month, ok := months[strings.ToLower(m[1])]; ok {
			day, _ := strconv.Atoi(m[2])
			year := 0
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			if day >= 1 && day <= 31 {
				return month, day, year, true
			}
		}
	}
	if m := dayFirstRx.FindStringSubmatch(raw); m != nil {
		if month, ok := months[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year := 0
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			if day >= 1 && day <= 31 {
				return month, day, year, true
			}
		}
	}
	if m := numericRx.FindStringSubmatch(raw); m != nil {
		mon, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if mon >= 1 && mon <= 12 && day >= 1 && day <= 31 {
			return time.Month(mon), day, year, true
		}
	}
	return 0, 0, 0, false
}

func validDay(year int, month time.Month, day int) bool {
	if day < 1 {
		return false
	}
	// Normalization rolls an invalid day into the next month.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Month() == month && t.Day() == day
}
