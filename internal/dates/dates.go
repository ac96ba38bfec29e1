// Package dates implements the calendar-day date rules used by the
// derivation engine and the outbox.
//
// The rules are deliberately strict because getting them wrong silently
// corrupts arrears figures:
//
//   - "YYYY-MM-DD" is parsed as local midnight, never shifted by a
//     timezone offset.
//   - Timestamps carrying an explicit offset or zone ("...Z", "...-05:00")
//     are parsed as given.
//   - Bare T-delimited timestamps without a zone are treated as UTC.
//
// All day arithmetic is calendar-day granular: two instants on the same
// local calendar day are zero days apart regardless of time of day.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

// Layout is the canonical date-only wire format.
const Layout = "2006-01-02"

var dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// bare T-delimited layouts, no zone designator. Treated as UTC.
var bareLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// zoned layouts carry their own offset and are parsed as given.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
}

// Parse parses a date or timestamp string per the package rules.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("parse date: empty string")
	}
	if dateOnlyRe.MatchString(s) {
		t, err := time.ParseInLocation(Layout, s, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return t, nil
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range bareLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized format", s)
}

// Format renders t as "YYYY-MM-DD" in t's own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// civilDays returns the number of whole days between the zero time and
// t's calendar date. Computing through a UTC-anchored date makes the
// subtraction immune to DST transitions in t's location.
func civilDays(t time.Time) int {
	y, m, d := t.Date()
	anchor := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(anchor.Unix() / (24 * 60 * 60))
}

// DiffDays returns the number of calendar days from b to a (a - b).
// Negative when a is before b.
func DiffDays(a, b time.Time) int {
	return civilDays(a) - civilDays(b)
}

// AddDays returns t shifted by n calendar days, preserving time of day.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay reports whether a and b fall on the same calendar day, each
// evaluated in its own location.
func SameDay(a, b time.Time) bool {
	return DiffDays(a, b) == 0
}
