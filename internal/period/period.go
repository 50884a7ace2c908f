// Package period computes calendar-period boundaries and the canonical keys
// used to deduplicate report-generation runs. All functions are pure and
// operate in UTC.
package period

import (
	"fmt"
	"time"
)

// Kind identifies a report aggregation window.
type Kind string

const (
	KindDaily     Kind = "daily"
	KindWeekly    Kind = "weekly"
	KindMonthly   Kind = "monthly"
	KindQuarterly Kind = "quarterly"
)

// Preset names a window computed relative to "now".
type Preset string

const (
	PresetLastWeek    Preset = "last-week"
	PresetThisWeek    Preset = "this-week"
	PresetLastMonth   Preset = "last-month"
	PresetThisMonth   Preset = "this-month"
	PresetLastQuarter Preset = "last-quarter"
)

// Range is an inclusive start/end pair of calendar dates (midnight UTC).
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseKind validates a kind string from an API request.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDaily, KindWeekly, KindMonthly, KindQuarterly:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown report kind: %q", s)
}

// ParsePreset validates a preset string from an API request.
func ParsePreset(s string) (Preset, error) {
	switch Preset(s) {
	case PresetLastWeek, PresetThisWeek, PresetLastMonth, PresetThisMonth, PresetLastQuarter:
		return Preset(s), nil
	}
	return "", fmt.Errorf("unknown period preset: %q", s)
}

// KindForPreset maps a preset to the kind of key it produces.
func KindForPreset(p Preset) Kind {
	switch p {
	case PresetLastWeek, PresetThisWeek:
		return KindWeekly
	case PresetLastMonth, PresetThisMonth:
		return KindMonthly
	default:
		return KindQuarterly
	}
}

// ComputePreset resolves a preset to concrete boundaries relative to now.
// Weeks start on Monday regardless of locale; months and quarters follow the
// UTC calendar.
func ComputePreset(p Preset, now time.Time) (Range, error) {
	today := midnightUTC(now)

	switch p {
	case PresetThisWeek:
		start := startOfWeek(today)
		return Range{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PresetLastWeek:
		// The 7-day block ending the Sunday before the most recent Monday.
		start := startOfWeek(today).AddDate(0, 0, -7)
		return Range{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PresetThisMonth:
		return monthRange(today.Year(), today.Month()), nil
	case PresetLastMonth:
		prev := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return monthRange(prev.Year(), prev.Month()), nil
	case PresetLastQuarter:
		qStart := startOfQuarter(today).AddDate(0, -3, 0)
		return Range{Start: qStart, End: qStart.AddDate(0, 3, 0).AddDate(0, 0, -1)}, nil
	}
	return Range{}, fmt.Errorf("unknown period preset: %q", p)
}

// Key returns the canonical dedup key for a period. It is derived from the
// start date alone, so independently recomputed boundaries for the same
// logical period always produce the same key.
func Key(kind Kind, start time.Time) string {
	start = midnightUTC(start)
	switch kind {
	case KindDaily:
		return start.Format("2006-01-02")
	case KindWeekly:
		// ISO-8601: the week containing the year's first Thursday is week 1,
		// so a year-boundary week can belong to the adjacent ISO year.
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case KindMonthly:
		return start.Format("2006-01")
	case KindQuarterly:
		q := (int(start.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", start.Year(), q)
	}
	return ""
}

// ComputeKey is the range-based form of Key; the end date is accepted for
// call-site symmetry but the key depends only on start.
func ComputeKey(kind Kind, start, _ time.Time) string {
	return Key(kind, start)
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the most recent Monday (or the date itself if Monday).
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfQuarter(day time.Time) time.Time {
	firstMonth := time.Month((int(day.Month())-1)/3*3 + 1)
	return time.Date(day.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
}

// monthRange uses day 0 of the following month for the last calendar day;
// time.Date normalizes it to the final day of the requested month.
func monthRange(year int, month time.Month) Range {
	return Range{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC),
	}
}
