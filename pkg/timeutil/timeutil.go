// Package timeutil provides timezone and calendar-week utilities for Kiko.
// All matching cadence decisions (week boundaries, drop days, expiry cutoffs)
// are made in the Berlin reference timezone so that every invocation of the
// weekly jobs agrees on which week "now" belongs to.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// BerlinTZ is the fixed reference timezone for all week computations (UTC+1).
// A fixed zone is used deliberately: the DST drift of Europe/Berlin only
// matters within one hour of Monday midnight, and all scheduled work runs on
// Thursday/Friday daytime.
var BerlinTZ = time.FixedZone("Europe/Berlin", 1*60*60)

// Now returns the current time in the reference timezone.
func Now() time.Time {
	return time.Now().In(BerlinTZ)
}

// ToBerlin converts a time to the reference timezone.
func ToBerlin(t time.Time) time.Time {
	return t.In(BerlinTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in the reference timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, BerlinTZ)
}

// DateTime creates a time in the reference timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, BerlinTZ)
}

// StartOfDay returns the start of the day (00:00:00) in the reference timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToBerlin(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, BerlinTZ)
}

// StartOfWeek returns the start of the ISO week (Monday 00:00:00) in the
// reference timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToBerlin(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the start of the next ISO week (exclusive upper bound).
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 7)
}

// ══════════════════════════════════════════════════════════════════════════════
// ISO WEEK KEYS
// ══════════════════════════════════════════════════════════════════════════════

// weekKeyPattern matches the canonical week key format, e.g. "2026-W07".
var weekKeyPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// ISOWeekKey returns the ISO-8601 week identifier for the given instant,
// computed in the reference timezone. ISO weeks start on Monday; week 1 is
// the week containing the year's first Thursday (time.Time.ISOWeek follows
// this rule). Format: "2026-W07".
func ISOWeekKey(t time.Time) string {
	year, week := ToBerlin(t).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// CurrentWeekKey returns the ISO week key for the current instant.
func CurrentWeekKey() string {
	return ISOWeekKey(time.Now())
}

// IsValidWeekKey reports whether s is a well-formed week key.
func IsValidWeekKey(s string) bool {
	m := weekKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	week, _ := strconv.Atoi(m[2])
	return week >= 1 && week <= 53
}

// ParseWeekKey validates a week key and returns its year and week number.
func ParseWeekKey(s string) (year, week int, err error) {
	m := weekKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("timeutil: malformed week key %q", s)
	}
	year, _ = strconv.Atoi(m[1])
	week, _ = strconv.Atoi(m[2])
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("timeutil: week number out of range in %q", s)
	}
	return year, week, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERIC HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// DaysSince calculates the number of whole days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	return int(now.Sub(then).Hours() / 24)
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	days := int(a2.Sub(a1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// IsSameDay checks if two times fall on the same day in the reference timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToBerlin(t1), ToBerlin(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// FormatBerlin formats a time in the reference timezone with the given layout.
func FormatBerlin(t time.Time, layout string) string {
	return ToBerlin(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return FormatBerlin(t, FormatDate)
}

// ParseBerlin parses a time string in the reference timezone.
func ParseBerlin(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, BerlinTZ)
}
