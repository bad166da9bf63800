package util

import (
	"fmt"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDay parses YYYY-MM-DD as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// TruncateDay drops the clock part and keeps the calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

func FormatMonth(t time.Time) string {
	return t.Format(MonthLayout)
}

// MonthStart returns the first day of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the first day of the month after t's.
func NextMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// MaxTime returns the later of a and b.
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// ForEachDay calls fn for every calendar day in [start, end), in order.
// Iteration stops at the first error.
func ForEachDay(start, end time.Time, fn func(day time.Time) error) error {
	for day := TruncateDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		if err := fn(day); err != nil {
			return err
		}
	}
	return nil
}

// CountDays returns the number of calendar days in [start, end).
func CountDays(start, end time.Time) int {
	if !start.Before(end) {
		return 0
	}
	return int(TruncateDay(end).Sub(TruncateDay(start)).Hours() / 24)
}
