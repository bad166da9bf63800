package util

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2025-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected day %v", got)
	}
}

func TestParseDayInvalid(t *testing.T) {
	if _, err := ParseDay("03/01/2025"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestForEachDayHalfOpen(t *testing.T) {
	start := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)

	var got []string
	err := ForEachDay(start, end, func(day time.Time) error {
		got = append(got, FormatDay(day))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2025-01-30", "2025-01-31", "2025-02-01"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if n := CountDays(start, end); n != 3 {
		t.Fatalf("expected 3 days, got %d", n)
	}
}

func TestForEachDayEmptyRange(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	_ = ForEachDay(day, day, func(time.Time) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("expected no calls, got %d", calls)
	}
	if n := CountDays(day.AddDate(0, 0, 1), day); n != 0 {
		t.Fatalf("expected 0 days, got %d", n)
	}
}

func TestMonthBoundaries(t *testing.T) {
	day := time.Date(2024, 12, 17, 13, 0, 0, 0, time.UTC)
	if got := FormatMonth(MonthStart(day)); got != "2024-12" {
		t.Fatalf("unexpected month start %s", got)
	}
	if got := FormatDay(NextMonth(day)); got != "2025-01-01" {
		t.Fatalf("unexpected next month %s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" spy, ,qqq ,", true)
	if len(got) != 2 || got[0] != "SPY" || got[1] != "QQQ" {
		t.Fatalf("unexpected list %v", got)
	}
}
