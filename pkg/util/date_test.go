package util

import (
	"reflect"
	"testing"
	"time"
)

func TestMonthLabelUnix(t *testing.T) {
	ts := time.Date(2024, 11, 1, 4, 0, 0, 0, time.UTC).Unix()
	if got := MonthLabelUnix(ts); got != "2024-11" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestMonthLabelUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	// 2024-03-01 02:00 at +7 is still February in UTC.
	got := MonthLabel(time.Date(2024, 3, 1, 2, 0, 0, 0, loc))
	if got != "2024-02" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestYearsBefore(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := YearsBefore(now, 10); got.Year() != 2015 || got.Month() != time.June {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestDateRange(t *testing.T) {
	if got := DateRange("2015-07", "2025-06"); got != "2015-07 to 2025-06" {
		t.Fatalf("unexpected range %q", got)
	}
	if got := DateRange("", "2025-06"); got != "" {
		t.Fatalf("expected empty range, got %q", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" AAPL, msft ,,SPY ")
	want := []string{"AAPL", "msft", "SPY"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected split %v", got)
	}
	if len(SplitCSV("")) != 0 {
		t.Fatalf("expected no items")
	}
}

func TestParseIntDefault(t *testing.T) {
	if ParseIntDefault("12", 6) != 12 || ParseIntDefault("x", 6) != 6 || ParseIntDefault("", 6) != 6 {
		t.Fatalf("unexpected parse result")
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker("  nvda "); got != "NVDA" {
		t.Fatalf("unexpected ticker %q", got)
	}
}
