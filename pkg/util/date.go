package util

import "time"

const MonthLayout = "2006-01"

// MonthLabel formats t as "YYYY-MM" in UTC.
func MonthLabel(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// MonthLabelUnix formats unix seconds as "YYYY-MM" in UTC.
func MonthLabelUnix(ts int64) string {
	return MonthLabel(time.Unix(ts, 0))
}

// YearsBefore returns the instant n calendar years before t.
func YearsBefore(t time.Time, n int) time.Time {
	return t.AddDate(-n, 0, 0)
}

// DateRange renders "first to last" for two month labels; empty when either is missing.
func DateRange(first, last string) string {
	if first == "" || last == "" {
		return ""
	}
	return first + " to " + last
}
