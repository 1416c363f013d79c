package forecast

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// ParseMonth parses a "YYYY-MM" period label.
func ParseMonth(label string) (year, month int, err error) {
	t, err := time.Parse(monthLayout, label)
	if err != nil {
		return 0, 0, fmt.Errorf("period %q is not YYYY-MM: %w", label, ErrParse)
	}
	return t.Year(), int(t.Month()), nil
}

// MonthLabel returns the label n whole months after year-month (month is 1-indexed).
func MonthLabel(year, month, n int) string {
	offset := month - 1 + n
	y := year + floorDiv(offset, 12)
	m := offset - floorDiv(offset, 12)*12 + 1
	return fmt.Sprintf("%04d-%02d", y, m)
}

// AddMonths shifts a "YYYY-MM" label by n months.
func AddMonths(label string, n int) (string, error) {
	y, m, err := ParseMonth(label)
	if err != nil {
		return "", err
	}
	return MonthLabel(y, m, n), nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
