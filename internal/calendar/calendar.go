// Package calendar maps months onto ISO weeks. A week belongs to the month
// that contains its Monday.
package calendar

import (
	"math"
	"time"

	"weeklypanel/pkg/contracts/domain"
)

// MonthWeeks returns the weeks anchored in the given month, ascending
func MonthWeeks(year int, month time.Month) []domain.WeeklyKey {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// days until the first Monday
	offset := (8 - int(first.Weekday())) % 7

	keys := make([]domain.WeeklyKey, 0, 5)
	for d := first.AddDate(0, 0, offset); d.Month() == month; d = d.AddDate(0, 0, 7) {
		keys = append(keys, domain.KeyOf(d))
	}
	return keys
}

// WeeksInMonth returns how many weeks are anchored in the month (4 or 5)
func WeeksInMonth(year int, month time.Month) int {
	return len(MonthWeeks(year, month))
}

// MonthOf returns the month a week is attributed to
func MonthOf(k domain.WeeklyKey) (int, time.Month) {
	anchor := k.Anchor()
	return anchor.Year(), anchor.Month()
}

// WeeklyRate converts a monthly rate into the weekly rate that compounds
// back to it over n weeks.
func WeeklyRate(monthly float64, n int) float64 {
	return math.Pow(1+monthly, 1/float64(n)) - 1
}

// Day truncates t to UTC midnight of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
