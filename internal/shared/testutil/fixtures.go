package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// WriteFile writes content to dir/name and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// BusinessDays returns n weekdays starting at start
func BusinessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := start; len(days) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

// DailyCSV renders a daily price file, one bar per date, with log returns
// of Close. The first Log_Returns cell is empty.
func DailyCSV(dates []time.Time, closes []float64) string {
	var b strings.Builder
	b.WriteString("Date,Close,High,Low,Open,Volume,Log_Returns\n")
	for i, d := range dates {
		c := closes[i]
		ret := ""
		if i > 0 {
			ret = num(math.Log(c / closes[i-1]))
		}
		b.WriteString(strings.Join([]string{
			d.Format("2006-01-02"), num(c), num(c * 1.01), num(c * 0.99), num(c), "1000", ret,
		}, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// RateCSV renders a Date,Rate file
func RateCSV(dates []time.Time, rates []float64) string {
	var b strings.Builder
	b.WriteString("Date,Rate\n")
	for i, d := range dates {
		b.WriteString(d.Format("2006-01-02") + "," + num(rates[i]) + "\n")
	}
	return b.String()
}

// MonthStarts returns the first day of n consecutive months
func MonthStarts(year int, month time.Month, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(year, month+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
