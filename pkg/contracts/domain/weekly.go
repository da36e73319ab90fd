package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeeklyKey identifies an ISO-8601 week
type WeeklyKey struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// KeyOf returns the ISO week containing t
func KeyOf(t time.Time) WeeklyKey {
	year, week := t.ISOWeek()
	return WeeklyKey{Year: year, Week: week}
}

// ParseWeeklyKey parses the "YYYY-WW" form produced by String.
func ParseWeeklyKey(s string) (WeeklyKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return WeeklyKey{}, fmt.Errorf("invalid weekly key %q: expected YYYY-WW", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return WeeklyKey{}, fmt.Errorf("invalid weekly key %q: %w", s, err)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil {
		return WeeklyKey{}, fmt.Errorf("invalid weekly key %q: %w", s, err)
	}

	k := WeeklyKey{Year: year, Week: week}
	if week < 1 || week > 53 || KeyOf(k.Anchor()) != k {
		return WeeklyKey{}, fmt.Errorf("invalid weekly key %q: week %d does not exist in %d", s, week, year)
	}
	return k, nil
}

// String renders the key as "YYYY-WW"
func (k WeeklyKey) String() string {
	return fmt.Sprintf("%d-%02d", k.Year, k.Week)
}

// Anchor returns the Monday (UTC midnight) that starts the week. A week is
// attributed to the month of its anchor, and as-of joins compare source
// timestamps against it.
func (k WeeklyKey) Anchor() time.Time {
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	// Jan 4 always falls in week 1
	offset := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, 7*(k.Week-1))
}

// End returns the Sunday closing the week
func (k WeeklyKey) End() time.Time {
	return k.Anchor().AddDate(0, 0, 6)
}

// Compare returns -1, 0 or +1 ordering by (year, week)
func (k WeeklyKey) Compare(other WeeklyKey) int {
	switch {
	case k.Year < other.Year:
		return -1
	case k.Year > other.Year:
		return 1
	case k.Week < other.Week:
		return -1
	case k.Week > other.Week:
		return 1
	}
	return 0
}

// Before reports whether k sorts strictly before other
func (k WeeklyKey) Before(other WeeklyKey) bool {
	return k.Compare(other) < 0
}

// IsZero reports whether the key is unset
func (k WeeklyKey) IsZero() bool {
	return k.Year == 0 && k.Week == 0
}

// MarshalText encodes the key as "YYYY-WW"
func (k WeeklyKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a "YYYY-WW" key
func (k *WeeklyKey) UnmarshalText(text []byte) error {
	parsed, err := ParseWeeklyKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// WeeklyRow is one week of a resampled series. At is the timestamp used by
// as-of joins: the week anchor for resampled rows, the native observation
// date for deferred rows.
type WeeklyRow struct {
	Key    WeeklyKey `json:"key"`
	At     time.Time `json:"at"`
	Values []float64 `json:"values"`
}

// WeeklySeries is a series at weekly grain, rows ascending by key
type WeeklySeries struct {
	Name    string         `json:"name"`
	Class   FrequencyClass `json:"class"`
	Columns []string       `json:"columns"`
	Rows    []WeeklyRow    `json:"rows"`
}

// Len returns the number of rows
func (w *WeeklySeries) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Rows)
}

// ColumnIndex returns the position of a column or -1
func (w *WeeklySeries) ColumnIndex(name string) int {
	return indexOf(w.Columns, name)
}

// Keys returns the row keys in order
func (w *WeeklySeries) Keys() []WeeklyKey {
	keys := make([]WeeklyKey, len(w.Rows))
	for i, row := range w.Rows {
		keys[i] = row.Key
	}
	return keys
}
