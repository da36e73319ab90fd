package domain

import (
	"time"
)

// FrequencyClass tells the resampler how a native series becomes weekly
type FrequencyClass string

const (
	// DailyAggregate averages every observation of the week
	DailyAggregate FrequencyClass = "daily_aggregate"
	// DailyLast keeps the last observation of the week
	DailyLast FrequencyClass = "daily_last"
	// MonthlyCompounding spreads a monthly rate geometrically over the month's weeks
	MonthlyCompounding FrequencyClass = "monthly_compounding"
)

// Valid reports whether c is a known frequency class
func (c FrequencyClass) Valid() bool {
	switch c {
	case DailyAggregate, DailyLast, MonthlyCompounding:
		return true
	}
	return false
}

// IsDaily reports whether c is one of the daily classes
func (c FrequencyClass) IsDaily() bool {
	return c == DailyAggregate || c == DailyLast
}

// Observation is one dated row of a native series. Values line up with the
// owning series' Columns.
type Observation struct {
	Date   time.Time `json:"date"`
	Values []float64 `json:"values"`
}

// Series is a named native-frequency series as loaded from disk
type Series struct {
	Name         string        `json:"name" validate:"required"`
	Columns      []string      `json:"columns" validate:"required,min=1"`
	Observations []Observation `json:"observations"`
}

// Len returns the number of observations
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// ColumnIndex returns the position of a column or -1
func (s *Series) ColumnIndex(name string) int {
	return indexOf(s.Columns, name)
}

// First returns the earliest observation date
func (s *Series) First() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Observations[0].Date
}

// Last returns the latest observation date
func (s *Series) Last() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Observations[len(s.Observations)-1].Date
}

func indexOf(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
