// Package resample converts native-frequency series to ISO weekly grain.
//
// Daily classes bucket observations by ISO week. Monthly compounding spreads
// each month's rate over the weeks anchored in that month so that the
// weekly rates compound back to the monthly one. Input series are never
// modified.
package resample

import (
	"math"
	"sort"

	"weeklypanel/internal/calendar"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/pkg/contracts/domain"
)

// Options tunes how values are interpreted
type Options struct {
	// Percent marks rates quoted in percent (2.5 means 2.5%). Monthly
	// compounding then works on r/100 and reports the weekly rate in percent.
	Percent bool
}

// Resample converts s to weekly grain according to class
func Resample(s *domain.Series, class domain.FrequencyClass) (*domain.WeeklySeries, error) {
	return ResampleWithOptions(s, class, Options{})
}

// ResampleWithOptions is Resample with explicit options
func ResampleWithOptions(s *domain.Series, class domain.FrequencyClass, opts Options) (*domain.WeeklySeries, error) {
	observations, err := ordered(s)
	if err != nil {
		return nil, err
	}

	out := &domain.WeeklySeries{
		Name:    s.Name,
		Class:   class,
		Columns: append([]string(nil), s.Columns...),
	}

	switch class {
	case domain.DailyAggregate:
		out.Rows = aggregate(observations, len(s.Columns))
	case domain.DailyLast:
		out.Rows = lastOfWeek(observations)
	case domain.MonthlyCompounding:
		rows, err := compound(s.Name, observations, opts)
		if err != nil {
			return nil, err
		}
		out.Rows = rows
	default:
		return nil, apperrors.NewUnknownJoinMode(string(class))
	}

	return out, nil
}

// Deferred wraps s at its native grain for as-of joins. Each row carries
// the observation date in At and the ISO week of that date in Key; keys may
// repeat when several observations fall in one week.
func Deferred(s *domain.Series, class domain.FrequencyClass) (*domain.WeeklySeries, error) {
	if !class.Valid() {
		return nil, apperrors.NewUnknownJoinMode(string(class))
	}
	observations, err := ordered(s)
	if err != nil {
		return nil, err
	}

	out := &domain.WeeklySeries{
		Name:    s.Name,
		Class:   class,
		Columns: append([]string(nil), s.Columns...),
		Rows:    make([]domain.WeeklyRow, len(observations)),
	}
	for i, obs := range observations {
		out.Rows[i] = domain.WeeklyRow{
			Key:    domain.KeyOf(obs.Date),
			At:     obs.Date,
			Values: append([]float64(nil), obs.Values...),
		}
	}
	return out, nil
}

// ordered validates s and returns its observations sorted by date
func ordered(s *domain.Series) ([]domain.Observation, error) {
	if s.Len() == 0 {
		name := ""
		if s != nil {
			name = s.Name
		}
		return nil, apperrors.NewEmptyInput("series %q has no observations", name)
	}

	observations := make([]domain.Observation, len(s.Observations))
	copy(observations, s.Observations)
	for _, obs := range observations {
		if len(obs.Values) != len(s.Columns) {
			return nil, apperrors.NewMalformedSeries("series %q: observation %s has %d values for %d columns",
				s.Name, obs.Date.Format("2006-01-02"), len(obs.Values), len(s.Columns))
		}
	}

	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})
	for i := 1; i < len(observations); i++ {
		if !observations[i-1].Date.Before(observations[i].Date) {
			return nil, apperrors.NewMalformedSeries("series %q: duplicate date %s",
				s.Name, observations[i].Date.Format("2006-01-02"))
		}
	}
	return observations, nil
}

// aggregate averages each week's observations column by column, skipping NaN
func aggregate(observations []domain.Observation, width int) []domain.WeeklyRow {
	var rows []domain.WeeklyRow
	sums := make([]float64, width)
	counts := make([]int, width)

	flush := func(key domain.WeeklyKey) {
		values := make([]float64, width)
		for j := range values {
			if counts[j] == 0 {
				values[j] = math.NaN()
			} else {
				values[j] = sums[j] / float64(counts[j])
			}
			sums[j], counts[j] = 0, 0
		}
		rows = append(rows, domain.WeeklyRow{Key: key, At: key.Anchor(), Values: values})
	}

	current := domain.KeyOf(observations[0].Date)
	for _, obs := range observations {
		key := domain.KeyOf(obs.Date)
		if key != current {
			flush(current)
			current = key
		}
		for j, v := range obs.Values {
			if math.IsNaN(v) {
				continue
			}
			sums[j] += v
			counts[j]++
		}
	}
	flush(current)

	return rows
}

// lastOfWeek keeps the chronologically last observation of each week
func lastOfWeek(observations []domain.Observation) []domain.WeeklyRow {
	var rows []domain.WeeklyRow
	for i, obs := range observations {
		key := domain.KeyOf(obs.Date)
		if i+1 < len(observations) && domain.KeyOf(observations[i+1].Date) == key {
			continue
		}
		rows = append(rows, domain.WeeklyRow{
			Key:    key,
			At:     key.Anchor(),
			Values: append([]float64(nil), obs.Values...),
		})
	}
	return rows
}

// compound expands each monthly observation over the weeks anchored in its
// month with weekly = (1+r)^(1/n) - 1.
func compound(name string, observations []domain.Observation, opts Options) ([]domain.WeeklyRow, error) {
	var rows []domain.WeeklyRow
	for i, obs := range observations {
		year, month, _ := obs.Date.Date()
		if i > 0 {
			py, pm, _ := observations[i-1].Date.Date()
			if py == year && pm == month {
				return nil, apperrors.NewMalformedSeries("series %q: two observations in %d-%02d", name, year, month)
			}
		}

		weekly := make([]float64, len(obs.Values))
		keys := calendar.MonthWeeks(year, month)
		for j, r := range obs.Values {
			if math.IsNaN(r) {
				weekly[j] = math.NaN()
				continue
			}
			if opts.Percent {
				r /= 100
			}
			if r <= -1 {
				return nil, apperrors.NewMalformedSeries("series %q: rate %v in %d-%02d is at or below -100%%",
					name, obs.Values[j], year, month)
			}
			w := calendar.WeeklyRate(r, len(keys))
			if opts.Percent {
				w *= 100
			}
			weekly[j] = w
		}

		for _, key := range keys {
			rows = append(rows, domain.WeeklyRow{
				Key:    key,
				At:     key.Anchor(),
				Values: append([]float64(nil), weekly...),
			})
		}
	}
	return rows, nil
}
