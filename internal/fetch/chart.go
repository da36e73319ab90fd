package fetch

import (
	"math"
	"sort"
	"time"

	"weeklypanel/internal/calendar"
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/loader"
	"weeklypanel/pkg/contracts/domain"
)

// chartResponse is the subset of the chart API payload the fetcher reads
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quote `json:"quote"`
	} `json:"indicators"`
}

// quote holds parallel bar arrays; nulls mark missing values
type quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

func value(xs []*float64, i int) float64 {
	if i >= len(xs) || xs[i] == nil {
		return math.NaN()
	}
	return *xs[i]
}

// toSeries converts a chart result to a daily series in the loader's
// layout. Bars without a close are skipped. Bars are dated in exchange
// local time; a repeated date keeps the later bar. Log_Returns is ln(Close/previous Close), NaN on the first bar.
func toSeries(name string, res chartResult) (*domain.Series, error) {
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, apperrors.NewEmptyInput("no data for %s", name)
	}
	q := res.Indicators.Quote[0]
	offset := time.Duration(res.Meta.GMTOffset) * time.Second

	byDate := make(map[time.Time][]float64, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if math.IsNaN(value(q.Close, i)) {
			continue
		}
		date := calendar.Day(time.Unix(ts, 0).UTC().Add(offset))
		// Close, High, Low, Open, Volume; Log_Returns filled below
		byDate[date] = []float64{value(q.Close, i), value(q.High, i), value(q.Low, i), value(q.Open, i), value(q.Volume, i), math.NaN()}
	}

	if len(byDate) == 0 {
		return nil, apperrors.NewEmptyInput("no priced bars for %s", name)
	}

	s := &domain.Series{
		Name:         name,
		Columns:      append([]string(nil), loader.DailySchema.Columns...),
		Observations: make([]domain.Observation, 0, len(byDate)),
	}
	for date, values := range byDate {
		s.Observations = append(s.Observations, domain.Observation{Date: date, Values: values})
	}
	sort.Slice(s.Observations, func(i, j int) bool {
		return s.Observations[i].Date.Before(s.Observations[j].Date)
	})

	closeIdx := s.ColumnIndex("Close")
	retIdx := s.ColumnIndex("Log_Returns")
	for i := 1; i < len(s.Observations); i++ {
		prev, cur := s.Observations[i-1].Values[closeIdx], s.Observations[i].Values[closeIdx]
		s.Observations[i].Values[retIdx] = math.Log(cur / prev)
	}
	return s, nil
}
