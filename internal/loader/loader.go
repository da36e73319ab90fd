// Package loader reads series files into domain types, validating their
// headers against a fixed schema.
package loader

import (
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	apperrors "weeklypanel/internal/errors"
	"weeklypanel/pkg/contracts/domain"
)

// Load reads a native-frequency series file. The series is named after the
// file without its extension.
func Load(path string, schema Schema) (*domain.Series, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Read(file, name, schema)
}

// Read parses a native-frequency series. Rows are sorted by date;
// duplicate dates are rejected.
func Read(r io.Reader, name string, schema Schema) (*domain.Series, error) {
	header, records, err := readTable(r, name)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(header, schema.Header(), name); err != nil {
		return nil, err
	}

	series := &domain.Series{
		Name:         name,
		Columns:      append([]string(nil), schema.Columns...),
		Observations: make([]domain.Observation, 0, len(records)),
	}

	for _, rec := range records {
		date, err := parseDate(rec.fields[0])
		if err != nil {
			return nil, apperrors.NewMalformedSeries("%s line %d: %v", name, rec.line, err)
		}

		values := make([]float64, len(schema.Columns))
		for j, column := range schema.Columns {
			v, err := parseValue(rec.fields[j+1], column, rec.line, name)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		series.Observations = append(series.Observations, domain.Observation{Date: date, Values: values})
	}

	sort.SliceStable(series.Observations, func(i, j int) bool {
		return series.Observations[i].Date.Before(series.Observations[j].Date)
	})
	for i := 1; i < len(series.Observations); i++ {
		if series.Observations[i].Date.Equal(series.Observations[i-1].Date) {
			return nil, apperrors.NewMalformedSeries("%s: duplicate date %s",
				name, series.Observations[i].Date.Format("2006-01-02"))
		}
	}

	return series, nil
}

// LoadWeekly reads back a file written by the exporter. Values may be blank.
func LoadWeekly(path, name string, class domain.FrequencyClass) (*domain.WeeklySeries, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadWeekly(file, name, class)
}

// LoadPanel reads back a panel file. Every cell must be present.
func LoadPanel(path string) (*domain.Panel, error) {
	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadPanel(file, filepath.Base(path))
}

// ReadPanel parses a panel from r
func ReadPanel(r io.Reader, source string) (*domain.Panel, error) {
	columns, rows, err := readWeekly(r, source)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		for j, v := range row.Values {
			if math.IsNaN(v) {
				return nil, apperrors.NewMalformedSeries("%s: week %s has no value for %s", source, row.Key, columns[j])
			}
		}
	}
	return &domain.Panel{Columns: columns, Rows: rows}, nil
}

// ReadWeekly parses a weekly file from r
func ReadWeekly(r io.Reader, name string, class domain.FrequencyClass) (*domain.WeeklySeries, error) {
	columns, rows, err := readWeekly(r, name)
	if err != nil {
		return nil, err
	}
	ws := &domain.WeeklySeries{Name: name, Class: class, Columns: columns, Rows: make([]domain.WeeklyRow, len(rows))}
	for i, row := range rows {
		ws.Rows[i] = domain.WeeklyRow{Key: row.Key, At: row.Key.Anchor(), Values: row.Values}
	}
	return ws, nil
}

func readWeekly(r io.Reader, source string) ([]string, []domain.PanelRow, error) {
	header, records, err := readTable(r, source)
	if err != nil {
		return nil, nil, err
	}
	if len(header) < 2 || header[0] != DateColumn {
		return nil, nil, apperrors.NewMalformedSeries("%s: header %v, expected Date followed by value columns", source, header)
	}
	columns := append([]string(nil), header[1:]...)

	rows := make([]domain.PanelRow, 0, len(records))
	for _, rec := range records {
		key, err := domain.ParseWeeklyKey(rec.fields[0])
		if err != nil {
			return nil, nil, apperrors.NewMalformedSeries("%s line %d: %v", source, rec.line, err)
		}
		if n := len(rows); n > 0 && !rows[n-1].Key.Before(key) {
			return nil, nil, apperrors.NewMalformedSeries("%s line %d: week %s out of order", source, rec.line, key)
		}

		values := make([]float64, len(columns))
		for j, column := range columns {
			v, err := parseValue(rec.fields[j+1], column, rec.line, source)
			if err != nil {
				return nil, nil, err
			}
			values[j] = v
		}
		rows = append(rows, domain.PanelRow{Key: key, Values: values})
	}
	return columns, rows, nil
}
