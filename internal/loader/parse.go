package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"weeklypanel/internal/calendar"
	apperrors "weeklypanel/internal/errors"
)

const bom = "\ufeff"

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
}

// record is one data row with its 1-based line number in the file
type record struct {
	line   int
	fields []string
}

// openFile opens path, mapping a missing file to FileNotFound
func openFile(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewFileNotFound(path, err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("open %s", path), err)
	}
	return file, nil
}

// readTable reads a header and its data rows. Ragged rows are malformed.
func readTable(r io.Reader, source string) ([]string, []record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewEmptyInput("%s: no header row", source)
	}
	if err != nil {
		return nil, nil, apperrors.NewMalformedSeries("%s: read header: %v", source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], bom))
	}

	var records []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, apperrors.NewMalformedSeries("%s: %v", source, err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}

	if len(records) == 0 {
		return nil, nil, apperrors.NewEmptyInput("%s: header only, no rows", source)
	}
	return header, records, nil
}

func checkHeader(header, want []string, source string) error {
	if len(header) != len(want) {
		return apperrors.NewMalformedSeries("%s: header %v, expected %v", source, header, want)
	}
	for i := range want {
		if header[i] != want[i] {
			return apperrors.NewMalformedSeries("%s: header %v, expected %v", source, header, want)
		}
	}
	return nil
}

// parseDate accepts a calendar date with or without a time part and
// normalises it to UTC midnight.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return calendar.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
}

// parseValue reads a numeric cell; blank and NA-style markers are NaN
func parseValue(s, column string, line int, source string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.NewMalformedSeries("%s line %d: parse %s %q", source, line, column, s)
	}
	return v, nil
}
