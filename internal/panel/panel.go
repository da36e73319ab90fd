// Package panel aligns weekly series into one panel keyed by ISO week.
//
// The base input supplies the candidate weeks. Daily inputs join on the
// exact week, monthly inputs join as-of backward against each week's
// anchor. Weeks with any missing value are dropped before optional first
// differences are added.
package panel

import (
	"math"

	apperrors "weeklypanel/internal/errors"
	"weeklypanel/pkg/contracts/domain"
)

// JoinMode selects how an input is matched to the base weeks
type JoinMode string

const (
	// JoinExact keeps only weeks present in the input
	JoinExact JoinMode = "exact"
	// JoinAsOf takes the latest input row at or before the week anchor
	JoinAsOf JoinMode = "asof"
)

// DiffSuffix is appended to a column name for its first difference
const DiffSuffix = "_diff"

// ModeFor returns the default join mode of a frequency class
func ModeFor(class domain.FrequencyClass) (JoinMode, error) {
	switch class {
	case domain.DailyAggregate, domain.DailyLast:
		return JoinExact, nil
	case domain.MonthlyCompounding:
		return JoinAsOf, nil
	}
	return "", apperrors.NewUnknownJoinMode(string(class))
}

// Column picks a source column and optionally renames it in the panel
type Column struct {
	Source string
	As     string
}

// Name returns the panel column name
func (c Column) Name() string {
	if c.As != "" {
		return c.As
	}
	return c.Source
}

// Input is one series contributing columns to the panel
type Input struct {
	Series  *domain.WeeklySeries
	Columns []Column
	// Mode overrides the class-derived join mode when set
	Mode JoinMode
}

// Difference requests a first-difference column
type Difference struct {
	Column string
	// DropLevel removes the level column once the difference is computed
	DropLevel bool
}

// Spec describes one alignment
type Spec struct {
	Base  Input
	Joins []Input
	Diffs []Difference
}

// Align builds the panel described by spec
func Align(spec Spec) (*domain.Panel, error) {
	if spec.Base.Series.Len() == 0 {
		return nil, apperrors.NewEmptyInput("base series has no rows")
	}

	columns, err := columnNames(spec)
	if err != nil {
		return nil, err
	}

	base := spec.Base.Series
	if err := checkStrictKeys(base); err != nil {
		return nil, err
	}
	baseIdx, err := sourceIndexes(spec.Base)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.PanelRow, len(base.Rows))
	for i, src := range base.Rows {
		values := make([]float64, len(columns))
		for j := range values {
			values[j] = math.NaN()
		}
		for j, idx := range baseIdx {
			values[j] = src.Values[idx]
		}
		rows[i] = domain.PanelRow{Key: src.Key, Values: values}
	}

	offset := len(baseIdx)
	for _, in := range spec.Joins {
		if in.Series.Len() == 0 {
			return nil, apperrors.NewEmptyInput("join series has no rows")
		}
		mode := in.Mode
		if mode == "" {
			if mode, err = ModeFor(in.Series.Class); err != nil {
				return nil, err
			}
		}
		idx, err := sourceIndexes(in)
		if err != nil {
			return nil, err
		}

		switch mode {
		case JoinExact:
			err = joinExact(rows, in.Series, idx, offset)
		case JoinAsOf:
			err = joinAsOf(rows, in.Series, idx, offset)
		default:
			err = apperrors.NewUnknownJoinMode(string(mode))
		}
		if err != nil {
			return nil, err
		}
		offset += len(idx)
	}

	rows = dropIncomplete(rows)
	if len(rows) == 0 {
		return nil, apperrors.NewNoOverlap("no week has a value in every column")
	}

	p := &domain.Panel{Columns: columns, Rows: rows}
	if len(spec.Diffs) > 0 {
		if p, err = difference(p, spec.Diffs); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func columnNames(spec Spec) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	add := func(name string) error {
		if seen[name] {
			return apperrors.NewValidationError("duplicate panel column %q", name)
		}
		seen[name] = true
		names = append(names, name)
		return nil
	}

	for _, in := range append([]Input{spec.Base}, spec.Joins...) {
		if len(in.Columns) == 0 {
			return nil, apperrors.NewValidationError("input %q selects no columns", seriesName(in.Series))
		}
		for _, c := range in.Columns {
			if err := add(c.Name()); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range spec.Diffs {
		if !seen[d.Column] {
			return nil, apperrors.NewValidationError("difference of unknown column %q", d.Column)
		}
		if seen[d.Column+DiffSuffix] {
			return nil, apperrors.NewValidationError("duplicate panel column %q", d.Column+DiffSuffix)
		}
	}
	return names, nil
}

func sourceIndexes(in Input) ([]int, error) {
	idx := make([]int, len(in.Columns))
	for i, c := range in.Columns {
		idx[i] = in.Series.ColumnIndex(c.Source)
		if idx[i] < 0 {
			return nil, apperrors.NewMalformedSeries("series %q has no column %q", in.Series.Name, c.Source)
		}
	}
	return idx, nil
}

func checkStrictKeys(ws *domain.WeeklySeries) error {
	for i := 1; i < len(ws.Rows); i++ {
		if !ws.Rows[i-1].Key.Before(ws.Rows[i].Key) {
			return apperrors.NewMalformedSeries("series %q: week %s repeated or out of order", ws.Name, ws.Rows[i].Key)
		}
	}
	return nil
}

// joinExact fills the input's columns for weeks it contains; other rows
// are left NaN and dropped later.
func joinExact(rows []domain.PanelRow, ws *domain.WeeklySeries, idx []int, offset int) error {
	if err := checkStrictKeys(ws); err != nil {
		return err
	}
	byKey := make(map[domain.WeeklyKey][]float64, len(ws.Rows))
	for _, row := range ws.Rows {
		byKey[row.Key] = row.Values
	}

	for i := range rows {
		values, ok := byKey[rows[i].Key]
		if !ok {
			continue
		}
		for j, src := range idx {
			rows[i].Values[offset+j] = values[src]
		}
	}
	return nil
}

// joinAsOf fills each week from the latest input row with At <= anchor.
// Rows must ascend by At.
func joinAsOf(rows []domain.PanelRow, ws *domain.WeeklySeries, idx []int, offset int) error {
	for i := 1; i < len(ws.Rows); i++ {
		if ws.Rows[i].At.Before(ws.Rows[i-1].At) {
			return apperrors.NewMalformedSeries("series %q: rows not ordered by time", ws.Name)
		}
	}

	next := 0
	for i := range rows {
		anchor := rows[i].Key.Anchor()
		for next < len(ws.Rows) && !ws.Rows[next].At.After(anchor) {
			next++
		}
		if next == 0 {
			continue
		}
		values := ws.Rows[next-1].Values
		for j, src := range idx {
			rows[i].Values[offset+j] = values[src]
		}
	}
	return nil
}

func dropIncomplete(rows []domain.PanelRow) []domain.PanelRow {
	kept := rows[:0]
	for _, row := range rows {
		complete := true
		for _, v := range row.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		}
	}
	return kept
}

// difference appends <col>_diff columns and drops the first week
func difference(p *domain.Panel, diffs []Difference) (*domain.Panel, error) {
	if len(p.Rows) < 2 {
		return nil, apperrors.NewNoOverlap("differencing needs at least two weeks, have %d", len(p.Rows))
	}

	columns := append([]string(nil), p.Columns...)
	sources := make([]int, len(diffs))
	for i, d := range diffs {
		sources[i] = p.ColumnIndex(d.Column)
		columns = append(columns, d.Column+DiffSuffix)
	}

	drop := make(map[int]bool)
	for i, d := range diffs {
		if d.DropLevel {
			drop[sources[i]] = true
		}
	}

	out := &domain.Panel{Rows: make([]domain.PanelRow, 0, len(p.Rows)-1)}
	for j, name := range columns {
		if !drop[j] {
			out.Columns = append(out.Columns, name)
		}
	}

	for i := 1; i < len(p.Rows); i++ {
		full := append([]float64(nil), p.Rows[i].Values...)
		for _, src := range sources {
			full = append(full, p.Rows[i].Values[src]-p.Rows[i-1].Values[src])
		}
		values := make([]float64, 0, len(out.Columns))
		for j, v := range full {
			if !drop[j] {
				values = append(values, v)
			}
		}
		out.Rows = append(out.Rows, domain.PanelRow{Key: p.Rows[i].Key, Values: values})
	}
	return out, nil
}

func seriesName(ws *domain.WeeklySeries) string {
	if ws == nil {
		return ""
	}
	return ws.Name
}
