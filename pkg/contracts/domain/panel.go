package domain

// PanelRow is one week of the aligned panel
type PanelRow struct {
	Key    WeeklyKey `json:"key"`
	Values []float64 `json:"values"`
}

// Panel is the aligned weekly table fed to the regression. Rows ascend by
// key and every cell is finite.
type Panel struct {
	Columns []string   `json:"columns"`
	Rows    []PanelRow `json:"rows"`
}

// Len returns the number of rows
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Rows)
}

// ColumnIndex returns the position of a column or -1
func (p *Panel) ColumnIndex(name string) int {
	return indexOf(p.Columns, name)
}

// Column copies one column out of the panel
func (p *Panel) Column(name string) ([]float64, bool) {
	idx := p.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.Values[idx]
	}
	return out, true
}

// Keys returns the row keys in order
func (p *Panel) Keys() []WeeklyKey {
	keys := make([]WeeklyKey, len(p.Rows))
	for i, row := range p.Rows {
		keys[i] = row.Key
	}
	return keys
}
