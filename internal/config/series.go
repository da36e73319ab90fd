package config

import (
	"weeklypanel/pkg/contracts/domain"
)

// SeriesDefinition names one input series and how to resample it
type SeriesDefinition struct {
	Name  string                `yaml:"name" validate:"required"`
	File  string                `yaml:"file" validate:"required"`
	Class domain.FrequencyClass `yaml:"class" validate:"required,oneof=daily_aggregate daily_last monthly_compounding"`
	// Schema overrides the class default ("daily" or "rate")
	Schema string `yaml:"schema" validate:"omitempty,oneof=daily rate"`
	// Symbol is the chart symbol the fetcher downloads, if any
	Symbol  string `yaml:"symbol"`
	Percent bool   `yaml:"percent"`
}

// PanelConfig describes the alignment
type PanelConfig struct {
	Base  JoinConfig   `yaml:"base"`
	Joins []JoinConfig `yaml:"joins" validate:"dive"`
	Diff  []DiffConfig `yaml:"diff" validate:"dive"`
}

// JoinConfig selects and renames columns of one series
type JoinConfig struct {
	Series  string         `yaml:"series" validate:"required"`
	Columns []ColumnConfig `yaml:"columns" validate:"required,min=1,dive"`
	Mode    string         `yaml:"mode" validate:"omitempty,oneof=exact asof"`
	// Deferred joins the native-frequency series as-of instead of its
	// weekly expansion
	Deferred bool `yaml:"deferred"`
}

// ColumnConfig maps a source column to its panel name
type ColumnConfig struct {
	Source string `yaml:"source" validate:"required"`
	As     string `yaml:"as"`
}

// Name is the panel column name
func (c ColumnConfig) Name() string {
	if c.As != "" {
		return c.As
	}
	return c.Source
}

// DiffConfig requests a first difference of a panel column
type DiffConfig struct {
	Column string `yaml:"column" validate:"required"`
	// KeepLevel keeps the level column next to its difference; defaults to true
	KeepLevel *bool `yaml:"keep_level"`
}

// Keep reports whether the level column stays in the panel
func (d DiffConfig) Keep() bool {
	return d.KeepLevel == nil || *d.KeepLevel
}

// RegressionConfig describes the model fitted on the panel
type RegressionConfig struct {
	Dependent    string   `yaml:"dependent" validate:"required"`
	Regressors   []string `yaml:"regressors" validate:"required,min=1,dive,required"`
	Stationarity []string `yaml:"stationarity"`
	// MaxLag bounds the ADF lag search; unset uses Schwert's rule
	MaxLag      *int               `yaml:"max_lag" validate:"omitempty,min=0"`
	Endogeneity *EndogeneityConfig `yaml:"endogeneity"`
}

// ADFMaxLag returns the configured lag bound, or -1 for automatic
func (r *RegressionConfig) ADFMaxLag() int {
	if r.MaxLag == nil {
		return -1
	}
	return *r.MaxLag
}

// EndogeneityConfig enables the Durbin-Wu-Hausman test
type EndogeneityConfig struct {
	Variable   string `yaml:"variable" validate:"required"`
	Instrument string `yaml:"instrument" validate:"required"`
}

func (p PanelConfig) inputs() []JoinConfig {
	return append([]JoinConfig{p.Base}, p.Joins...)
}

// OutputColumns lists the panel columns the alignment produces, in order
func (p PanelConfig) OutputColumns() []string {
	var names []string
	for _, in := range p.inputs() {
		for _, c := range in.Columns {
			names = append(names, c.Name())
		}
	}

	dropped := map[string]bool{}
	for _, d := range p.Diff {
		if !d.Keep() {
			dropped[d.Column] = true
		}
	}
	kept := names[:0:0]
	for _, name := range names {
		if !dropped[name] {
			kept = append(kept, name)
		}
	}

	known := map[string]bool{}
	for _, name := range names {
		known[name] = true
	}
	for _, d := range p.Diff {
		if known[d.Column] {
			kept = append(kept, d.Column+"_diff")
		}
	}
	return kept
}
