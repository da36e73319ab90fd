// Package regression fits the weekly panel by ordinary least squares and
// runs the usual residual and stationarity diagnostics.
package regression

import (
	apperrors "weeklypanel/internal/errors"
	"weeklypanel/pkg/contracts/domain"
)

// Options selects the optional diagnostics
type Options struct {
	// Stationarity lists columns for the ADF test. Empty tests the
	// dependent variable and every regressor.
	Stationarity []string
	// MaxLag bounds the ADF lag search; negative uses Schwert's rule.
	MaxLag int
	// Endogenous and Instrument enable the Durbin-Wu-Hausman test.
	Endogenous string
	Instrument string
}

// Result is a fitted model with its diagnostics
type Result struct {
	Model        *Model       `json:"model"`
	VIF          []VIF        `json:"vif"`
	JarqueBera   JarqueBera   `json:"jarque_bera"`
	DurbinWatson float64      `json:"durbin_watson"`
	BreuschPagan BreuschPagan `json:"breusch_pagan"`
	Stationarity []ADFResult  `json:"stationarity"`
	Endogeneity  *Hausman     `json:"endogeneity,omitempty"`
}

// Fit regresses dependent on regressors over the panel's rows
func Fit(p *domain.Panel, dependent string, regressors []string, opts Options) (*Result, error) {
	if len(regressors) == 0 {
		return nil, apperrors.NewValidationError("no regressors given")
	}

	y, err := column(p, dependent)
	if err != nil {
		return nil, err
	}
	columns := make([][]float64, len(regressors))
	for i, name := range regressors {
		if name == dependent {
			return nil, apperrors.NewValidationError("%q is both dependent and regressor", name)
		}
		if columns[i], err = column(p, name); err != nil {
			return nil, err
		}
	}

	model, err := OLS(dependent, y, regressors, columns)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:        model,
		JarqueBera:   JarqueBeraTest(model.Residuals),
		DurbinWatson: DurbinWatson(model.Residuals),
	}
	if res.VIF, err = VarianceInflation(regressors, columns); err != nil {
		return nil, err
	}
	if res.BreuschPagan, err = BreuschPaganTest(model); err != nil {
		return nil, err
	}

	tested := opts.Stationarity
	if len(tested) == 0 {
		tested = append([]string{dependent}, regressors...)
	}
	for _, name := range tested {
		values, err := column(p, name)
		if err != nil {
			return nil, err
		}
		adf, err := ADF(values, opts.MaxLag)
		if err != nil {
			return nil, err
		}
		adf.Column = name
		res.Stationarity = append(res.Stationarity, *adf)
	}

	if opts.Endogenous != "" {
		instrument, err := column(p, opts.Instrument)
		if err != nil {
			return nil, err
		}
		if res.Endogeneity, err = DurbinWuHausman(y, regressors, columns, opts.Endogenous, instrument, opts.Instrument); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func column(p *domain.Panel, name string) ([]float64, error) {
	values, ok := p.Column(name)
	if !ok {
		return nil, apperrors.NewMalformedSeries("panel has no column %q", name)
	}
	return values, nil
}
