package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "weeklypanel/internal/errors"
)

// VIF is the variance inflation factor of one regressor
type VIF struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// JarqueBera tests residual normality
type JarqueBera struct {
	Statistic float64 `json:"statistic"`
	P         float64 `json:"p"`
	Skew      float64 `json:"skew"`
	Kurtosis  float64 `json:"kurtosis"`
}

// BreuschPagan tests residual heteroskedasticity against the regressors
type BreuschPagan struct {
	LM  float64 `json:"lm"`
	P   float64 `json:"p"`
	DoF int     `json:"dof"`
}

// Hausman is the Durbin-Wu-Hausman endogeneity test of one regressor
type Hausman struct {
	Variable   string  `json:"variable"`
	Instrument string  `json:"instrument"`
	Residual   float64 `json:"residual_coefficient"`
	T          float64 `json:"t"`
	P          float64 `json:"p"`
}

// VarianceInflation regresses each regressor on the others plus an
// intercept and reports 1/(1-R²).
func VarianceInflation(names []string, columns [][]float64) ([]VIF, error) {
	out := make([]VIF, len(names))
	for j := range names {
		others := make([][]float64, 0, len(columns)-1)
		for i, col := range columns {
			if i != j {
				others = append(others, col)
			}
		}
		fit, err := leastSquares(design(len(columns[j]), others), columns[j])
		if err != nil {
			return nil, err
		}
		r2 := rSquared(columns[j], fit.ssr)
		out[j] = VIF{Name: names[j], Value: 1 / (1 - r2)}
		if len(others) == 0 {
			out[j].Value = 1
		}
	}
	return out, nil
}

// JarqueBeraTest computes JB = n/6 (S² + (K-3)²/4) on population moments
func JarqueBeraTest(resid []float64) JarqueBera {
	n := float64(len(resid))
	mean := stat.Mean(resid, nil)
	var m2, m3, m4 float64
	for _, e := range resid {
		d := e - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2, m3, m4 = m2/n, m3/n, m4/n

	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)
	jb := n / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	return JarqueBera{
		Statistic: jb,
		P:         distuv.ChiSquared{K: 2}.Survival(jb),
		Skew:      skew,
		Kurtosis:  kurt,
	}
}

// DurbinWatson is Σ(e_t - e_{t-1})² / Σe_t²
func DurbinWatson(resid []float64) float64 {
	var num, den float64
	for i, e := range resid {
		den += e * e
		if i > 0 {
			d := e - resid[i-1]
			num += d * d
		}
	}
	return num / den
}

// BreuschPaganTest regresses squared residuals on the model's design and
// reports LM = n·R² with k-1 degrees of freedom.
func BreuschPaganTest(m *Model) (BreuschPagan, error) {
	sq := make([]float64, len(m.Residuals))
	for i, e := range m.Residuals {
		sq[i] = e * e
	}
	fit, err := leastSquares(m.design, sq)
	if err != nil {
		return BreuschPagan{}, err
	}

	_, k := m.design.Dims()
	dof := k - 1
	lm := float64(m.N) * rSquared(sq, fit.ssr)
	out := BreuschPagan{LM: lm, DoF: dof, P: math.NaN()}
	if dof > 0 {
		out.P = distuv.ChiSquared{K: float64(dof)}.Survival(lm)
	}
	return out, nil
}

// DurbinWuHausman tests whether variable is endogenous. The first stage
// regresses it on instrument and the remaining exogenous regressors; the
// first-stage residual is then added to the structural regression and its
// coefficient tested. The instrument must be excluded from names.
func DurbinWuHausman(y []float64, names []string, columns [][]float64, variable string, instrument []float64, instrumentName string) (*Hausman, error) {
	endog := -1
	for i, name := range names {
		if name == variable {
			endog = i
		}
		if name == instrumentName {
			return nil, apperrors.NewValidationError("instrument %q is also a regressor", instrumentName)
		}
	}
	if endog < 0 {
		return nil, apperrors.NewValidationError("endogeneity variable %q is not a regressor", variable)
	}

	first := [][]float64{}
	for i, col := range columns {
		if i != endog {
			first = append(first, col)
		}
	}
	first = append(first, instrument)

	stage1, err := leastSquares(design(len(y), first), columns[endog])
	if err != nil {
		return nil, err
	}

	augmentedNames := append(append([]string(nil), names...), "first_stage_residual")
	augmented := append(append([][]float64(nil), columns...), stage1.resid)
	m, err := OLS("", y, augmentedNames, augmented)
	if err != nil {
		return nil, err
	}

	c := m.Coefficients[len(m.Coefficients)-1]
	return &Hausman{
		Variable:   variable,
		Instrument: instrumentName,
		Residual:   c.Estimate,
		T:          c.T,
		P:          c.P,
	}, nil
}
