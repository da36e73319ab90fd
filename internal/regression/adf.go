package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "weeklypanel/internal/errors"
)

// MacKinnon (2010) response surface for the constant-only case, one
// variable.
var (
	tauMax    = 2.74
	tauMin    = -18.83
	tauStar   = -1.61
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}

	critLevels = []string{"1%", "5%", "10%"}
	critCoef   = [][]float64{
		{-3.43035, -6.5393, -16.786, -79.433},
		{-2.86154, -2.8903, -4.234, -40.040},
		{-2.56677, -1.5384, -2.809, 0},
	}
)

// ADFResult is an augmented Dickey-Fuller unit root test with constant
type ADFResult struct {
	Column    string             `json:"column"`
	Statistic float64            `json:"statistic"`
	PValue    float64            `json:"p"`
	UsedLag   int                `json:"used_lag"`
	NObs      int                `json:"nobs"`
	Critical  map[string]float64 `json:"critical"`
}

// Stationary reports whether the unit root is rejected at the given level
// ("1%", "5%" or "10%").
func (r ADFResult) Stationary(level string) bool {
	crit, ok := r.Critical[level]
	return ok && r.Statistic < crit
}

// ADF runs the test on x. Lags up to maxLag are tried and the one with the
// lowest AIC kept; a negative maxLag uses 12·(n/100)^(1/4).
func ADF(x []float64, maxLag int) (*ADFResult, error) {
	n := len(x)
	limit := n/2 - 2
	if maxLag < 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return nil, apperrors.NewValidationError("%d observations are too few for a unit root test", n)
	}

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	// choose the lag on the common sample that the largest lag allows
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		m, err := adfRegression(x, dx, lag, maxLag)
		if err != nil {
			return nil, err
		}
		if m.AIC < bestAIC {
			bestLag, bestAIC = lag, m.AIC
		}
	}

	m, err := adfRegression(x, dx, bestLag, bestLag)
	if err != nil {
		return nil, err
	}

	stat := m.Coefficients[1].T
	return &ADFResult{
		Statistic: stat,
		PValue:    mackinnonP(stat),
		UsedLag:   bestLag,
		NObs:      m.N,
		Critical:  mackinnonCrit(m.N),
	}, nil
}

// adfRegression fits Δx_t = a + γ x_{t-1} + Σ δ_i Δx_{t-i} for i <= lag,
// starting at the first t that trim lags permit.
func adfRegression(x, dx []float64, lag, trim int) (*Model, error) {
	rows := len(dx) - trim
	y := make([]float64, rows)
	names := make([]string, lag+1)
	columns := make([][]float64, lag+1)
	names[0] = "level"
	columns[0] = make([]float64, rows)
	for i := 1; i <= lag; i++ {
		names[i] = fmt.Sprintf("lag%d", i)
		columns[i] = make([]float64, rows)
	}

	for r := 0; r < rows; r++ {
		t := trim + r
		y[r] = dx[t]
		columns[0][r] = x[t]
		for i := 1; i <= lag; i++ {
			columns[i][r] = dx[t-i]
		}
	}
	return OLS("diff", y, names, columns)
}

// mackinnonP approximates the p-value of an ADF statistic
func mackinnonP(stat float64) float64 {
	if stat > tauMax {
		return 1
	}
	if stat < tauMin {
		return 0
	}
	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// mackinnonCrit returns the finite-sample critical values for nobs
func mackinnonCrit(nobs int) map[string]float64 {
	out := make(map[string]float64, len(critLevels))
	inv := 1 / float64(nobs)
	for i, level := range critLevels {
		out[level] = polyval(critCoef[i], inv)
	}
	return out
}

// polyval evaluates Σ coef[i]·x^i
func polyval(coef []float64, x float64) float64 {
	var v float64
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*x + coef[i]
	}
	return v
}
