package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "weeklypanel/internal/errors"
)

// ConstName labels the intercept coefficient
const ConstName = "const"

// Coefficient is one estimated parameter with its inference
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	T        float64 `json:"t"`
	P        float64 `json:"p"`
}

// Model is an ordinary least squares fit with intercept
type Model struct {
	Dependent    string        `json:"dependent"`
	Regressors   []string      `json:"regressors"`
	Coefficients []Coefficient `json:"coefficients"`
	N            int           `json:"n"`
	DoF          int           `json:"dof"`
	R2           float64       `json:"r2"`
	AdjR2        float64       `json:"adj_r2"`
	FStat        float64       `json:"f_stat"`
	FPValue      float64       `json:"f_p"`
	SSR          float64       `json:"ssr"`
	LogLik       float64       `json:"log_likelihood"`
	AIC          float64       `json:"aic"`
	Residuals    []float64     `json:"-"`
	Fitted       []float64     `json:"-"`

	design *mat.Dense
}

// Coefficient returns the named coefficient
func (m *Model) Coefficient(name string) (Coefficient, bool) {
	for _, c := range m.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// OLS regresses y on the given regressor columns plus an intercept
func OLS(dependent string, y []float64, names []string, columns [][]float64) (*Model, error) {
	if len(names) != len(columns) {
		return nil, apperrors.NewValidationError("%d names for %d regressor columns", len(names), len(columns))
	}
	for i, col := range columns {
		if len(col) != len(y) {
			return nil, apperrors.NewValidationError("regressor %q has %d rows, dependent has %d", names[i], len(col), len(y))
		}
	}

	X := design(len(y), columns)
	fit, err := leastSquares(X, y)
	if err != nil {
		return nil, err
	}

	n, k := X.Dims()
	dof := n - k
	sigma2 := fit.ssr / float64(dof)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}

	m := &Model{
		Dependent:    dependent,
		Regressors:   append([]string(nil), names...),
		Coefficients: make([]Coefficient, k),
		N:            n,
		DoF:          dof,
		SSR:          fit.ssr,
		Residuals:    fit.resid,
		Fitted:       fit.fitted,
		design:       X,
	}

	for j := 0; j < k; j++ {
		name := ConstName
		if j > 0 {
			name = names[j-1]
		}
		se := math.Sqrt(sigma2 * fit.xtxInv.At(j, j))
		t := fit.beta[j] / se
		m.Coefficients[j] = Coefficient{
			Name:     name,
			Estimate: fit.beta[j],
			StdErr:   se,
			T:        t,
			P:        2 * tdist.Survival(math.Abs(t)),
		}
	}

	m.R2 = rSquared(y, fit.ssr)
	m.AdjR2 = 1 - (1-m.R2)*float64(n-1)/float64(dof)
	m.FStat, m.FPValue = math.NaN(), math.NaN()
	if k > 1 {
		m.FStat = (m.R2 / float64(k-1)) / ((1 - m.R2) / float64(dof))
		m.FPValue = distuv.F{D1: float64(k - 1), D2: float64(dof)}.Survival(m.FStat)
	}
	m.LogLik = logLikelihood(n, fit.ssr)
	m.AIC = -2*m.LogLik + 2*float64(k)

	return m, nil
}

// design builds the n x (1+len(columns)) matrix with a leading intercept
func design(n int, columns [][]float64) *mat.Dense {
	X := mat.NewDense(n, len(columns)+1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range columns {
			X.Set(i, j+1, col[i])
		}
	}
	return X
}

type lsq struct {
	beta   []float64
	fitted []float64
	resid  []float64
	ssr    float64
	xtxInv *mat.Dense
}

// leastSquares solves min ||XB - y|| through the QR factorization of X.
// (X'X)^-1 is recovered as R^-1 R^-T for the standard errors.
func leastSquares(X *mat.Dense, y []float64) (*lsq, error) {
	n, k := X.Dims()
	if n <= k {
		return nil, apperrors.NewValidationError("%d observations for %d parameters", n, k)
	}

	var qr mat.QR
	qr.Factorize(X)

	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r.SetTri(i, j, full.At(i, j))
		}
	}
	if rank := numericalRank(r, n); rank < k {
		return nil, apperrors.NewValidationError("singular design matrix: rank %d for %d parameters", rank, k)
	}

	yv := mat.NewDense(n, 1, append([]float64(nil), y...))
	var b mat.Dense
	if err := qr.SolveTo(&b, false, yv); err != nil {
		return nil, apperrors.NewValidationError("singular design matrix: %v", err)
	}

	var rInv mat.TriDense
	if err := rInv.InverseTri(r); err != nil {
		return nil, apperrors.NewValidationError("singular design matrix: %v", err)
	}
	var xtxInv mat.Dense
	xtxInv.Mul(&rInv, rInv.T())

	beta := b.ColView(0)
	var fitted mat.VecDense
	fitted.MulVec(X, beta)

	out := &lsq{
		beta:   make([]float64, k),
		fitted: make([]float64, n),
		resid:  make([]float64, n),
		xtxInv: &xtxInv,
	}
	for j := 0; j < k; j++ {
		out.beta[j] = beta.AtVec(j)
	}
	for i := 0; i < n; i++ {
		out.fitted[i] = fitted.AtVec(i)
		out.resid[i] = y[i] - out.fitted[i]
		out.ssr += out.resid[i] * out.resid[i]
	}
	return out, nil
}

// numericalRank counts the diagonal entries of r above
// max|r_ii| · max(n, k) · eps.
func numericalRank(r *mat.TriDense, n int) int {
	k, _ := r.Dims()
	largest := 0.0
	for i := 0; i < k; i++ {
		largest = math.Max(largest, math.Abs(r.At(i, i)))
	}
	tol := largest * float64(max(n, k)) * epsilon
	rank := 0
	for i := 0; i < k; i++ {
		if math.Abs(r.At(i, i)) > tol {
			rank++
		}
	}
	return rank
}

const epsilon = 0x1p-52

// rSquared is the centred coefficient of determination
func rSquared(y []float64, ssr float64) float64 {
	mean := stat.Mean(y, nil)
	var sst float64
	for _, v := range y {
		sst += (v - mean) * (v - mean)
	}
	if sst == 0 {
		return math.NaN()
	}
	return 1 - ssr/sst
}

// logLikelihood of a Gaussian linear model at its OLS estimate
func logLikelihood(n int, ssr float64) float64 {
	nf := float64(n)
	return -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
}
