package http

import (
	"math"
	"time"

	"weeklypanel/internal/pipeline"
	"weeklypanel/internal/regression"
	"weeklypanel/internal/report"
	"weeklypanel/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// num maps non-finite values to null
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nums(vs []float64) []*float64 {
	out := make([]*float64, len(vs))
	for i, v := range vs {
		out[i] = num(v)
	}
	return out
}

// SeriesSummary describes one weekly series without its rows
type SeriesSummary struct {
	Name    string   `json:"name"`
	Class   string   `json:"class"`
	Columns []string `json:"columns"`
	Weeks   int      `json:"weeks"`
	First   string   `json:"first,omitempty"`
	Last    string   `json:"last,omitempty"`
}

func summarize(ws *domain.WeeklySeries) SeriesSummary {
	s := SeriesSummary{
		Name:    ws.Name,
		Class:   string(ws.Class),
		Columns: ws.Columns,
		Weeks:   ws.Len(),
	}
	if n := ws.Len(); n > 0 {
		s.First = ws.Rows[0].Key.String()
		s.Last = ws.Rows[n-1].Key.String()
	}
	return s
}

// WeekRow is one week of a series or the panel
type WeekRow struct {
	Week   string     `json:"week"`
	Anchor string     `json:"anchor"`
	At     string     `json:"at,omitempty"`
	Values []*float64 `json:"values"`
}

// SeriesResponse is one weekly series with its rows
type SeriesResponse struct {
	SeriesSummary
	Rows []WeekRow `json:"rows"`
}

func seriesResponse(ws *domain.WeeklySeries, w window) SeriesResponse {
	resp := SeriesResponse{SeriesSummary: summarize(ws), Rows: []WeekRow{}}
	for _, row := range ws.Rows {
		if !w.contains(row.Key) {
			continue
		}
		wr := WeekRow{
			Week:   row.Key.String(),
			Anchor: row.Key.Anchor().Format(dateLayout),
			Values: nums(row.Values),
		}
		if !row.At.IsZero() && !row.At.Equal(row.Key.Anchor()) {
			wr.At = row.At.Format(dateLayout)
		}
		resp.Rows = append(resp.Rows, wr)
	}
	return resp
}

// PanelResponse is the aligned panel
type PanelResponse struct {
	Columns []string  `json:"columns"`
	Weeks   int       `json:"weeks"`
	Rows    []WeekRow `json:"rows"`
}

func panelResponse(p *domain.Panel, w window) PanelResponse {
	resp := PanelResponse{Columns: p.Columns, Rows: []WeekRow{}}
	for _, row := range p.Rows {
		if !w.contains(row.Key) {
			continue
		}
		resp.Rows = append(resp.Rows, WeekRow{
			Week:   row.Key.String(),
			Anchor: row.Key.Anchor().Format(dateLayout),
			Values: nums(row.Values),
		})
	}
	resp.Weeks = len(resp.Rows)
	return resp
}

// CoefficientResponse is one estimated parameter
type CoefficientResponse struct {
	Name     string   `json:"name"`
	Estimate *float64 `json:"estimate"`
	StdErr   *float64 `json:"std_err"`
	T        *float64 `json:"t"`
	P        *float64 `json:"p"`
}

// ModelResponse summarizes the OLS fit
type ModelResponse struct {
	Dependent    string                `json:"dependent"`
	Regressors   []string              `json:"regressors"`
	N            int                   `json:"n"`
	DoF          int                   `json:"dof"`
	R2           *float64              `json:"r2"`
	AdjR2        *float64              `json:"adj_r2"`
	FStat        *float64              `json:"f_stat"`
	FPValue      *float64              `json:"f_p"`
	LogLik       *float64              `json:"log_likelihood"`
	AIC          *float64              `json:"aic"`
	Coefficients []CoefficientResponse `json:"coefficients"`
}

// TestResponse is a named test statistic with its p-value
type TestResponse struct {
	Statistic *float64 `json:"statistic"`
	P         *float64 `json:"p"`
}

// NormalityResponse is the Jarque-Bera test with the moments it uses
type NormalityResponse struct {
	TestResponse
	Skew     *float64 `json:"skew"`
	Kurtosis *float64 `json:"kurtosis"`
}

// StationarityResponse is one ADF result
type StationarityResponse struct {
	Column     string              `json:"column"`
	Statistic  *float64            `json:"statistic"`
	P          *float64            `json:"p"`
	UsedLag    int                 `json:"used_lag"`
	NObs       int                 `json:"nobs"`
	Critical   map[string]*float64 `json:"critical"`
	Stationary bool                `json:"stationary"`
}

// EndogeneityResponse is the Durbin-Wu-Hausman result
type EndogeneityResponse struct {
	Variable   string   `json:"variable"`
	Instrument string   `json:"instrument"`
	Residual   *float64 `json:"residual_coefficient"`
	T          *float64 `json:"t"`
	P          *float64 `json:"p"`
	Endogenous bool     `json:"endogenous"`
}

// RegressionResponse is the fitted model and every diagnostic
type RegressionResponse struct {
	Model        ModelResponse          `json:"model"`
	VIF          map[string]*float64    `json:"vif"`
	JarqueBera   NormalityResponse      `json:"jarque_bera"`
	DurbinWatson *float64               `json:"durbin_watson"`
	BreuschPagan TestResponse           `json:"breusch_pagan"`
	Stationarity []StationarityResponse `json:"stationarity"`
	Endogeneity  *EndogeneityResponse   `json:"endogeneity,omitempty"`
	Significance float64                `json:"significance_level"`
}

func regressionResponse(res *regression.Result) RegressionResponse {
	m := res.Model
	resp := RegressionResponse{
		Model: ModelResponse{
			Dependent:  m.Dependent,
			Regressors: m.Regressors,
			N:          m.N,
			DoF:        m.DoF,
			R2:         num(m.R2),
			AdjR2:      num(m.AdjR2),
			FStat:      num(m.FStat),
			FPValue:    num(m.FPValue),
			LogLik:     num(m.LogLik),
			AIC:        num(m.AIC),
		},
		VIF: make(map[string]*float64, len(res.VIF)),
		JarqueBera: NormalityResponse{
			TestResponse: TestResponse{Statistic: num(res.JarqueBera.Statistic), P: num(res.JarqueBera.P)},
			Skew:         num(res.JarqueBera.Skew),
			Kurtosis:     num(res.JarqueBera.Kurtosis),
		},
		DurbinWatson: num(res.DurbinWatson),
		BreuschPagan: TestResponse{Statistic: num(res.BreuschPagan.LM), P: num(res.BreuschPagan.P)},
		Stationarity: []StationarityResponse{},
		Significance: report.SignificanceLevel,
	}
	for _, c := range m.Coefficients {
		resp.Model.Coefficients = append(resp.Model.Coefficients, CoefficientResponse{
			Name:     c.Name,
			Estimate: num(c.Estimate),
			StdErr:   num(c.StdErr),
			T:        num(c.T),
			P:        num(c.P),
		})
	}
	for _, v := range res.VIF {
		resp.VIF[v.Name] = num(v.Value)
	}
	for _, a := range res.Stationarity {
		critical := make(map[string]*float64, len(a.Critical))
		for k, v := range a.Critical {
			critical[k] = num(v)
		}
		resp.Stationarity = append(resp.Stationarity, StationarityResponse{
			Column:     a.Column,
			Statistic:  num(a.Statistic),
			P:          num(a.PValue),
			UsedLag:    a.UsedLag,
			NObs:       a.NObs,
			Critical:   critical,
			Stationary: a.PValue < report.SignificanceLevel,
		})
	}
	if e := res.Endogeneity; e != nil {
		resp.Endogeneity = &EndogeneityResponse{
			Variable:   e.Variable,
			Instrument: e.Instrument,
			Residual:   num(e.Residual),
			T:          num(e.T),
			P:          num(e.P),
			Endogenous: e.P < report.SignificanceLevel,
		}
	}
	return resp
}

// HealthResponse reports liveness and the run being served
type HealthResponse struct {
	Status   string `json:"status"`
	RunID    string `json:"run_id,omitempty"`
	Finished string `json:"finished,omitempty"`
}

func healthResponse(res *pipeline.Result, ok bool) HealthResponse {
	if !ok {
		return HealthResponse{Status: "starting"}
	}
	h := HealthResponse{Status: "ok", RunID: res.RunID}
	if !res.Finished.IsZero() {
		h.Finished = res.Finished.UTC().Format(time.RFC3339)
	}
	return h
}
