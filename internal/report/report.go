// Package report renders regression results and panel summaries as text
// tables.
package report

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"weeklypanel/internal/loader"
	"weeklypanel/internal/regression"
	"weeklypanel/pkg/contracts/domain"
)

// SignificanceLevel is the default threshold for the verdict columns
const SignificanceLevel = 0.05

// newTable applies cfgs and widens the first column so the title fits on
// one line.
func newTable(title string, cfgs ...table.ColumnConfig) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.SetColumnConfigs(append([]table.ColumnConfig{{Number: 1, WidthMin: len(title)}}, cfgs...))
	return t
}

func rightAlign(from, to int) []table.ColumnConfig {
	var cfgs []table.ColumnConfig
	for n := from; n <= to; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cfgs
}

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

func verdict(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// Regression writes the model summary, coefficients and every diagnostic
// present in res.
func Regression(w io.Writer, res *regression.Result) error {
	m := res.Model
	tables := []table.Writer{
		summary(m),
		coefficients(m),
		diagnostics(res),
	}
	if len(res.VIF) > 0 {
		tables = append(tables, vif(res.VIF))
	}
	if len(res.Stationarity) > 0 {
		tables = append(tables, stationarity(res.Stationarity))
	}
	if res.Endogeneity != nil {
		tables = append(tables, endogeneity(res.Endogeneity))
	}

	for _, t := range tables {
		if _, err := fmt.Fprintln(w, t.Render()); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func summary(m *regression.Model) table.Writer {
	t := newTable("OLS Regression Results")
	t.AppendRows([]table.Row{
		{"Dep. Variable", m.Dependent, "R-squared", f4(m.R2)},
		{"Observations", m.N, "Adj. R-squared", f4(m.AdjR2)},
		{"Df Residuals", m.DoF, "F-statistic", f4(m.FStat)},
		{"Df Model", len(m.Regressors), "Prob (F-statistic)", fmt.Sprintf("%.4g", m.FPValue)},
		{"Log-Likelihood", f4(m.LogLik), "AIC", f4(m.AIC)},
	})
	return t
}

func coefficients(m *regression.Model) table.Writer {
	t := newTable("Coefficients", rightAlign(2, 5)...)
	t.AppendHeader(table.Row{"", "coef", "std err", "t", "P>|t|"})
	for _, c := range m.Coefficients {
		t.AppendRow(table.Row{c.Name, f4(c.Estimate), f4(c.StdErr), fmt.Sprintf("%.3f", c.T), fmt.Sprintf("%.3f", c.P)})
	}
	return t
}

func diagnostics(res *regression.Result) table.Writer {
	t := newTable("Residual Diagnostics", rightAlign(2, 3)...)
	t.AppendHeader(table.Row{"Test", "Statistic", "p-value", "Verdict"})
	jb := res.JarqueBera
	t.AppendRow(table.Row{"Jarque-Bera", f4(jb.Statistic), fmt.Sprintf("%.4g", jb.P),
		verdict(jb.P >= SignificanceLevel, "normal", "non-normal")})
	t.AppendRow(table.Row{"Skew / Kurtosis", fmt.Sprintf("%.3f / %.3f", jb.Skew, jb.Kurtosis), "", ""})
	t.AppendRow(table.Row{"Durbin-Watson", f4(res.DurbinWatson), "", ""})
	bp := res.BreuschPagan
	t.AppendRow(table.Row{"Breusch-Pagan", f4(bp.LM), fmt.Sprintf("%.4g", bp.P),
		verdict(bp.P >= SignificanceLevel, "homoskedastic", "heteroskedastic")})
	return t
}

func vif(values []regression.VIF) table.Writer {
	t := newTable("Variance Inflation Factors", rightAlign(2, 2)...)
	t.AppendHeader(table.Row{"Variable", "VIF"})
	for _, v := range values {
		t.AppendRow(table.Row{v.Name, fmt.Sprintf("%.3f", v.Value)})
	}
	return t
}

func stationarity(results []regression.ADFResult) table.Writer {
	t := newTable("Augmented Dickey-Fuller", rightAlign(2, 8)...)
	t.AppendHeader(table.Row{"Column", "ADF", "p-value", "Lags", "Obs", "1%", "5%", "10%", "Verdict"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Column, f4(r.Statistic), fmt.Sprintf("%.4g", r.PValue), r.UsedLag, r.NObs,
			f4(r.Critical["1%"]), f4(r.Critical["5%"]), f4(r.Critical["10%"]),
			verdict(r.Stationary("5%"), "stationary", "unit root"),
		})
	}
	return t
}

func endogeneity(h *regression.Hausman) table.Writer {
	t := newTable("Durbin-Wu-Hausman")
	t.AppendHeader(table.Row{"Variable", "Instrument", "Residual coef", "t", "p-value", "Verdict"})
	t.AppendRow(table.Row{h.Variable, h.Instrument, f4(h.Residual), fmt.Sprintf("%.3f", h.T), fmt.Sprintf("%.4g", h.P),
		verdict(h.P >= SignificanceLevel, "exogenous", "endogenous")})
	return t
}

// Frame converts the panel into a dataframe with a leading Date column of
// week labels.
func Frame(p *domain.Panel) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(p.Columns)+1)
	keys := make([]string, p.Len())
	for i, row := range p.Rows {
		keys[i] = row.Key.String()
	}
	cols = append(cols, series.New(keys, series.String, loader.DateColumn))
	for _, name := range p.Columns {
		values, _ := p.Column(name)
		cols = append(cols, series.New(values, series.Float, name))
	}
	return dataframe.New(cols...)
}

// Describe returns summary statistics of every panel column
func Describe(p *domain.Panel) dataframe.DataFrame {
	return Frame(p).Drop(loader.DateColumn).Describe()
}

// Panel writes the panel's week range and column statistics
func Panel(w io.Writer, p *domain.Panel) error {
	if p.Len() == 0 {
		_, err := fmt.Fprintln(w, "panel is empty")
		return err
	}

	records := Describe(p).Records()
	header := make(table.Row, len(records[0]))
	for i, h := range records[0] {
		header[i] = h
	}

	first, last := p.Rows[0].Key, p.Rows[p.Len()-1].Key
	t := newTable(fmt.Sprintf("Panel %s..%s (%d weeks)", first, last, p.Len()), rightAlign(2, len(header))...)
	t.AppendHeader(header)
	for _, rec := range records[1:] {
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.AppendRow(row)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Series writes one line per weekly series: class, week count and range
func Series(w io.Writer, weekly []*domain.WeeklySeries) error {
	t := newTable("Weekly Series", rightAlign(3, 3)...)
	t.AppendHeader(table.Row{"Series", "Class", "Weeks", "First", "Last"})
	for _, ws := range weekly {
		first, last := "-", "-"
		if n := ws.Len(); n > 0 {
			first, last = ws.Rows[0].Key.String(), ws.Rows[n-1].Key.String()
		}
		t.AppendRow(table.Row{ws.Name, string(ws.Class), ws.Len(), first, last})
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
