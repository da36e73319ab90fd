package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklypanel/internal/regression"
	"weeklypanel/pkg/contracts/domain"
)

func samplePanel() *domain.Panel {
	p := &domain.Panel{Columns: []string{"y", "x"}}
	y := []float64{2, 4, 5, 4, 5}
	for i := range y {
		p.Rows = append(p.Rows, domain.PanelRow{
			Key:    domain.WeeklyKey{Year: 2024, Week: i + 1},
			Values: []float64{y[i], float64(i + 1)},
		})
	}
	return p
}

func TestRegression(t *testing.T) {
	m, err := regression.OLS("y", []float64{2, 4, 5, 4, 5}, []string{"x"}, [][]float64{{1, 2, 3, 4, 5}})
	require.NoError(t, err)

	res := &regression.Result{
		Model:        m,
		JarqueBera:   regression.JarqueBeraTest(m.Residuals),
		DurbinWatson: regression.DurbinWatson(m.Residuals),
		VIF:          []regression.VIF{{Name: "x", Value: 1}},
		Stationarity: []regression.ADFResult{{
			Column: "y", Statistic: -4.2, PValue: 0.0007, UsedLag: 1, NObs: 3,
			Critical: map[string]float64{"1%": -3.43, "5%": -2.86, "10%": -2.57},
		}},
		Endogeneity: &regression.Hausman{Variable: "x", Instrument: "z", Residual: 0.3, T: 0.5, P: 0.62},
	}

	var buf bytes.Buffer
	require.NoError(t, Regression(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "OLS Regression Results")
	assert.Contains(t, out, "0.6000", "slope and R-squared")
	assert.Contains(t, out, "2.2000", "intercept")
	assert.Contains(t, out, "Variance Inflation Factors")
	assert.Contains(t, out, "stationary")
	assert.Contains(t, out, "exogenous")
}

func TestRegression_OmitsAbsentSections(t *testing.T) {
	m, err := regression.OLS("y", []float64{2, 4, 5, 4, 5}, []string{"x"}, [][]float64{{1, 2, 3, 4, 5}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Regression(&buf, &regression.Result{Model: m}))
	assert.NotContains(t, buf.String(), "Durbin-Wu-Hausman")
	assert.NotContains(t, buf.String(), "Augmented Dickey-Fuller")
}

func TestFrame(t *testing.T) {
	df := Frame(samplePanel())

	require.NoError(t, df.Err)
	assert.Equal(t, []string{"Date", "y", "x"}, df.Names())
	assert.Equal(t, 5, df.Nrow())
	assert.Equal(t, "2024-03", df.Col("Date").Elem(2).String())
	assert.Equal(t, 5.0, df.Col("y").Elem(2).Float())
}

func TestDescribe(t *testing.T) {
	df := Describe(samplePanel())
	require.NoError(t, df.Err)

	mean := df.Col("y").Elem(0).Float()
	assert.InDelta(t, 4.0, mean, 1e-12)
	assert.InDelta(t, 3.0, df.Col("x").Elem(0).Float(), 1e-12)
	assert.False(t, math.IsNaN(df.Col("x").Elem(1).Float()))
}

func TestPanel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Panel(&buf, samplePanel()))
	assert.Contains(t, buf.String(), "2024-01..2024-05 (5 weeks)")
	assert.Contains(t, buf.String(), "mean")

	buf.Reset()
	require.NoError(t, Panel(&buf, &domain.Panel{Columns: []string{"y"}}))
	assert.Equal(t, "panel is empty\n", buf.String())
}

func TestSeries(t *testing.T) {
	weekly := []*domain.WeeklySeries{
		{Name: "Aker_BP", Class: domain.DailyAggregate, Rows: []domain.WeeklyRow{
			{Key: domain.WeeklyKey{Year: 2024, Week: 1}}, {Key: domain.WeeklyKey{Year: 2024, Week: 2}},
		}},
		{Name: "CPI_Rate", Class: domain.MonthlyCompounding},
	}

	var buf bytes.Buffer
	require.NoError(t, Series(&buf, weekly))
	out := buf.String()
	assert.Contains(t, out, "Aker_BP")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "monthly_compounding")
}

func TestNewTable_KeepsTitleOnOneLine(t *testing.T) {
	title := "A title far wider than the single narrow cell below it"
	tw := newTable(title)
	tw.AppendRow(table.Row{"x", "1"})

	lines := strings.Split(tw.Render(), "\n")
	require.Greater(t, len(lines), 2)
	assert.Contains(t, lines[1], title)
	assert.NotContains(t, lines[2], "below")
}
