package exporter

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklypanel/internal/loader"
	"weeklypanel/pkg/contracts/domain"
)

func sampleWeekly() *domain.WeeklySeries {
	return &domain.WeeklySeries{
		Name:    "Brent_Crude",
		Class:   domain.DailyAggregate,
		Columns: []string{"Close", "Log_Returns"},
		Rows: []domain.WeeklyRow{
			{Key: domain.WeeklyKey{Year: 2024, Week: 1}, Values: []float64{77.5, math.NaN()}},
			{Key: domain.WeeklyKey{Year: 2024, Week: 2}, Values: []float64{78.125, 0.003968}},
		},
	}
}

func TestWriteWeekly_Layout(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	require.NoError(t, w.WriteWeekly("Brent_Crude_weekly.csv", sampleWeekly()))

	data, err := os.ReadFile(filepath.Join(dir, "Brent_Crude_weekly.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,Close,Log_Returns\n2024-01,77.5,\n2024-02,78.125,0.003968\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWriteWeekly_DeterministicAndReadable(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)
	ws := sampleWeekly()

	require.NoError(t, w.WriteWeekly("a.csv", ws))
	require.NoError(t, w.WriteWeekly("b.csv", ws))

	a, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	back, err := loader.LoadWeekly(filepath.Join(dir, "a.csv"), ws.Name, ws.Class)
	require.NoError(t, err)
	assert.Equal(t, ws.Columns, back.Columns)
	assert.Equal(t, ws.Keys(), back.Keys())
	assert.Equal(t, 78.125, back.Rows[1].Values[0])
	assert.True(t, math.IsNaN(back.Rows[0].Values[1]))
}

func TestWritePanel(t *testing.T) {
	dir := t.TempDir()
	p := &domain.Panel{
		Columns: []string{"Log_Returns_Aker_BP", "CPI_Rate_diff"},
		Rows: []domain.PanelRow{
			{Key: domain.WeeklyKey{Year: 2023, Week: 52}, Values: []float64{-0.0125, 1e-7}},
		},
	}

	path := filepath.Join(dir, "nested", "panel.csv")
	require.NoError(t, NewCSVWriter("ignored").WritePanel(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Log_Returns_Aker_BP,CPI_Rate_diff\n2023-52,-0.0125,0.0000001\n", string(data))
}

func TestWriteSeries(t *testing.T) {
	dir := t.TempDir()
	s := &domain.Series{
		Name:    "OSEBX",
		Columns: loader.DailySchema.Columns,
		Observations: []domain.Observation{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Values: []float64{1300.5, 1301, 1290, 1295, 0, math.NaN()}},
		},
	}

	w := NewCSVWriter(dir)
	require.NoError(t, w.WriteSeries("OSEBX.csv", s))
	assert.Equal(t, filepath.Join(dir, "OSEBX.csv"), w.Path("OSEBX.csv"))

	back, err := loader.Load(filepath.Join(dir, "OSEBX.csv"), loader.DailySchema)
	require.NoError(t, err)
	require.Equal(t, 1, back.Len())
	assert.Equal(t, s.Observations[0].Date, back.Observations[0].Date)
	assert.Equal(t, 1300.5, back.Observations[0].Values[0])
}

func TestWriteCSV_BOMAndDirectoryError(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	require.NoError(t, w.WriteCSV("bom.csv", WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}}, BOMPrefix: true}))
	data, err := os.ReadFile(filepath.Join(dir, "bom.csv"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	err = w.WriteCSV(filepath.Join(blocker, "x.csv"), WriteOptions{Headers: []string{"a"}})
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "", formatFloat(math.NaN()))
	assert.Equal(t, "12", formatFloat(12))
	assert.Equal(t, "0.1", formatFloat(0.1))
	assert.Equal(t, "-3.25", formatFloat(-3.25))
}
