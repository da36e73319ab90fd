package fetch

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/exporter"
	"weeklypanel/internal/loader"
	"weeklypanel/pkg/contracts/domain"
)

func TestWriteDaily(t *testing.T) {
	dir := t.TempDir()
	w := exporter.NewCSVWriter(dir)
	path := filepath.Join(dir, "Brent_Crude.csv")

	err := WriteDaily(w, path, &domain.Series{Name: "Brent_Crude", Columns: loader.DailySchema.Columns})
	assert.True(t, errors.Is(err, apperrors.ErrEmptyInput))
	assert.NoFileExists(t, path)

	s := &domain.Series{
		Name:    "Brent_Crude",
		Columns: loader.DailySchema.Columns,
		Observations: []domain.Observation{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Values: []float64{77, 78, 76, 77, 100, 0.01}},
		},
	}
	require.NoError(t, WriteDaily(w, path, s))

	back, err := loader.Load(path, loader.DailySchema)
	require.NoError(t, err)
	assert.Equal(t, "Brent_Crude", back.Name)
	assert.Equal(t, 77.0, back.Observations[0].Values[0])
}
