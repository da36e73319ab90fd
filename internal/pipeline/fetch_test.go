package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "weeklypanel/internal/errors"
	"weeklypanel/internal/loader"
	"weeklypanel/pkg/contracts/domain"
)

type fakeDownloader struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDownloader) Daily(_ context.Context, name, symbol string, start, end time.Time) (*domain.Series, error) {
	f.calls = append(f.calls, symbol)
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	s := &domain.Series{Name: name, Columns: loader.DailySchema.Columns}
	closes := []float64{100, 101, 99}
	for i, c := range closes {
		ret := math.NaN()
		if i > 0 {
			ret = math.Log(c / closes[i-1])
		}
		s.Observations = append(s.Observations, domain.Observation{
			Date:   start.AddDate(0, 0, i),
			Values: []float64{c, c + 1, c - 1, c, 1000, ret},
		})
	}
	return s, nil
}

func TestFetch(t *testing.T) {
	cfg := fixture(t)
	p, logs := newPipeline(t, cfg)
	d := &fakeDownloader{fail: map[string]error{
		"BZ=F": apperrors.NewNetworkError("chart request failed", nil),
	}}

	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	err := p.Fetch(context.Background(), d, now)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork), "got %v", err)
	assert.Contains(t, err.Error(), "Brent_Crude")
	assert.NotContains(t, err.Error(), "Aker_BP")
	assert.Equal(t, []string{"AKRBP.OL", "BZ=F"}, d.calls, "series without a symbol are skipped")

	s, err := loader.Load(cfg.InputPath(cfg.Series[0]), loader.DailySchema)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	assert.True(t, logs.ContainsMessage("fetch_failed"))
	assert.True(t, logs.ContainsMessage("fetch_summary"))
}

func TestFetch_AllSucceed(t *testing.T) {
	cfg := fixture(t)
	p, _ := newPipeline(t, cfg)

	require.NoError(t, p.Fetch(context.Background(), &fakeDownloader{}, time.Now()))
}

func TestFetch_CancelledContext(t *testing.T) {
	cfg := fixture(t)
	p, _ := newPipeline(t, cfg)
	d := &fakeDownloader{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Fetch(ctx, d, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.calls)
}
