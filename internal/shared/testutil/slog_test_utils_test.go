package testutil

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("component", "resample").Info("weekly", "rows", 52)
		logger.WithGroup("panel").Info("aligned", "rows", 40)

		require.Equal(t, 2, handler.Count())
		AssertLogContains(t, handler, slog.LevelInfo, "weekly")
		assert.True(t, handler.ContainsAttr("component", "resample"))
		assert.True(t, handler.ContainsAttr("panel.rows", int64(40)))
		AssertNoErrors(t, handler)
	})
}

func TestFixtures(t *testing.T) {
	days := BusinessDays(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 3)
	require.Len(t, days, 3)
	assert.Equal(t, time.Monday, days[1].Weekday())

	csv := DailyCSV(days, []float64{100, 110, 99})
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[1], ","), "first return is empty")
	assert.True(t, strings.HasPrefix(lines[2], "2024-01-08,110,"))

	months := MonthStarts(2023, time.November, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), months[2])
	assert.Equal(t, "Date,Rate\n2023-11-01,0.5\n", RateCSV(months[:1], []float64{0.5}))

	path := WriteFile(t, t.TempDir(), "nested/a.csv", "x")
	assert.FileExists(t, path)
}
