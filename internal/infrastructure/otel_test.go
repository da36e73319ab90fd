package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"weeklypanel/internal/config"
)

func findFamily(t *testing.T, tel *Telemetry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := tel.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not gathered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestInitializeTelemetry_MetricsOnly(t *testing.T) {
	tel, err := InitializeTelemetry(config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	assert.NotNil(t, tel.Tracer)
	assert.Nil(t, tel.sdkTracer, "tracing is off by default")

	ctx := context.Background()
	tel.AddRows(ctx, "resample", "Brent_Crude", 52)
	tel.AddRows(ctx, "resample", "Brent_Crude", 1)
	tel.Metrics.PanelRows.Record(ctx, 40)

	rows := findFamily(t, tel, "pipeline_rows_total")
	require.Len(t, rows.GetMetric(), 1)
	assert.Equal(t, 53.0, rows.GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, "Brent_Crude", labelValue(rows.GetMetric()[0], "series"))

	gauge := findFamily(t, tel, "panel_rows")
	assert.Equal(t, 40.0, gauge.GetMetric()[0].GetGauge().GetValue())

	findFamily(t, tel, "go_goroutines")
}

func TestStartStage_RecordsDurationAndFailures(t *testing.T) {
	tel, err := InitializeTelemetry(config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	_, end := tel.StartStage(context.Background(), "align")
	end(nil)
	_, end = tel.StartStage(context.Background(), "regress", attribute.String("dependent", "y"))
	end(errors.New("singular"))

	hist := findFamily(t, tel, "pipeline_stage_duration_seconds")
	assert.Len(t, hist.GetMetric(), 2)
	for _, m := range hist.GetMetric() {
		assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	}

	failures := findFamily(t, tel, "pipeline_failures_total")
	require.Len(t, failures.GetMetric(), 1)
	assert.Equal(t, "regress", labelValue(failures.GetMetric()[0], "stage"))
}

func TestTelemetry_TracingToFile(t *testing.T) {
	dir := t.TempDir()
	traceFile := filepath.Join(dir, "traces", "run.json")

	tel, err := InitializeTelemetry(config.TelemetryConfig{Tracing: true, TraceFile: traceFile, ServiceName: "test"}, nil)
	require.NoError(t, err)

	ctx, end := tel.StartStage(context.Background(), "resample")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	end(nil)
	require.NoError(t, tel.Shutdown(context.Background()))

	data, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"resample"`)
}

func TestTelemetry_MetricsTextfileAndHandler(t *testing.T) {
	textfile := filepath.Join(t.TempDir(), "metrics", "panel.prom")
	tel, err := InitializeTelemetry(config.TelemetryConfig{MetricsTextfile: textfile}, nil)
	require.NoError(t, err)

	tel.AddRows(context.Background(), "align", "panel", 3)

	srv := httptest.NewServer(tel.MetricsHandler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "pipeline_rows_total")

	require.NoError(t, tel.Shutdown(context.Background()))
	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pipeline_rows_total{`)
}
