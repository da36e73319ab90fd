package http

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weeklypanel/internal/config"
	"weeklypanel/internal/infrastructure"
	"weeklypanel/internal/pipeline"
	"weeklypanel/internal/regression"
	"weeklypanel/internal/shared/testutil"
	"weeklypanel/pkg/contracts/domain"
)

// MockResultSource is a mock implementation of ResultSource
type MockResultSource struct {
	mock.Mock
}

func (m *MockResultSource) Latest() (*pipeline.Result, bool) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*pipeline.Result), args.Bool(1)
}

func week(n int) domain.WeeklyKey {
	return domain.WeeklyKey{Year: 2024, Week: n}
}

func sampleResult(t *testing.T) *pipeline.Result {
	t.Helper()
	ws := &domain.WeeklySeries{
		Name:    "Aker_BP",
		Class:   domain.DailyAggregate,
		Columns: []string{"Close", "Log_Returns"},
	}
	pn := &domain.Panel{Columns: []string{"y", "x"}}
	y := []float64{2, 4, 5, 4, 5}
	for i := range y {
		ret := 0.01 * float64(i)
		if i == 0 {
			ret = math.NaN()
		}
		ws.Rows = append(ws.Rows, domain.WeeklyRow{Key: week(i + 1), At: week(i + 1).Anchor(), Values: []float64{100 + y[i], ret}})
		pn.Rows = append(pn.Rows, domain.PanelRow{Key: week(i + 1), Values: []float64{y[i], float64(i + 1)}})
	}

	m, err := regression.OLS("y", y, []string{"x"}, [][]float64{{1, 2, 3, 4, 5}})
	require.NoError(t, err)
	return &pipeline.Result{
		RunID:  "run-42",
		Weekly: []*domain.WeeklySeries{ws},
		Panel:  pn,
		Regression: &regression.Result{
			Model:        m,
			VIF:          []regression.VIF{{Name: "x", Value: 1}},
			JarqueBera:   regression.JarqueBeraTest(m.Residuals),
			DurbinWatson: regression.DurbinWatson(m.Residuals),
			Stationarity: []regression.ADFResult{{
				Column: "y", Statistic: -4.2, PValue: math.NaN(),
				Critical: map[string]float64{"5%": -2.86},
			}},
		},
		Finished: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(t *testing.T, src ResultSource) (http.Handler, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return NewRouter(src, nil, logger), logs
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestResultHandler_Routes(t *testing.T) {
	src := new(MockResultSource)
	src.On("Latest").Return(sampleResult(t), true)
	h, _ := newTestRouter(t, src)

	tests := []struct {
		name         string
		path         string
		expectedCode int
		expectedBody string
	}{
		{"list series", "/api/series", http.StatusOK, `"weeks":5`},
		{"one series", "/api/series/Aker_BP", http.StatusOK, `"week":"2024-01"`},
		{"unknown series", "/api/series/Nope", http.StatusNotFound, `"NOT_FOUND"`},
		{"panel", "/api/panel", http.StatusOK, `"columns":["y","x"]`},
		{"panel window", "/api/panel?from=2024-02&to=2024-03", http.StatusOK, `"weeks":2`},
		{"bad window", "/api/panel?from=2024-99", http.StatusUnprocessableEntity, `"VALIDATION"`},
		{"inverted window", "/api/panel?from=2024-04&to=2024-02", http.StatusUnprocessableEntity, `"VALIDATION"`},
		{"regression", "/api/regression", http.StatusOK, `"dependent":"y"`},
		{"health", "/healthz", http.StatusOK, `"run_id":"run-42"`},
		{"unknown route", "/api/nothing", http.StatusNotFound, `"NOT_FOUND"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestGetSeries_EncodesMissingAsNull(t *testing.T) {
	src := new(MockResultSource)
	src.On("Latest").Return(sampleResult(t), true)
	h, _ := newTestRouter(t, src)

	var body SeriesResponse
	decode(t, get(t, h, "/api/series/Aker_BP?to=2024-02"), &body)

	require.Len(t, body.Rows, 2)
	assert.Equal(t, "2024-01-01", body.Rows[0].Anchor)
	assert.Empty(t, body.Rows[0].At, "at equals the anchor")
	assert.Nil(t, body.Rows[0].Values[1])
	require.NotNil(t, body.Rows[1].Values[1])
	assert.InDelta(t, 0.01, *body.Rows[1].Values[1], 1e-12)
	assert.Equal(t, 5, body.Weeks, "summary counts the whole series")
}

func TestGetRegression(t *testing.T) {
	src := new(MockResultSource)
	src.On("Latest").Return(sampleResult(t), true)
	h, _ := newTestRouter(t, src)

	var body RegressionResponse
	decode(t, get(t, h, "/api/regression"), &body)

	assert.Equal(t, 5, body.Model.N)
	require.Len(t, body.Model.Coefficients, 2)
	assert.InDelta(t, 0.6, *body.Model.Coefficients[1].Estimate, 1e-9)
	assert.InDelta(t, 1.0, *body.VIF["x"], 1e-12)
	require.Len(t, body.Stationarity, 1)
	assert.Nil(t, body.Stationarity[0].P)
	assert.False(t, body.Stationarity[0].Stationary)
	assert.Nil(t, body.Endogeneity)
	assert.Equal(t, 0.05, body.Significance)
}

func TestResultHandler_NoRunYet(t *testing.T) {
	src := new(MockResultSource)
	src.On("Latest").Return(nil, false)
	h, logs := newTestRouter(t, src)

	for _, path := range []string{"/api/series", "/api/panel", "/api/regression"} {
		rec := get(t, h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"EMPTY_INPUT"`)
	}

	var health HealthResponse
	decode(t, get(t, h, "/healthz"), &health)
	assert.Equal(t, "starting", health.Status)
	assert.True(t, logs.ContainsMessage("request failed"))
	src.AssertExpectations(t)
}

func TestParseWindow_ReportsFromFirst(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/panel?from=2024-99&to=2024-77", nil)
		_, err := parseWindow(r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid from week "2024-99"`)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/panel?from=2024-02&to=bad", nil)
	_, err := parseWindow(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid to week "bad"`)
}

func TestGetRegression_NotConfigured(t *testing.T) {
	res := sampleResult(t)
	res.Regression = nil
	src := new(MockResultSource)
	src.On("Latest").Return(res, true)
	h, _ := newTestRouter(t, src)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/regression").Code)
}

func TestRouter_MetricsAndHeaders(t *testing.T) {
	tel, err := infrastructure.InitializeTelemetry(config.TelemetryConfig{ServiceName: "test"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { tel.Shutdown(context.Background()) })

	snap := NewSnapshot()
	snap.Store(sampleResult(t))
	logger, _ := testutil.NewTestLogger(t)
	h := NewRouter(snap, tel, logger)

	rec := get(t, h, "/api/panel")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot()
	_, ok := s.Latest()
	assert.False(t, ok)

	res := &pipeline.Result{RunID: "a"}
	s.Store(res)
	got, ok := s.Latest()
	assert.True(t, ok)
	assert.Same(t, res, got)
}

func TestServer_ServeUntilCancelled(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	snap := NewSnapshot()
	snap.Store(sampleResult(t))
	srv := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, NewRouter(snap, nil, logger), logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, logs.ContainsMessage("server_stopped"))
}

func TestServer_ListenError(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	srv := NewServer(config.ServerConfig{Addr: "256.0.0.1:bad"}, http.NotFoundHandler(), logger)
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "NETWORK"))
}
