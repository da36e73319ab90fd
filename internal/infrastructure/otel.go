package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"weeklypanel/internal/config"
	"weeklypanel/pkg/contracts"
)

const (
	ServiceVersion = contracts.Version
	MeterName      = "weeklypanel"
)

// Telemetry holds the metric and trace providers of one process
type Telemetry struct {
	Registry       *prometheus.Registry
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider trace.TracerProvider
	Tracer         trace.Tracer
	Metrics        *Metrics

	cfg       config.TelemetryConfig
	sdkTracer *sdktrace.TracerProvider
	traceOut  io.Closer
	logger    *slog.Logger
}

// Metrics are the pipeline instruments
type Metrics struct {
	StageDuration metric.Float64Histogram
	Rows          metric.Int64Counter
	Failures      metric.Int64Counter
	FetchRequests metric.Int64Counter
	PanelRows     metric.Int64Gauge
	HTTPRequests  metric.Int64Counter
	HTTPDuration  metric.Float64Histogram
}

// InitializeTelemetry builds the providers. Metrics always go to a private
// Prometheus registry; spans are exported to stdout or TraceFile only when
// tracing is enabled.
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = MeterName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	t := &Telemetry{
		Registry: prometheus.NewRegistry(),
		cfg:      cfg,
		logger:   logger,
	}

	// go_* and process_* series
	t.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(t.MeterProvider)

	if err := t.initializeTracing(res); err != nil {
		return nil, err
	}

	meter := t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	if t.Metrics, err = createMetrics(meter); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.Tracing))
	return t, nil
}

func (t *Telemetry) initializeTracing(res *resource.Resource) error {
	if !t.cfg.Tracing {
		t.TracerProvider = noop.NewTracerProvider()
		t.Tracer = t.TracerProvider.Tracer(MeterName)
		return nil
	}

	var out io.Writer = stdout
	if t.cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(t.cfg.TraceFile), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.Create(t.cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		t.traceOut = f
		out = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}
	t.sdkTracer = sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	t.TracerProvider = t.sdkTracer
	t.Tracer = t.sdkTracer.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	otel.SetTracerProvider(t.sdkTracer)
	return nil
}

func createMetrics(meter metric.Meter) (*Metrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of pipeline stages"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rows, err := meter.Int64Counter(
		"pipeline_rows_total",
		metric.WithDescription("Rows produced per stage and series"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"pipeline_failures_total",
		metric.WithDescription("Failed pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	fetches, err := meter.Int64Counter(
		"fetch_requests_total",
		metric.WithDescription("Chart downloads by symbol and outcome"),
	)
	if err != nil {
		return nil, err
	}

	panelRows, err := meter.Int64Gauge(
		"panel_rows",
		metric.WithDescription("Rows in the last aligned panel"),
	)
	if err != nil {
		return nil, err
	}

	httpRequests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Served requests by route and status"),
	)
	if err != nil {
		return nil, err
	}

	httpDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Request handling time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		HTTPRequests:  httpRequests,
		HTTPDuration:  httpDuration,
		StageDuration: stageDuration,
		Rows:          rows,
		Failures:      failures,
		FetchRequests: fetches,
		PanelRows:     panelRows,
	}, nil
}

// StartStage opens a span for a pipeline stage. The returned function ends
// it, recording the duration and, when err is non-nil, a failure.
func (t *Telemetry) StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := t.Tracer.Start(ctx, stage, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		set := metric.WithAttributes(append([]attribute.KeyValue{attribute.String("stage", stage)}, attrs...)...)
		t.Metrics.StageDuration.Record(ctx, time.Since(start).Seconds(), set)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.Metrics.Failures.Add(ctx, 1, set)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// AddRows counts rows produced by a stage for one series
func (t *Telemetry) AddRows(ctx context.Context, stage, series string, n int) {
	t.Metrics.Rows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("series", series),
	))
}

// MetricsHandler serves the registry in the Prometheus exposition format
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// Shutdown writes the metrics textfile when configured, then flushes and
// closes the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if path := t.cfg.MetricsTextfile; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		} else if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	if t.sdkTracer != nil {
		if err := t.sdkTracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	t.logger.Debug("Telemetry shutdown complete")
	return nil
}

// TraceIDFromContext returns the active span's trace ID, or ""
func TraceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
