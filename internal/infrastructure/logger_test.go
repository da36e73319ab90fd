package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"weeklypanel/internal/config"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func decodeLines(t *testing.T, data string) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log output is not JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger_BothOutputs(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	buf := captureStdout(t)
	logFile := filepath.Join(t.TempDir(), "logs", "panel.log")

	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "both", FilePath: logFile})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("resampled", "series", "Brent_Crude")
	logger.Debug("hidden")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(content))

	entries := decodeLines(t, string(content))
	require.Len(t, entries, 1)
	assert.Equal(t, "resampled", entries[0]["msg"])
	assert.Equal(t, "Brent_Crude", entries[0]["series"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()
	captureStdout(t)

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestInitializeLogger_BadFile(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := InitializeLogger(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "x.log")})
	assert.Error(t, err)
}

func TestRunHandler_InjectsRunAndTraceIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewRunHandler(slog.NewJSONHandler(buf, nil))).With("component", "pipeline")

	ctx := WithRunID(context.Background(), "run-42")
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(ctx, "align")
	logger.InfoContext(ctx, "aligned")
	span.End()

	logger.Info("no context")

	entries := decodeLines(t, buf.String())
	require.Len(t, entries, 2)
	assert.Equal(t, "run-42", entries[0]["run_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["trace_id"])
	assert.Equal(t, "pipeline", entries[0]["component"])
	assert.NotContains(t, entries[1], "run_id")
	assert.NotContains(t, entries[1], "trace_id")
}

func TestRunID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunID(ctx))

	ctx = EnsureRunID(ctx)
	id := RunID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, RunID(EnsureRunID(ctx)), "existing run ID is kept")
	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("chatty"))
}
