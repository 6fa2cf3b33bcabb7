package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
)

func TestTelemetry_Disabled(t *testing.T) {
	cfg := config.Default().Telemetry

	tel, err := InitializeTelemetry(cfg, "test", nil)
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)
	require.NotNil(t, tel.Metrics)
	assert.Nil(t, tel.TracerProvider)
	assert.Nil(t, tel.MeterProvider)

	// No-op instruments accept recordings.
	ctx, span := tel.Tracer.Start(context.Background(), "noop")
	tel.Metrics.RecordRun(ctx, time.Second, nil)
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTelemetry_WritesTraceAndMetricsFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Telemetry
	cfg.EnableTracing = true
	cfg.EnableMetrics = true
	cfg.TraceFile = filepath.Join(dir, "trace", "spans.json")
	cfg.MetricsFile = filepath.Join(dir, "metrics", "run.prom")

	tel, err := InitializeTelemetry(cfg, "1.0.0", nil)
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)

	ctx, span := tel.Tracer.Start(context.Background(), "pipeline.run")
	RecordError(ctx, errors.New("boom"))
	tel.Metrics.RecordRun(ctx, 2*time.Second, nil)
	tel.Metrics.RecordStep(ctx, "fetch", time.Second, nil)
	tel.Metrics.RecordRows(ctx, "fetched", 42)
	tel.Metrics.RecordFetches(ctx, 5, 1, 8)
	tel.Metrics.RecordIssue(ctx, "missing_midpoint")
	span.End()

	require.NoError(t, tel.Shutdown(context.Background()))

	spans, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	assert.Contains(t, string(spans), "pipeline.run")
	assert.Contains(t, string(spans), "boom")

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	text := string(metrics)
	assert.Contains(t, text, "marine_economy_runs_total")
	assert.Contains(t, text, "marine_economy_rows_total")
	assert.Contains(t, text, `stage="fetched"`)
	assert.Contains(t, text, "marine_economy_data_quality_issues_total")
	assert.Contains(t, text, "marine_economy_run_duration_seconds_bucket")
	assert.NotContains(t, text, `{"`, "metric names must not need quoting")
}

func TestCreatePipelineMetrics(t *testing.T) {
	tel, err := InitializeTelemetry(config.Default().Telemetry, "test", nil)
	require.NoError(t, err)

	m, err := CreatePipelineMetrics(tel.Meter)
	require.NoError(t, err)
	assert.NotNil(t, m.RunsTotal)
	assert.NotNil(t, m.StepDuration)
	assert.NotNil(t, m.DataQualityIssues)
}
