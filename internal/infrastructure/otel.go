package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
)

// InstrumentationName scopes the tracer and meter of this module.
const InstrumentationName = "github.com/NOAA-OCM/LocalMarineEconomy"

// Telemetry holds the trace and metric providers of one run. Spans are
// written as JSON to the trace file; metrics are gathered from a private
// Prometheus registry and written as a textfile on Shutdown.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *PipelineMetrics

	registry    *promclient.Registry
	traceFile   *os.File
	metricsFile string
	logger      *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics as configured. With both
// disabled the returned Telemetry uses the global no-op providers, so
// callers never need to check for nil instruments.
func InitializeTelemetry(cfg config.TelemetryConfig, version string, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	t := &Telemetry{logger: logger, metricsFile: cfg.MetricsFile}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	if cfg.EnableTracing {
		if err := t.initializeTracing(cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.EnableMetrics {
		if err := t.initializeMetrics(res, version); err != nil {
			t.closeTraceFile()
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	if t.Tracer == nil {
		t.Tracer = otel.Tracer(InstrumentationName)
	}
	if t.Meter == nil {
		t.Meter = otel.Meter(InstrumentationName)
	}

	metrics, err := CreatePipelineMetrics(t.Meter)
	if err != nil {
		t.closeTraceFile()
		return nil, err
	}
	t.Metrics = metrics

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))
	return t, nil
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	file, err := os.Create(cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	t.traceFile = file
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(InstrumentationName)
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource, version string) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	t.registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(version))
	return nil
}

// Shutdown flushes spans to the trace file and writes the metrics textfile.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if err := t.closeTraceFile(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close trace file: %w", err))
	}

	if t.registry != nil {
		if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("failed to create metrics directory: %w", err))
		} else if err := promclient.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		} else {
			t.logger.InfoContext(ctx, "Metrics written", slog.String("path", t.metricsFile))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (t *Telemetry) closeTraceFile() error {
	if t.traceFile == nil {
		return nil
	}
	err := t.traceFile.Close()
	t.traceFile = nil
	return err
}

// PipelineMetrics are the run-level instruments.
type PipelineMetrics struct {
	RunsTotal         metric.Int64Counter
	RunDuration       metric.Float64Histogram
	StepDuration      metric.Float64Histogram
	ZipFetchesTotal   metric.Int64Counter
	FetchAttempts     metric.Int64Counter
	RowsTotal         metric.Int64Counter
	DataQualityIssues metric.Int64Counter
}

// CreatePipelineMetrics registers the pipeline instruments on meter. Names
// use underscores so the textfile stays in the classic exposition format.
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var (
		m   PipelineMetrics
		err error
	)

	if m.RunsTotal, err = meter.Int64Counter(
		"marine_economy_runs",
		metric.WithDescription("Pipeline runs by outcome"),
	); err != nil {
		return nil, err
	}
	if m.RunDuration, err = meter.Float64Histogram(
		"marine_economy_run_duration",
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.StepDuration, err = meter.Float64Histogram(
		"marine_economy_step_duration",
		metric.WithDescription("Wall time of a pipeline step"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ZipFetchesTotal, err = meter.Int64Counter(
		"marine_economy_zip_fetches",
		metric.WithDescription("Zip code retrievals by outcome"),
	); err != nil {
		return nil, err
	}
	if m.FetchAttempts, err = meter.Int64Counter(
		"marine_economy_fetch_attempts",
		metric.WithDescription("HTTP attempts made against the statistics API, retries included"),
	); err != nil {
		return nil, err
	}
	if m.RowsTotal, err = meter.Int64Counter(
		"marine_economy_rows",
		metric.WithDescription("Rows produced per pipeline stage"),
	); err != nil {
		return nil, err
	}
	if m.DataQualityIssues, err = meter.Int64Counter(
		"marine_economy_data_quality_issues",
		metric.WithDescription("Data quality issues by kind"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordRun records the outcome and duration of a run.
func (m *PipelineMetrics) RecordRun(ctx context.Context, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStep records the duration of one pipeline step.
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, duration time.Duration, err error) {
	m.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("success", err == nil),
	))
}

// RecordRows counts rows produced by a stage.
func (m *PipelineMetrics) RecordRows(ctx context.Context, stage string, n int) {
	m.RowsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFetches counts zip code outcomes and HTTP attempts.
func (m *PipelineMetrics) RecordFetches(ctx context.Context, succeeded, failed, attempts int) {
	m.ZipFetchesTotal.Add(ctx, int64(succeeded), metric.WithAttributes(attribute.String("outcome", "success")))
	m.ZipFetchesTotal.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "failure")))
	m.FetchAttempts.Add(ctx, int64(attempts))
}

// RecordIssue counts one data quality issue.
func (m *PipelineMetrics) RecordIssue(ctx context.Context, kind string) {
	m.DataQualityIssues.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordError marks the span in ctx as failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
