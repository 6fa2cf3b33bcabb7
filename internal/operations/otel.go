package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/infrastructure"
)

// OperationTracer instruments runs and their steps
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer from the run telemetry
func NewOperationTracer(tel *infrastructure.Telemetry) *OperationTracer {
	return &OperationTracer{
		tracer:  tel.Tracer,
		metrics: tel.Metrics,
	}
}

// TraceRun creates the root span of a run
func (ot *OperationTracer) TraceRun(ctx context.Context, runID string, study config.StudyConfig) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("study.year", study.Year),
			attribute.StringSlice("study.zip_codes", study.ZipCodes),
		),
	)
}

// TraceStep creates a span for one step
func (ot *OperationTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("pipeline.step.%s", stepID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// EndStep closes the step span in ctx and records the step duration
func (ot *OperationTracer) EndStep(ctx context.Context, stepID string, duration time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	ot.metrics.RecordStep(ctx, stepID, duration, err)
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordSummary adds the run counters to the metrics and to the run span
// in ctx
func (ot *OperationTracer) RecordSummary(ctx context.Context, s *Summary, err error) {
	span := trace.SpanFromContext(ctx)
	ot.metrics.RecordRun(ctx, s.Duration, err)
	ot.metrics.RecordFetches(ctx, len(s.SucceededZips), len(s.FailedZips), s.FetchAttempts)
	ot.metrics.RecordRows(ctx, "fetched", s.RowsFetched)
	ot.metrics.RecordRows(ctx, "cleaned", s.Clean.Kept)
	ot.metrics.RecordRows(ctx, "total_economy", s.TotalRows)
	ot.metrics.RecordRows(ctx, "marine_economy", s.MarineRows)
	for _, issue := range s.Issues {
		ot.metrics.RecordIssue(ctx, string(issue.Kind))
	}

	span.SetAttributes(
		attribute.Int("rows.fetched", s.RowsFetched),
		attribute.Int("rows.marine", s.MarineRows),
		attribute.Int("issues", len(s.Issues)),
		attribute.String("output.path", s.OutputPath),
	)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return
	}
	span.SetStatus(codes.Ok, "")
}
