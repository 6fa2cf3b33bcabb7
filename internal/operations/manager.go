package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/census"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/dataprocessing"
	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/exporter"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/infrastructure"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/reference"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Fetcher retrieves the establishment tables of a set of zip codes.
type Fetcher interface {
	FetchAll(ctx context.Context, zips []string, year, wildcard string) (domain.RawTable, *census.FetchReport, error)
}

// ReportWriter writes the report workbook and returns its path.
type ReportWriter interface {
	Write(ctx context.Context, economy *domain.Economy, tables *domain.AnalysisTables) (string, error)
}

// TableWriter writes the analysis tables as separate files.
type TableWriter interface {
	WriteTables(ctx context.Context, tables *domain.AnalysisTables) ([]string, error)
}

// Deps are the collaborators of a Manager. CSVWriter is optional; a nil
// Telemetry uses the global no-op providers.
type Deps struct {
	Fetcher   Fetcher
	Reference *reference.Data
	Midpoints reference.Midpoints
	Writer    ReportWriter
	CSVWriter TableWriter
	Telemetry *infrastructure.Telemetry
}

// NewDeps wires the production collaborators described by cfg.
func NewDeps(cfg *config.Config, tel *infrastructure.Telemetry, logger *slog.Logger) (Deps, error) {
	ref, err := loadReference(cfg.Reference)
	if err != nil {
		return Deps{}, err
	}
	midpoints, err := reference.NewMidpoints(cfg.Reference.Midpoints)
	if err != nil {
		return Deps{}, apperrors.NewConfigError("invalid midpoints", err)
	}

	deps := Deps{
		Fetcher:   census.NewClient(cfg.Census, logger),
		Reference: ref,
		Midpoints: midpoints,
		Writer:    exporter.NewWorkbookWriter(cfg.Report, logger),
		Telemetry: tel,
	}
	if cfg.Report.CSVDir != "" {
		deps.CSVWriter = exporter.NewCSVWriter(cfg.Report, logger)
	}
	return deps, nil
}

func loadReference(cfg config.ReferenceConfig) (*reference.Data, error) {
	if cfg.CrosswalkFile == "" {
		ref, err := reference.Load()
		if err != nil {
			return nil, apperrors.NewConfigError("failed to load embedded crosswalk", err)
		}
		return ref, nil
	}
	ref, err := reference.LoadFile(cfg.CrosswalkFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load crosswalk file", err).
			WithContext("path", cfg.CrosswalkFile)
	}
	return ref, nil
}

// Manager runs the report pipeline.
type Manager struct {
	cfg      *config.Config
	deps     Deps
	registry *Registry
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager registers the pipeline steps. A nil logger uses slog.Default().
func NewManager(cfg *config.Config, deps Deps, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, apperrors.NewConfigError("no configuration", nil)
	}
	if deps.Fetcher == nil || deps.Writer == nil {
		return nil, apperrors.NewConfigError("fetcher and workbook writer are required", nil)
	}
	if deps.Reference == nil || deps.Midpoints.Len() == 0 {
		return nil, apperrors.NewConfigError("reference data and midpoints are required", nil)
	}

	tel := deps.Telemetry
	if tel == nil {
		var err error
		tel, err = infrastructure.InitializeTelemetry(config.TelemetryConfig{}, contracts.Version, logger)
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		cfg:      cfg,
		deps:     deps,
		registry: NewRegistry(),
		tracer:   NewOperationTracer(tel),
		logger:   logger.With(slog.String("component", "operations")),
	}

	steps := []Step{
		NewFetchStep(deps.Fetcher, cfg.Study),
		NewCleanStep(m.logger),
		NewEnrichStep(dataprocessing.NewEnricher(deps.Reference, deps.Midpoints, logger)),
		NewAggregateStep(dataprocessing.NewAggregator(cfg.Study.Year, logger)),
		NewWriteStep(deps.Writer),
	}
	if deps.CSVWriter != nil {
		steps = append(steps, NewExportCSVStep(deps.CSVWriter))
	}
	for _, step := range steps {
		if err := m.registry.Register(step); err != nil {
			return nil, NewFatalError("failed to register step", err)
		}
	}

	return m, nil
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Run executes every step in order and returns the run summary. The
// summary is returned even when the run fails.
func (m *Manager) Run(ctx context.Context) (*Summary, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	state := NewOperationState(infrastructure.GetRunID(ctx))

	ctx, span := m.tracer.TraceRun(ctx, state.ID, m.cfg.Study)
	defer span.End()

	state.Start()
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = NewFatalError("failed to order steps", err)
		state.Fail(err)
		summary := m.summarize(state)
		m.tracer.RecordSummary(ctx, summary, err)
		return summary, err
	}
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	m.logger.InfoContext(ctx, "pipeline started",
		slog.Time("start_time", state.StartTime),
		slog.String("output_path", m.cfg.Report.OutputPath()),
		slog.Any("zip_codes", m.cfg.Study.ZipCodes),
		slog.String("year", m.cfg.Study.Year),
		slog.String("reference_version", m.deps.Reference.Version))

	if unmapped := m.deps.Reference.Unmapped(); len(unmapped) > 0 {
		m.logger.WarnContext(ctx, "marine industries without a sector mapping",
			slog.Any("naics", unmapped),
			slog.String("reference_version", m.deps.Reference.Version))
	}

	err = m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	summary := m.summarize(state)
	m.tracer.RecordSummary(ctx, summary, err)

	if err != nil {
		m.logger.ErrorContext(ctx, "pipeline failed",
			slog.String("step", FailedStep(err)),
			slog.String("error", err.Error()),
			slog.Any("failed_zips", summary.FailedZips),
			slog.Duration("duration", summary.Duration))
		return summary, err
	}

	if issuesErr := summary.IssuesError(); issuesErr != nil {
		m.logger.WarnContext(ctx, "pipeline completed with data quality issues",
			slog.String("error", issuesErr.Error()))
	}

	m.logger.InfoContext(ctx, "pipeline completed",
		slog.Time("end_time", summary.EndTime),
		slog.Duration("duration", summary.Duration),
		slog.String("output_path", summary.OutputPath),
		slog.Int("total_rows", summary.TotalRows),
		slog.Int("marine_rows", summary.MarineRows),
		slog.Int("issues", len(summary.Issues)))
	return summary, nil
}

// executeSequential executes steps one by one and stops at the first
// failure. Every step after a failure is skipped.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, steps[i:], "run cancelled")
			return NewCancellationError(step.ID(), err)
		}

		m.logger.InfoContext(ctx, "executing step",
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStep runs one step inside its own span.
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError("step state not found", fmt.Errorf("step %s", step.ID()))
	}

	for _, dep := range step.GetDependencies() {
		if ds := state.GetStage(dep); ds == nil || ds.GetStatus() != StepStatusCompleted {
			err := NewDependencyError(step.ID(), dep)
			stepState.Skip(err.Error())
			return err
		}
	}

	if err := step.Validate(state); err != nil {
		opErr := NewValidationError(step.ID(), err)
		stepState.Fail(opErr)
		return opErr
	}

	stepCtx, _ := m.tracer.TraceStep(ctx, state.ID, step.ID())
	stepState.Start()
	start := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	m.tracer.EndStep(stepCtx, step.ID(), duration, err)

	if err != nil {
		opErr := NewExecutionError(step.ID(), err)
		if ctx.Err() != nil {
			opErr = NewCancellationError(step.ID(), err)
		}
		stepState.Fail(opErr)
		m.logger.ErrorContext(ctx, "step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return opErr
	}

	stepState.Complete(m.stepMessage(step.ID(), state))
	m.logger.InfoContext(ctx, "step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// stepMessage describes what a completed step produced.
func (m *Manager) stepMessage(stepID string, state *OperationState) string {
	switch stepID {
	case StepIDFetch:
		if state.FetchReport == nil {
			return fmt.Sprintf("%d rows", len(state.Raw))
		}
		return fmt.Sprintf("%d rows from %d zip codes", len(state.Raw), len(state.FetchReport.Succeeded))
	case StepIDClean:
		return fmt.Sprintf("%d of %d rows kept", state.Clean.Stats.Kept, state.Clean.Stats.Input)
	case StepIDEnrich:
		return fmt.Sprintf("%d total rows, %d marine rows", len(state.Economy.Total), len(state.Economy.Marine))
	case StepIDAggregate:
		return fmt.Sprintf("%d comparison rows", len(state.Tables.Comparison))
	case StepIDWrite:
		return state.OutputPath
	case StepIDExportCSV:
		return fmt.Sprintf("%d files", len(state.CSVPaths))
	}
	return ""
}

// summarize builds the run summary from whatever the steps produced.
func (m *Manager) summarize(state *OperationState) *Summary {
	end := time.Now()
	if state.EndTime != nil {
		end = *state.EndTime
	}

	s := &Summary{
		RunID:            state.ID,
		Status:           state.GetStatus(),
		StartTime:        state.StartTime,
		EndTime:          end,
		Duration:         end.Sub(state.StartTime),
		Year:             m.cfg.Study.Year,
		ZipCodes:         append([]string(nil), m.cfg.Study.ZipCodes...),
		ReferenceVersion: m.deps.Reference.Version,
		OutputPath:       state.OutputPath,
		CSVPaths:         state.CSVPaths,
		Steps:            state.StepResults(),
	}

	if r := state.FetchReport; r != nil {
		s.RowsFetched = r.Rows
		s.FetchAttempts = r.Attempts
		s.SucceededZips = r.Succeeded
		s.FailedZips = r.FailedZips()
	}
	if state.Clean != nil {
		s.Clean = state.Clean.Stats
	}
	if state.Economy != nil {
		s.TotalRows = len(state.Economy.Total)
		s.MarineRows = len(state.Economy.Marine)
		s.Issues = state.Economy.Issues
	}
	return s
}
