package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/dataprocessing"
)

// FetchStep retrieves the establishment table of every study zip code.
type FetchStep struct {
	stepInfo
	fetcher Fetcher
	study   config.StudyConfig
}

// NewFetchStep creates the retrieval step
func NewFetchStep(fetcher Fetcher, study config.StudyConfig) *FetchStep {
	return &FetchStep{
		stepInfo: newStepInfo(StepIDFetch, StepNameFetch),
		fetcher:  fetcher,
		study:    study,
	}
}

func (s *FetchStep) Validate(state *OperationState) error {
	if s.fetcher == nil {
		return fmt.Errorf("no fetcher configured")
	}
	if len(s.study.ZipCodes) == 0 {
		return fmt.Errorf("no zip codes to fetch")
	}
	return nil
}

// Execute stores the fetch report even when the fetch fails, so the run
// summary can name the failed zip codes.
func (s *FetchStep) Execute(ctx context.Context, state *OperationState) error {
	raw, report, err := s.fetcher.FetchAll(ctx, s.study.ZipCodes, s.study.Year, s.study.IndustryWildcard)
	state.FetchReport = report
	if err != nil {
		return err
	}
	state.Raw = raw
	return nil
}

// CleanStep removes rollup, non-leaf and zero-establishment rows.
type CleanStep struct {
	stepInfo
	logger *slog.Logger
}

// NewCleanStep creates the cleaning step
func NewCleanStep(logger *slog.Logger) *CleanStep {
	return &CleanStep{
		stepInfo: newStepInfo(StepIDClean, StepNameClean, StepIDFetch),
		logger:   logger,
	}
}

func (s *CleanStep) Validate(state *OperationState) error {
	if state.Raw == nil {
		return fmt.Errorf("no fetched table")
	}
	return nil
}

func (s *CleanStep) Execute(ctx context.Context, state *OperationState) error {
	result := dataprocessing.Clean(state.Raw)
	state.Clean = &result

	s.logger.InfoContext(ctx, "table cleaned",
		slog.Int("input_rows", result.Stats.Input),
		slog.Int("dropped_all_establishments", result.Stats.DroppedAllEstab),
		slog.Int("dropped_industry_code", result.Stats.DroppedIndustryCode),
		slog.Int("dropped_zero_establishments", result.Stats.DroppedZeroEstab),
		slog.Int("kept_rows", result.Stats.Kept))
	return nil
}

// EnrichStep builds the Total and Marine Economy datasets.
type EnrichStep struct {
	stepInfo
	enricher *dataprocessing.Enricher
}

// NewEnrichStep creates the enrichment step
func NewEnrichStep(enricher *dataprocessing.Enricher) *EnrichStep {
	return &EnrichStep{
		stepInfo: newStepInfo(StepIDEnrich, StepNameEnrich, StepIDClean),
		enricher: enricher,
	}
}

func (s *EnrichStep) Validate(state *OperationState) error {
	if state.Clean == nil {
		return fmt.Errorf("no cleaned table")
	}
	return nil
}

func (s *EnrichStep) Execute(ctx context.Context, state *OperationState) error {
	economy, err := s.enricher.Enrich(ctx, state.Clean.Records)
	if err != nil {
		return err
	}
	state.Economy = economy
	return nil
}

// AggregateStep builds the five analysis tables.
type AggregateStep struct {
	stepInfo
	aggregator *dataprocessing.Aggregator
}

// NewAggregateStep creates the aggregation step
func NewAggregateStep(aggregator *dataprocessing.Aggregator) *AggregateStep {
	return &AggregateStep{
		stepInfo:   newStepInfo(StepIDAggregate, StepNameAggregate, StepIDEnrich),
		aggregator: aggregator,
	}
}

func (s *AggregateStep) Validate(state *OperationState) error {
	if state.Economy == nil {
		return fmt.Errorf("no enriched economy")
	}
	return nil
}

func (s *AggregateStep) Execute(ctx context.Context, state *OperationState) error {
	tables, err := s.aggregator.Aggregate(ctx, state.Economy)
	if err != nil {
		return err
	}
	state.Tables = tables
	return nil
}

// WriteStep writes the report workbook.
type WriteStep struct {
	stepInfo
	writer ReportWriter
}

// NewWriteStep creates the workbook output step
func NewWriteStep(writer ReportWriter) *WriteStep {
	return &WriteStep{
		stepInfo: newStepInfo(StepIDWrite, StepNameWrite, StepIDAggregate),
		writer:   writer,
	}
}

func (s *WriteStep) Validate(state *OperationState) error {
	if s.writer == nil {
		return fmt.Errorf("no workbook writer configured")
	}
	if state.Economy == nil || state.Tables == nil {
		return fmt.Errorf("no tables to write")
	}
	return nil
}

func (s *WriteStep) Execute(ctx context.Context, state *OperationState) error {
	path, err := s.writer.Write(ctx, state.Economy, state.Tables)
	if err != nil {
		return err
	}
	state.OutputPath = path
	return nil
}

// ExportCSVStep writes the analysis tables as CSV files. It runs after
// the workbook so a CSV failure never leaves a run without its workbook.
type ExportCSVStep struct {
	stepInfo
	writer TableWriter
}

// NewExportCSVStep creates the CSV export step
func NewExportCSVStep(writer TableWriter) *ExportCSVStep {
	return &ExportCSVStep{
		stepInfo: newStepInfo(StepIDExportCSV, StepNameExportCSV, StepIDWrite),
		writer:   writer,
	}
}

func (s *ExportCSVStep) Validate(state *OperationState) error {
	if s.writer == nil {
		return fmt.Errorf("no CSV writer configured")
	}
	if state.Tables == nil {
		return fmt.Errorf("no tables to export")
	}
	return nil
}

func (s *ExportCSVStep) Execute(ctx context.Context, state *OperationState) error {
	paths, err := s.writer.WriteTables(ctx, state.Tables)
	state.CSVPaths = paths
	return err
}
