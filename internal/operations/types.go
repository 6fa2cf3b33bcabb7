package operations

import (
	"fmt"
	"slices"
	"time"

	apperrors "github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Step identifiers
const (
	StepIDFetch     = "fetch"
	StepIDClean     = "clean"
	StepIDEnrich    = "enrich"
	StepIDAggregate = "aggregate"
	StepIDWrite     = "write"
	StepIDExportCSV = "export_csv"
)

// Step names
const (
	StepNameFetch     = "Zip Code Retrieval"
	StepNameClean     = "Data Cleaning"
	StepNameEnrich    = "Economy Enrichment"
	StepNameAggregate = "Analysis Tables"
	StepNameWrite     = "Workbook Output"
	StepNameExportCSV = "CSV Export"
)

// Summary describes a finished run. A failed run still gets a Summary
// holding whatever the completed steps produced.
type Summary struct {
	RunID     string               `json:"run_id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   time.Time            `json:"end_time"`
	Duration  time.Duration        `json:"duration"`

	Year             string   `json:"year"`
	ZipCodes         []string `json:"zip_codes"`
	ReferenceVersion string   `json:"reference_version"`

	RowsFetched   int               `json:"rows_fetched"`
	FetchAttempts int               `json:"fetch_attempts"`
	SucceededZips []string          `json:"succeeded_zips,omitempty"`
	FailedZips    []string          `json:"failed_zips,omitempty"`
	Clean         domain.CleanStats `json:"clean"`
	TotalRows     int               `json:"total_rows"`
	MarineRows    int               `json:"marine_rows"`

	Issues     []domain.DataQualityIssue `json:"issues,omitempty"`
	OutputPath string                    `json:"output_path,omitempty"`
	CSVPaths   []string                  `json:"csv_paths,omitempty"`

	Steps []StepResult `json:"steps"`
}

// StepResult is the final state of one step.
type StepResult struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// IssueCounts tallies the data quality issues by kind.
func (s *Summary) IssueCounts() map[domain.IssueKind]int {
	counts := make(map[domain.IssueKind]int)
	for _, issue := range s.Issues {
		counts[issue.Kind]++
	}
	return counts
}

// IssuesError folds the data quality issues into one DATA_QUALITY error,
// or returns nil when there are none. Issues never fail a run; the error
// is for reporting.
func (s *Summary) IssuesError() error {
	if len(s.Issues) == 0 {
		return nil
	}
	counts := s.IssueCounts()
	kinds := make([]string, 0, len(counts))
	for kind, n := range counts {
		kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
	}
	slices.Sort(kinds)
	return apperrors.NewDataQualityError(
		fmt.Sprintf("%d rows with data quality issues", len(s.Issues)), nil,
	).WithContext("kinds", kinds).
		WithContext("example", s.Issues[0].String())
}

// Step returns the result of the step with the given ID.
func (s *Summary) Step(id string) (StepResult, bool) {
	for _, r := range s.Steps {
		if r.ID == id {
			return r, true
		}
	}
	return StepResult{}, false
}
