package domain

import "fmt"

// IssueKind classifies a data-quality problem found while enriching rows.
type IssueKind string

const (
	IssueNonNumericEstablishments IssueKind = "non_numeric_establishments"
	IssueNonNumericMidpoint       IssueKind = "non_numeric_midpoint"
	IssueMissingMidpoint          IssueKind = "missing_midpoint"
	IssueMissingSector            IssueKind = "missing_sector"
)

// DataQualityIssue is attached to the row it concerns. It never aborts a run.
type DataQualityIssue struct {
	Kind    IssueKind `json:"kind"`
	Zipcode string    `json:"zipcode"`
	NAICS   string    `json:"naics"`
	Value   string    `json:"value,omitempty"`
	Detail  string    `json:"detail"`
}

func (i DataQualityIssue) String() string {
	return fmt.Sprintf("%s: zip=%s naics=%s value=%q: %s", i.Kind, i.Zipcode, i.NAICS, i.Value, i.Detail)
}

// EnrichedRecord is an EstablishmentRecord joined with reference data.
// Numeric fields are NaN when the source value was missing or unparsable.
type EnrichedRecord struct {
	EstablishmentRecord

	EstablishmentCount float64 `json:"establishment_count"`
	Midpoint           float64 `json:"midpoint"`
	EmploymentEstimate float64 `json:"employment_estimate"`

	// MarineSector is only set on Marine Economy rows; empty means the
	// sector join found nothing.
	MarineSector string `json:"marine_sector,omitempty"`

	Issues []DataQualityIssue `json:"issues,omitempty"`
}

// HasSector reports whether the sector join produced a label.
func (r EnrichedRecord) HasSector() bool {
	return r.MarineSector != ""
}

// TotalEconomyColumns is the column order of the TotalEconomy_Data sheet.
func TotalEconomyColumns() []string {
	return append(EstablishmentColumns(), ColMidpoint, ColEmploymentEstimate)
}

// MarineEconomyColumns is the column order of the MarineSectors_Data sheet.
func MarineEconomyColumns() []string {
	return append(TotalEconomyColumns(), ColMarineSector)
}

// Economy holds the two enriched datasets of a run.
type Economy struct {
	Total  []EnrichedRecord   `json:"total"`
	Marine []EnrichedRecord   `json:"marine"`
	Issues []DataQualityIssue `json:"issues,omitempty"`
}
