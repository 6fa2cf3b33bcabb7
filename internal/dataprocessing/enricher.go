package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/reference"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Enricher joins cleaned records with the reference tables.
type Enricher struct {
	ref       *reference.Data
	midpoints reference.Midpoints
	logger    *slog.Logger
}

// NewEnricher creates an enricher. A nil logger uses slog.Default().
func NewEnricher(ref *reference.Data, midpoints reference.Midpoints, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		ref:       ref,
		midpoints: midpoints,
		logger:    logger.With(slog.String("component", "enricher")),
	}
}

// Enrich builds the Total Economy dataset (every record, with midpoint and
// employment estimate) and the Marine Economy dataset (the marine subset,
// with sector labels). Problems with individual rows become issues on those
// rows; only a missing reference table or a cancelled context is an error.
func (e *Enricher) Enrich(ctx context.Context, records []domain.EstablishmentRecord) (*domain.Economy, error) {
	if e.ref == nil {
		return nil, errors.NewAppValidationError("enricher has no reference data")
	}
	if e.midpoints.Len() == 0 {
		return nil, errors.NewAppValidationError("enricher has no midpoints")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "creating Total Economy table", slog.Int("records", len(records)))

	economy := &domain.Economy{
		Total:  make([]domain.EnrichedRecord, 0, len(records)),
		Marine: []domain.EnrichedRecord{},
	}

	for _, rec := range records {
		total := e.enrichRecord(rec)
		economy.Total = append(economy.Total, total)
		economy.Issues = append(economy.Issues, total.Issues...)
	}

	e.logger.InfoContext(ctx, "creating Marine Economy table")

	for _, total := range economy.Total {
		if !e.ref.IsMarine(total.NAICS) {
			continue
		}
		marine := total
		marine.Issues = append([]domain.DataQualityIssue(nil), total.Issues...)
		if sector, ok := e.ref.Sector(total.NAICS); ok {
			marine.MarineSector = sector
		} else {
			issue := domain.DataQualityIssue{
				Kind:    domain.IssueMissingSector,
				Zipcode: total.Zipcode,
				NAICS:   total.NAICS,
				Detail:  fmt.Sprintf("marine industry has no sector in crosswalk %s", e.ref.Version),
			}
			marine.Issues = append(marine.Issues, issue)
			economy.Issues = append(economy.Issues, issue)
		}
		economy.Marine = append(economy.Marine, marine)
	}

	e.logIssues(ctx, economy.Issues)

	e.logger.InfoContext(ctx, "enrichment complete",
		slog.Int("total_rows", len(economy.Total)),
		slog.Int("marine_rows", len(economy.Marine)),
		slog.Int("issues", len(economy.Issues)))

	return economy, nil
}

func (e *Enricher) enrichRecord(rec domain.EstablishmentRecord) domain.EnrichedRecord {
	out := domain.EnrichedRecord{
		EstablishmentRecord: rec,
		EstablishmentCount:  math.NaN(),
		Midpoint:            math.NaN(),
		EmploymentEstimate:  math.NaN(),
	}

	if n, ok := parseNumber(rec.Establishments); ok {
		out.EstablishmentCount = n
	} else {
		out.Issues = append(out.Issues, domain.DataQualityIssue{
			Kind:    domain.IssueNonNumericEstablishments,
			Zipcode: rec.Zipcode,
			NAICS:   rec.NAICS,
			Value:   rec.Establishments,
			Detail:  "establishment count is not a number",
		})
	}

	raw, found := e.midpoints.Lookup(rec.SizeClassCode)
	switch {
	case !found:
		out.Issues = append(out.Issues, domain.DataQualityIssue{
			Kind:    domain.IssueMissingMidpoint,
			Zipcode: rec.Zipcode,
			NAICS:   rec.NAICS,
			Value:   rec.SizeClassCode,
			Detail:  "size class has no midpoint",
		})
	default:
		if m, ok := parseNumber(raw); ok {
			out.Midpoint = m
		} else {
			out.Issues = append(out.Issues, domain.DataQualityIssue{
				Kind:    domain.IssueNonNumericMidpoint,
				Zipcode: rec.Zipcode,
				NAICS:   rec.NAICS,
				Value:   raw,
				Detail:  fmt.Sprintf("midpoint for size class %s is not a number", rec.SizeClassCode),
			})
		}
	}

	// NaN on either side propagates.
	out.EmploymentEstimate = out.EstablishmentCount * out.Midpoint
	return out
}

// parseNumber accepts finite decimal text only.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// logIssues emits one warning per issue kind rather than one per row.
func (e *Enricher) logIssues(ctx context.Context, issues []domain.DataQualityIssue) {
	if len(issues) == 0 {
		return
	}
	byKind := make(map[domain.IssueKind][]domain.DataQualityIssue)
	var kinds []domain.IssueKind
	for _, is := range issues {
		if _, seen := byKind[is.Kind]; !seen {
			kinds = append(kinds, is.Kind)
		}
		byKind[is.Kind] = append(byKind[is.Kind], is)
	}
	for _, k := range kinds {
		group := byKind[k]
		e.logger.WarnContext(ctx, "data quality issue",
			slog.String("kind", string(k)),
			slog.Int("rows", len(group)),
			slog.String("example", group[0].String()))
	}
}
