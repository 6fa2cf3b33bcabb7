// Package dataprocessing turns raw Zip Code Business Patterns records into
// the Total Economy and Marine Economy datasets and the five analysis tables
// of a report.
//
// # Architecture
//
// Each stage takes an immutable input and returns a new value:
//
//  1. Clean: drops size-class rollups, industry-group subtotals and zero
//     establishment rows, and counts what each filter removed.
//  2. Enricher: joins employment midpoints, coerces counts to numbers,
//     computes the employment estimate and tags marine sectors.
//  3. Aggregator: grouped sums, the whole-study-area row, ratios and
//     rounding to one decimal place.
//
// # Data Flow
//
//	RawTable → Clean → CleanResult → Enricher → Economy → Aggregator → AnalysisTables
//
// # Missing Values
//
// Numbers that could not be derived are NaN, never zero. Sums skip NaN
// values. A ratio with a zero denominator is NaN. Every NaN introduced by
// bad input is paired with a domain.DataQualityIssue on the affected row.
package dataprocessing
