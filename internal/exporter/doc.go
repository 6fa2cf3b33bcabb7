// Package exporter writes a run's datasets and analysis tables to disk.
//
// WorkbookWriter produces the report spreadsheet: five analysis sheets,
// each with a merged title above bordered headers and fixed column widths,
// followed by the Total Economy and Marine Economy data sheets.
//
// CSVWriter optionally writes the analysis tables as UTF-8 CSV files (with a
// BOM so Excel detects the encoding).
//
// Both writers replace their files atomically. Undefined numbers (NaN) are
// written as the configured NaN label.
//
// Example usage:
//
//	w := exporter.NewWorkbookWriter(cfg.Report, logger)
//	path, err := w.Write(ctx, economy, tables)
package exporter
