package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/files"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// CSVWriter writes the analysis tables as CSV files named
// {prefix}_{sheet}.csv in the configured CSV directory.
type CSVWriter struct {
	cfg    config.ReportConfig
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(cfg config.ReportConfig, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "csv_writer")),
	}
}

// Path returns the CSV path for a sheet.
func (w *CSVWriter) Path(sheet string) string {
	return filepath.Join(w.cfg.CSVDir, w.cfg.FilePrefix+"_"+sheet+".csv")
}

// WriteTables writes one file per analysis table and returns their paths.
func (w *CSVWriter) WriteTables(ctx context.Context, tables *domain.AnalysisTables) ([]string, error) {
	if tables == nil {
		return nil, errors.NewWriteError(w.cfg.CSVDir, fmt.Errorf("nothing to write"))
	}

	var paths []string
	for _, s := range analysisSheets(tables) {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := w.Path(s.layout.Name)
		if err := files.WriteAtomic(path, func(out io.Writer) error {
			return w.writeCSV(out, s)
		}); err != nil {
			return paths, errors.NewWriteError(path, err)
		}
		w.logger.InfoContext(ctx, "Writing CSV file",
			slog.String("path", path),
			slog.Int("record_count", len(s.rows)))
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *CSVWriter) writeCSV(out io.Writer, s sheetData) error {
	// BOM helps Excel recognize UTF-8
	if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(s.columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, vals := range s.rows {
		record := make([]string, len(vals))
		for j, v := range vals {
			record[j] = formatCSV(v, w.cfg.NaNLabel)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
