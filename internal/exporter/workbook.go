package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/config"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/internal/files"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// WorkbookWriter writes the report spreadsheet.
type WorkbookWriter struct {
	cfg    config.ReportConfig
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer for cfg.OutputPath(). A nil logger
// uses slog.Default().
func NewWorkbookWriter(cfg config.ReportConfig, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "workbook_writer")),
	}
}

// Write renders the workbook and moves it into place. It returns the path
// written. Any failure is a WRITE error carrying the attempted path, and
// leaves no file at that path.
func (w *WorkbookWriter) Write(ctx context.Context, economy *domain.Economy, tables *domain.AnalysisTables) (string, error) {
	path := w.cfg.OutputPath()
	if economy == nil || tables == nil {
		return "", errors.NewWriteError(path, fmt.Errorf("nothing to write"))
	}

	w.logger.InfoContext(ctx, "creating the output file", slog.String("path", path))

	f, err := w.Build(economy, tables)
	if err != nil {
		return "", errors.NewWriteError(path, err)
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return "", errors.NewWriteError(path, err)
	}

	err = files.WriteAtomic(path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	})
	if err != nil {
		return "", errors.NewWriteError(path, err)
	}

	w.logger.InfoContext(ctx, "output file written",
		slog.String("path", path),
		slog.Int("total_rows", len(economy.Total)),
		slog.Int("marine_rows", len(economy.Marine)))
	return path, nil
}

// Build renders the workbook in memory. The caller closes the file.
func (w *WorkbookWriter) Build(economy *domain.Economy, tables *domain.AnalysisTables) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	sheets := append(analysisSheets(tables), dataSheets(economy)...)
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.layout.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.layout.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", s.layout.Name, err)
		}
		if err := w.writeSheet(f, st, s); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.layout.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	title  int
	header int
	body   int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	var st styles
	var err error
	st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top", WrapText: true},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.body, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return st, fmt.Errorf("body style: %w", err)
	}
	return st, nil
}

func (w *WorkbookWriter) writeSheet(f *excelize.File, st styles, s sheetData) error {
	sw, err := f.NewStreamWriter(s.layout.Name)
	if err != nil {
		return err
	}

	for _, cw := range s.layout.Widths {
		from, to, err := columnRange(cw)
		if err != nil {
			return err
		}
		if err := sw.SetColWidth(from, to, cw.Width); err != nil {
			return err
		}
	}

	styled := s.layout.Title != ""
	row := 1

	if styled {
		last, err := excelize.ColumnNumberToName(len(s.columns))
		if err != nil {
			return err
		}
		title := make([]interface{}, len(s.columns))
		for i := range title {
			title[i] = excelize.Cell{StyleID: st.title}
		}
		title[0] = excelize.Cell{StyleID: st.title, Value: s.layout.Title}
		if err := sw.SetRow("A1", title); err != nil {
			return err
		}
		if err := sw.MergeCell("A1", last+"1"); err != nil {
			return err
		}
		row++
	}

	header := make([]interface{}, len(s.columns))
	for i, c := range s.columns {
		if styled {
			header[i] = excelize.Cell{StyleID: st.header, Value: c}
		} else {
			header[i] = c
		}
	}
	if err := sw.SetRow(cellName(row), header); err != nil {
		return err
	}
	row++

	for _, vals := range s.rows {
		cells := make([]interface{}, len(vals))
		for i, v := range vals {
			v = cellValue(v, w.cfg.NaNLabel)
			if styled {
				cells[i] = excelize.Cell{StyleID: st.body, Value: v}
			} else {
				cells[i] = v
			}
		}
		if err := sw.SetRow(cellName(row), cells); err != nil {
			return err
		}
		row++
	}

	return sw.Flush()
}

func cellName(row int) string {
	return fmt.Sprintf("A%d", row)
}
