// Package xlsx exports run artifacts to a single Excel workbook: a summary
// sheet followed by one sheet per artifact.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// FileName is the workbook written under the output directory.
const FileName = "gerontech_demand.xlsx"

// SummarySheet holds run metadata and per-artifact row counts.
const SummarySheet = "summary"

// Writer implements pipeline.Loader for the workbook export.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer that saves FileName inside dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{path: filepath.Join(dir, FileName), logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "xlsx" }

// Path returns the workbook location.
func (w *Writer) Path() string { return w.path }

// Load builds the workbook and saves it, replacing any earlier export.
func (w *Writer) Load(ctx context.Context, res *domain.Results) error {
	tables := artifact.Build(res)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, res, tables); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeTable(f, t); err != nil {
			return fmt.Errorf("write sheet %s: %w", t.Name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("workbook written", "path", w.path, "sheets", len(tables)+1)
	return nil
}

func writeSummary(f *excelize.File, res *domain.Results, tables []artifact.Table) error {
	rows := [][]any{
		{"run_id", res.RunID},
		{"generated_at", res.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"artifact", "rows"},
	}
	for _, t := range tables {
		rows = append(rows, []any{t.Name, t.Len()})
	}
	rows = append(rows, []any{}, []any{"source", "status"})
	for _, name := range slices.Sorted(maps.Keys(res.Sources)) {
		rows = append(rows, []any{name, res.Sources[name]})
	}
	return setRows(f, SummarySheet, rows)
}

func writeTable(f *excelize.File, t artifact.Table) error {
	rows := make([][]any, 0, t.Len()+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, r := range t.Rows {
		cells := make([]any, len(r))
		for i, v := range r {
			cells[i] = cellValue(v)
		}
		rows = append(rows, cells)
	}
	if err := setRows(f, t.Name, rows); err != nil {
		return err
	}
	return f.SetPanes(t.Name, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

// cellValue stores numeric text as a number so spreadsheet formulas work.
// Blank cells stay empty.
func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return s
}
