// Package ingest reads the raw statistical tables into canonical, typed-on-read
// tables. Missing or malformed sources never stop a run; they are reported as
// unavailable so downstream stages can apply their fallbacks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/observability"
)

// Status labels reported per source.
const (
	StatusAvailable      = "available"
	StatusUnavailable    = "unavailable"
	StatusSchemaMismatch = "schema_mismatch"
)

// Result is the outcome of reading one source.
type Result struct {
	Source   string
	Path     string
	Shape    string
	Table    *Table
	BadLines int
	Err      error
}

// Available reports whether the source produced a usable table.
func (r Result) Available() bool {
	return r.Err == nil && r.Table != nil
}

// Status returns the metric label of the outcome.
func (r Result) Status() string {
	switch {
	case r.Available():
		return StatusAvailable
	case errors.Is(r.Err, domain.ErrSchemaMismatch):
		return StatusSchemaMismatch
	default:
		return StatusUnavailable
	}
}

// Reader parses source files against their schemas.
type Reader struct {
	params  *domain.Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a Reader that canonicalizes districts against p.
func NewReader(p *domain.Params, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{params: p, logger: logger, metrics: metrics}
}

// Read parses the file at path. It never fails past its boundary: problems are
// reported in Result.Err, wrapping domain.ErrSourceUnavailable or
// domain.ErrSchemaMismatch.
func (r *Reader) Read(ctx context.Context, src Source, path string) (res Result) {
	res = Result{Source: src.Name, Path: path}
	defer func() {
		if p := recover(); p != nil {
			res.Table = nil
			res.Err = fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, p)
		}
		r.record(res)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		return res
	}
	if _, err := os.Stat(path); err != nil {
		res.Err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		return res
	}

	raw, err := readRaw(path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
		return res
	}

	t, bad := frame(raw, src.SkipRows)
	res.BadLines = bad
	renameByHeader(t, src.HeaderMatch)
	t.filterRows(func(row []string) bool { return len(row) > 0 && !hasKeyword(row[0], src.Keywords) })
	if t.Len() == 0 {
		res.Err = fmt.Errorf("%w: no data rows", domain.ErrSourceUnavailable)
		return res
	}

	if len(src.Shapes) > 0 {
		shape, err := resolveShape(src.Shapes, t)
		if err != nil {
			res.Err = err
			return res
		}
		shape.apply(t)
		res.Shape = shape.Name
	}

	if src.Districts {
		r.canonicalizeDistricts(src, t)
	}
	if src.BaseYearOnly && t.Has(ColYear) {
		r.keepYear(t, r.params.BaseYear)
	}
	if t.Len() == 0 {
		res.Err = fmt.Errorf("%w: no rows after filtering", domain.ErrSourceUnavailable)
		return res
	}

	res.Table = t
	return res
}

func (r *Reader) record(res Result) {
	r.metrics.SourcesLoaded.WithLabelValues(res.Source, res.Status()).Inc()
	if res.BadLines > 0 {
		r.metrics.BadLinesSkipped.WithLabelValues(res.Source).Add(float64(res.BadLines))
	}
	if res.Available() {
		r.metrics.RowsIngested.WithLabelValues(res.Source).Add(float64(res.Table.Len()))
		r.logger.Info("source loaded",
			"source", res.Source, "rows", res.Table.Len(), "shape", res.Shape, "bad_lines", res.BadLines)
		return
	}
	r.logger.Warn("source unavailable", "source", res.Source, "path", res.Path, "error", res.Err)
}

// canonicalizeDistricts rewrites district labels to the configured spelling,
// dropping keyword rows, blanks and names outside the district set.
func (r *Reader) canonicalizeDistricts(src Source, t *Table) {
	col := t.Col(ColDistrict)
	if col < 0 {
		return
	}
	t.filterRows(func(row []string) bool {
		raw := strings.TrimSpace(row[col])
		if raw == "" || hasKeyword(raw, src.Keywords) {
			return false
		}
		name, ok := r.params.CanonicalDistrict(raw)
		if !ok {
			r.logger.Warn("unknown district dropped", "source", src.Name, "district", raw)
			return false
		}
		row[col] = name
		return true
	})
}

func (r *Reader) keepYear(t *Table, year int) {
	col := t.Col(ColYear)
	t.filterRows(func(row []string) bool {
		v, ok := ParseNumber(row[col])
		return ok && int(v) == year
	})
}

func renameByHeader(t *Table, renames []Rename) {
	if len(renames) == 0 {
		return
	}
	for _, rn := range renames {
		if t.Has(rn.Column) {
			continue
		}
		for i, c := range t.Columns {
			if strings.Contains(strings.ToLower(c), rn.Substr) && !isCanonical(c, renames) {
				t.Columns[i] = rn.Column
				break
			}
		}
	}
}

func isCanonical(col string, renames []Rename) bool {
	for _, rn := range renames {
		if col == rn.Column {
			return true
		}
	}
	return false
}

func hasKeyword(cell string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(cell, k) {
			return true
		}
	}
	return false
}
