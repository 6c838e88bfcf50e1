package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rawRows holds the cell grid of a file before any header handling.
type rawRows struct {
	rows     [][]string
	badLines int
}

func readRaw(path string) (rawRows, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	return readCSV(path)
}

// readCSV reads a CSV export with variable field counts. Lines the parser
// rejects are skipped and counted. Files that are not valid UTF-8 are decoded
// as Latin-1, the encoding of older bureau exports.
func readCSV(path string) (rawRows, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rawRows{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return rawRows{}, fmt.Errorf("decode latin-1: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out rawRows
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			out.badLines++
			continue
		}
		if err != nil {
			return rawRows{}, err
		}
		out.rows = append(out.rows, rec)
	}
	return out, nil
}

// readXLSX reads the sheet named Sheet1, or the first sheet when absent.
func readXLSX(path string) (rawRows, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return rawRows{}, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return rawRows{}, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s == "Sheet1" {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return rawRows{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rawRows{rows: rows}, nil
}

// frame turns raw rows into a table: skip leading rows, take the next row as
// header, drop rows wider than the header and pad narrower ones, then remove
// columns and rows that hold no data at all.
func frame(raw rawRows, skip int) (*Table, int) {
	bad := raw.badLines
	if len(raw.rows) <= skip {
		return &Table{}, bad
	}
	header := raw.rows[skip]
	width := len(header)

	t := &Table{Columns: make([]string, width)}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}
	for _, rec := range raw.rows[skip+1:] {
		if len(rec) > width {
			rec = trimTrailingEmpty(rec)
		}
		if len(rec) > width {
			bad++
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}

	dropEmptyColumns(t)
	t.filterRows(func(row []string) bool { return !allEmpty(row) })
	return t, bad
}

func dropEmptyColumns(t *Table) {
	keep := make([]int, 0, len(t.Columns))
	for c := range t.Columns {
		for _, row := range t.Rows {
			if strings.TrimSpace(row[c]) != "" {
				keep = append(keep, c)
				break
			}
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}
	t.Columns = pick(t.Columns, keep)
	for i, row := range t.Rows {
		t.Rows[i] = pick(row, keep)
	}
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, c := range idx {
		out[i] = row[c]
	}
	return out
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingEmpty(rec []string) []string {
	n := len(rec)
	for n > 0 && strings.TrimSpace(rec[n-1]) == "" {
		n--
	}
	return rec[:n]
}
