package ingest

import (
	"math"
	"strconv"
	"strings"
)

// Table is a parsed source with canonical column names. Cells stay as text;
// numeric columns are coerced on access so an unparseable cell reads as
// missing rather than zero.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Col returns the index of the named column, or -1.
func (t *Table) Col(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	return t.Col(name) >= 0
}

// Text returns the trimmed cell at row/col, or "" when the column is absent.
func (t *Table) Text(row int, col string) string {
	i := t.Col(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// Float returns the numeric value of the cell at row/col. The second result
// is false when the column is absent or the cell does not hold a number.
func (t *Table) Float(row int, col string) (float64, bool) {
	return ParseNumber(t.Text(row, col))
}

var numberCleaner = strings.NewReplacer("HK$", "", "$", "", ",", "", " ", "", " ", "")

// ParseNumber parses a published statistic such as "HK$ 31,200" or "12.5".
// Placeholders like "n/a", "-" or "§" are reported as missing.
func ParseNumber(s string) (float64, bool) {
	s = numberCleaner.Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// filterRows keeps the rows for which keep returns true.
func (t *Table) filterRows(keep func(row []string) bool) {
	kept := t.Rows[:0]
	for _, r := range t.Rows {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	t.Rows = kept
}
