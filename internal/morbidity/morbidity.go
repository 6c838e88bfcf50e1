// Package morbidity summarizes mortality and hospital discharge tables into
// per-cause and per-disease rankings.
package morbidity

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
)

const (
	// TopDischarges is how many disease groups the discharge summary keeps.
	TopDischarges = 20
	// TopOverlooked is how many non-fatal conditions are reported.
	TopOverlooked = 10
)

var (
	icdSuffix  = regexp.MustCompile(`\(?\s*ICD-10:.*\)`)
	yearHeader = regexp.MustCompile(`(19|20)\d{2}`)
)

// Summarizer builds the morbidity tables.
type Summarizer struct {
	params *domain.Params
	logger *slog.Logger
}

// New creates a Summarizer.
func New(p *domain.Params, logger *slog.Logger) *Summarizer {
	return &Summarizer{params: p, logger: logger}
}

// CleanCause strips the ICD-10 code suffix and footnote daggers from a cause label.
func CleanCause(raw string) string {
	s := icdSuffix.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "†", "")
	return strings.Join(strings.Fields(s), " ")
}

// DeathsByCause pivots the yearly death tables to cause × year, keeping only
// all-ages totals for both sexes. Years a cause is absent from count as zero.
// Rows are sorted by total deaths, highest first.
func (s *Summarizer) DeathsByCause(tables map[int]*ingest.Table) []domain.CauseOfDeathRecord {
	if len(tables) == 0 {
		s.logger.Warn("no death records available")
		return nil
	}

	years := make([]int, 0, len(tables))
	for y := range tables {
		years = append(years, y)
	}
	sort.Ints(years)

	pivot := make(map[string]map[int]float64)
	for _, year := range years {
		t := tables[year]
		if !t.Has(ingest.ColCause) || !t.Has(ingest.ColCount) {
			s.logger.Warn("death records lack cause or count column", "year", year)
			continue
		}
		for i := 0; i < t.Len(); i++ {
			if t.Text(i, ingest.ColSex) != "Total" || t.Text(i, ingest.ColAgeGroup) != "All ages" {
				continue
			}
			cause := CleanCause(t.Text(i, ingest.ColCause))
			if cause == "" {
				continue
			}
			count, ok := t.Float(i, ingest.ColCount)
			if !ok {
				continue
			}
			if pivot[cause] == nil {
				pivot[cause] = make(map[int]float64, len(years))
			}
			pivot[cause][year] += count
		}
	}

	out := make([]domain.CauseOfDeathRecord, 0, len(pivot))
	for cause, counts := range pivot {
		rec := domain.CauseOfDeathRecord{Cause: cause, ByYear: make(map[int]float64, len(years))}
		for _, y := range years {
			rec.ByYear[y] = counts[y]
			rec.Total += counts[y]
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Cause < out[j].Cause
	})
	return out
}

// Discharges averages each disease group over the historical years, ignoring
// blank years, and keeps the TopDischarges groups by average. Summary and
// footnote rows are dropped, as are groups with no value in the window.
func (s *Summarizer) Discharges(t *ingest.Table) []domain.DischargeRecord {
	if t == nil {
		s.logger.Warn("no hospital discharge data available")
		return nil
	}

	yearCols := make(map[int]string)
	for _, c := range t.Columns {
		if m := yearHeader.FindString(c); m != "" && c != ingest.ColDisease && c != ingest.ColICD10 {
			y, _ := strconv.Atoi(m)
			yearCols[y] = c
		}
	}
	window := make(map[int]bool, len(s.params.HistoricalYears))
	for _, y := range s.params.HistoricalYears {
		window[y] = true
	}

	var out []domain.DischargeRecord
	for i := 0; i < t.Len(); i++ {
		disease := t.Text(i, ingest.ColDisease)
		if disease == "" || strings.Contains(disease, "Overall") || strings.Contains(disease, "Notes") {
			continue
		}
		rec := domain.DischargeRecord{
			Disease: disease,
			ICD10:   t.Text(i, ingest.ColICD10),
			ByYear:  make(map[int]*float64, len(yearCols)),
		}
		var sum float64
		var n int
		for y, col := range yearCols {
			v, ok := t.Float(i, col)
			if !ok {
				rec.ByYear[y] = nil
				continue
			}
			rec.ByYear[y] = domain.Float(v)
			if window[y] {
				sum += v
				n++
			}
		}
		if n == 0 {
			s.logger.Debug("discharge group has no values in window", "disease", disease)
			continue
		}
		rec.Average = sum / float64(n)
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Average != out[j].Average {
			return out[i].Average > out[j].Average
		}
		return out[i].Disease < out[j].Disease
	})
	if len(out) > TopDischarges {
		out = out[:TopDischarges]
	}
	return out
}

// Overlooked picks the leading discharge groups whose name matches none of the
// fatal-disease keywords, case-insensitively.
func (s *Summarizer) Overlooked(top []domain.DischargeRecord) []domain.DischargeRecord {
	exclude := make([]string, len(s.params.Keywords.OverlookedExclude))
	for i, k := range s.params.Keywords.OverlookedExclude {
		exclude[i] = strings.ToLower(k)
	}

	var out []domain.DischargeRecord
	for _, r := range top {
		name := strings.ToLower(r.Disease)
		excluded := false
		for _, k := range exclude {
			if strings.Contains(name, k) {
				excluded = true
				break
			}
		}
		if excluded || math.IsNaN(r.Average) {
			continue
		}
		out = append(out, r)
		if len(out) == TopOverlooked {
			break
		}
	}
	return out
}
