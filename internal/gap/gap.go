// Package gap compares each district's demand with an estimate of its existing
// service penetration and ranks the districts by priority.
//
// The estimate degrades in tiers with the data at hand:
//
//	tier 1  income and labour scores    service = 100 × (0.6·income + 0.4·labour)
//	tier 2  income only                 service = 100 × income
//	tier 3  no usable income or demand  demand from elderly population, service = 50
package gap

import (
	"log/slog"
	"math"
	"sort"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/index"
)

// fallbackService is the uniform service penetration assumed in tier 3.
const fallbackService = 50.0

// Scorer produces service gap records from the reconciled cohort.
type Scorer struct {
	params *domain.Params
	logger *slog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(p *domain.Params, logger *slog.Logger) *Scorer {
	return &Scorer{params: p, logger: logger}
}

// Score never fails: it picks the richest tier the records support. Output is
// sorted by service gap, largest first.
func (s *Scorer) Score(records []domain.DistrictRecord) []domain.ServiceGapRecord {
	valid := make([]domain.DistrictRecord, 0, len(records))
	hasLabour := false
	for _, r := range records {
		if r.MedianIncome == nil || math.IsNaN(r.DemandPotential) {
			continue
		}
		valid = append(valid, r)
		if r.LabourScore != nil {
			hasLabour = true
		}
	}
	if dropped := len(records) - len(valid); dropped > 0 && len(valid) > 0 {
		s.logger.Warn("districts without income or demand excluded from gap scoring", "count", dropped)
	}

	var out []domain.ServiceGapRecord
	switch {
	case len(valid) == 0:
		s.logger.Warn("no district has income and demand, using elderly population proxy")
		out = s.fallback(records)
	case hasLabour:
		out = s.composite(valid, 1, true)
	default:
		out = s.composite(valid, 2, false)
	}

	prioritize(out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ServiceGap != out[j].ServiceGap {
			return out[i].ServiceGap > out[j].ServiceGap
		}
		return out[i].District < out[j].District
	})

	s.logger.Info("service gaps scored", "tier", tierOf(out), "districts", len(out), "underserved", countUnderserved(out))
	return out
}

// composite estimates service from normalized income, blended with labour
// scores when withLabour is set. Missing labour scores take the median of the
// present ones.
func (s *Scorer) composite(records []domain.DistrictRecord, tier int, withLabour bool) []domain.ServiceGapRecord {
	incomes := make([]float64, len(records))
	var labours []float64
	for i, r := range records {
		incomes[i] = *r.MedianIncome
		if r.LabourScore != nil {
			labours = append(labours, *r.LabourScore)
		}
	}
	incomeNorm := index.MinMax(incomes, index.Direct)
	labourFill := index.Median(labours)

	w := s.params.Weights.Service
	out := make([]domain.ServiceGapRecord, len(records))
	for i, r := range records {
		service := incomeNorm[i] * 100
		var labour *float64
		if withLabour {
			l := labourFill
			if r.LabourScore != nil {
				l = *r.LabourScore
			}
			labour = domain.Float(l)
			service = (incomeNorm[i]*w.Income + l*w.Labour) * 100
		}
		out[i] = domain.ServiceGapRecord{
			District:         r.District,
			LatestElderly:    r.LatestElderly,
			DemandPotential:  r.DemandPotential,
			MedianIncome:     domain.Float(*r.MedianIncome),
			IncomeNorm:       incomeNorm[i],
			LabourScore:      labour,
			EstimatedService: service,
			ServiceGap:       r.DemandPotential - service,
			Tier:             tier,
		}
	}

	gaps := make([]float64, len(out))
	for i := range out {
		gaps[i] = out[i].ServiceGap
	}
	median := index.Median(gaps)
	for i := range out {
		out[i].GapStatus = status(out[i].ServiceGap > median)
	}
	return out
}

// fallback derives demand from the elderly population alone.
func (s *Scorer) fallback(records []domain.DistrictRecord) []domain.ServiceGapRecord {
	elderly := make([]float64, len(records))
	for i, r := range records {
		elderly[i] = float64(r.LatestElderly)
	}
	demand := index.MinMax(elderly, index.Direct)

	out := make([]domain.ServiceGapRecord, len(records))
	for i, r := range records {
		d := demand[i] * 100
		out[i] = domain.ServiceGapRecord{
			District:         r.District,
			LatestElderly:    r.LatestElderly,
			DemandPotential:  d,
			MedianIncome:     r.MedianIncome,
			LabourScore:      r.LabourScore,
			EstimatedService: fallbackService,
			ServiceGap:       d - fallbackService,
			GapStatus:        status(d-fallbackService > 0),
			Tier:             3,
		}
	}
	return out
}

// prioritize sets priority scores and their tertile labels.
func prioritize(out []domain.ServiceGapRecord) {
	scores := make([]*float64, len(out))
	for i := range out {
		out[i].PriorityScore = out[i].DemandPotential * (1 - out[i].EstimatedService/100)
		scores[i] = domain.Float(out[i].PriorityScore)
	}
	for i, label := range Tertiles(scores) {
		out[i].Priority = label
	}
}

func status(underserved bool) string {
	if underserved {
		return domain.Underserved
	}
	return domain.WellServed
}

func tierOf(out []domain.ServiceGapRecord) int {
	if len(out) == 0 {
		return 0
	}
	return out[0].Tier
}

func countUnderserved(out []domain.ServiceGapRecord) int {
	n := 0
	for _, r := range out {
		if r.GapStatus == domain.Underserved {
			n++
		}
	}
	return n
}
