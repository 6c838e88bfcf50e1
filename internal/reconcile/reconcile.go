// Package reconcile joins the optional district sources onto the elderly
// population base, fills gaps through per-indicator fallback chains, and
// scores each district's demand potential.
package reconcile

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/index"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
	"github.com/couchcryptid/gerontech-demand-etl/internal/observability"
)

// Strategy names, emitted as provenance columns.
const (
	IncomeTable      = "income_table"
	DistrictFallback = "district_fallback"
	TerritoryMedian  = "territory_median"

	HouseholdTable      = "household_table"
	ElderlyProportional = "elderly_proportional"
	TerritoryAverage    = "territory_average"

	AgeTable              = "age_table"
	DerivedFromPopulation = "derived_from_population"

	ParticipationTable = "participation_table"
	LabourForceTable   = "labour_force_table"
)

// Inputs are the optional district tables. A nil table is unavailable.
type Inputs struct {
	Income        *ingest.Table
	Households    *ingest.Table
	Age           *ingest.Table
	LabourForce   *ingest.Table
	Participation *ingest.Table
}

// InputsFromCatalog picks the reconciler's tables out of a catalog.
func InputsFromCatalog(c *ingest.Catalog) Inputs {
	get := func(name string) *ingest.Table {
		t, _ := c.Table(name)
		return t
	}
	return Inputs{
		Income:        get(ingest.SourceIncome),
		Households:    get(ingest.SourceHouseholds),
		Age:           get(ingest.SourcePopulationAge),
		LabourForce:   get(ingest.SourceLabourForce),
		Participation: get(ingest.SourceLabourParticipation),
	}
}

// Reconciler builds one DistrictRecord per configured district.
type Reconciler struct {
	params  *domain.Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Reconciler.
func New(p *domain.Params, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{params: p, logger: logger, metrics: metrics}
}

// Reconcile returns the scored district cohort sorted by demand potential,
// highest first. It fails only when the elderly population base is missing.
func (r *Reconciler) Reconcile(in Inputs) ([]domain.DistrictRecord, error) {
	records, err := r.base()
	if err != nil {
		return nil, err
	}

	latest := make(map[string]float64, len(records))
	for _, rec := range records {
		latest[rec.District] = float64(rec.LatestElderly)
	}

	income := r.incomeChain(in.Income)
	inactive := r.inactiveChain(in.Households, latest)
	age := r.ageChain(in.Age, latest)
	labour, labourSource := r.labourScores(in)

	for i := range records {
		rec := &records[i]
		rec.MedianIncome, rec.IncomeSource = r.resolve(income, rec.District)
		rec.InactiveRatio, rec.InactiveSource = r.resolve(inactive, rec.District)
		rec.Age65PlusPct, rec.AgeSource = r.resolve(age, rec.District)
		if v, ok := labour[rec.District]; ok {
			rec.LabourScore = domain.Float(v)
		}
	}
	if labourSource != "" {
		r.logger.Info("labour scores attached", "strategy", labourSource, "districts", len(labour))
	}

	r.score(records)

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].DemandPotential != records[j].DemandPotential {
			return records[i].DemandPotential > records[j].DemandPotential
		}
		return records[i].District < records[j].District
	})

	r.metrics.DistrictsScored.Set(float64(len(records)))
	return records, nil
}

// base builds the records from the elderly population series.
func (r *Reconciler) base() ([]domain.DistrictRecord, error) {
	p := r.params
	if len(p.ElderlyPopulation) == 0 {
		return nil, domain.ErrBaseSourceMissing
	}

	series := make(map[string][]int, len(p.ElderlyPopulation))
	for name, values := range p.ElderlyPopulation {
		if d, ok := p.CanonicalDistrict(name); ok {
			series[d] = values
		}
	}

	records := make([]domain.DistrictRecord, 0, len(p.Districts))
	for _, d := range p.Districts {
		values, ok := series[d]
		if !ok || len(values) != len(p.HistoricalYears) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBaseSourceMissing, d)
		}
		byYear := make(map[int]int, len(values))
		for i, y := range p.HistoricalYears {
			byYear[y] = values[i]
		}
		first, last := values[0], values[len(values)-1]
		records = append(records, domain.DistrictRecord{
			District:          d,
			ElderlyPopulation: byYear,
			LatestElderly:     last,
			GrowthRate:        growthRate(first, last),
		})
	}
	return records, nil
}

func growthRate(first, last int) float64 {
	if first == 0 {
		return 0
	}
	return (float64(last)/float64(first) - 1) * 100
}

func (r *Reconciler) incomeChain(t *ingest.Table) Chain {
	c := Chain{Attribute: "income", Primary: IncomeTable}
	if t != nil {
		c.Strategies = append(c.Strategies, FromMap(IncomeTable, columnByDistrict(t, ingest.ColIncomeAll)))
	} else {
		r.logger.Warn("income source unavailable, using district fallback values")
		c.Strategies = append(c.Strategies, FromMap(DistrictFallback, r.params.Fallback.IncomeByDistrict))
	}
	c.Strategies = append(c.Strategies, Constant(TerritoryMedian, r.params.Fallback.MedianIncome))
	return c
}

func (r *Reconciler) inactiveChain(t *ingest.Table, latest map[string]float64) Chain {
	c := Chain{Attribute: "inactive_ratio", Primary: HouseholdTable}
	if t != nil {
		c.Strategies = append(c.Strategies, FromMap(HouseholdTable, inactiveRatios(t)))
	} else {
		r.logger.Warn("household source unavailable, deriving inactive ratio from elderly population")
		c.Strategies = append(c.Strategies, FromMap(ElderlyProportional,
			proportional(latest, r.params.Fallback.ElderlyInactiveFactor)))
	}
	c.Strategies = append(c.Strategies, Constant(TerritoryAverage, r.params.Fallback.InactiveRatio))
	return c
}

func (r *Reconciler) ageChain(t *ingest.Table, latest map[string]float64) Chain {
	c := Chain{Attribute: "age_65_plus_pct", Primary: AgeTable}
	if t != nil {
		c.Strategies = append(c.Strategies, FromMap(AgeTable, columnByDistrict(t, ingest.ColAge65Plus)))
	} else {
		r.logger.Warn("age proportion source unavailable, deriving from total population")
		derived := make(map[string]float64, len(latest))
		for d, elderly := range latest {
			if total := r.params.TotalPopulationThousands[d]; total > 0 {
				derived[d] = elderly / (total * 1000) * 100
			}
		}
		c.Strategies = append(c.Strategies, FromMap(DerivedFromPopulation, derived))
	}
	c.Strategies = append(c.Strategies, Constant(TerritoryAverage, r.params.Fallback.Age65PlusPct))
	return c
}

func (r *Reconciler) resolve(c Chain, district string) (*float64, string) {
	v, strategy, ok := c.Resolve(district)
	if !ok {
		return nil, ""
	}
	if c.Substituted(strategy) {
		r.metrics.FallbackSubstitutions.WithLabelValues(c.Attribute, strategy).Inc()
		r.logger.Debug("fallback applied", "attribute", c.Attribute, "strategy", strategy, "district", district)
	}
	return domain.Float(v), strategy
}

// labourScores normalizes the best available labour indicator, preferring
// participation rates over labour force counts.
func (r *Reconciler) labourScores(in Inputs) (map[string]float64, string) {
	candidates := []struct {
		name  string
		table *ingest.Table
		col   string
	}{
		{ParticipationTable, in.Participation, ingest.ColParticipationBoth},
		{LabourForceTable, in.LabourForce, ingest.ColLabourBoth},
	}
	for _, c := range candidates {
		if c.table == nil {
			continue
		}
		raw := columnByDistrict(c.table, c.col)
		if len(raw) == 0 {
			continue
		}
		districts := make([]string, 0, len(raw))
		for d := range raw {
			districts = append(districts, d)
		}
		sort.Strings(districts)

		values := make([]float64, len(districts))
		for i, d := range districts {
			values[i] = raw[d]
		}
		scores := index.MinMax(values, index.Direct)

		out := make(map[string]float64, len(districts))
		for i, d := range districts {
			out[d] = scores[i]
		}
		return out, c.name
	}
	return nil, ""
}

// score fills the normalized indicator scores and the demand composite.
func (r *Reconciler) score(records []domain.DistrictRecord) {
	n := len(records)
	income := make([]float64, n)
	elderly := make([]float64, n)
	inactive := make([]float64, n)
	for i, rec := range records {
		income[i] = deref(rec.MedianIncome)
		elderly[i] = float64(rec.LatestElderly)
		inactive[i] = deref(rec.InactiveRatio)
	}

	incomeScores := index.MinMax(income, index.Inverted)
	elderlyScores := index.MinMax(elderly, index.Direct)
	inactiveScores := index.MinMax(inactive, index.Direct)

	w := r.params.Weights.Demand
	for i := range records {
		records[i].IncomeScore = incomeScores[i]
		records[i].ElderlyScore = elderlyScores[i]
		records[i].InactiveScore = inactiveScores[i]
		records[i].DemandPotential = index.Composite(
			index.Weighted{Score: elderlyScores[i], Weight: w.Elderly},
			index.Weighted{Score: incomeScores[i], Weight: w.Income},
			index.Weighted{Score: inactiveScores[i], Weight: w.Inactive},
		)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// columnByDistrict maps each district to the numeric value of col. The first
// row of a district wins; unparseable cells are skipped.
func columnByDistrict(t *ingest.Table, col string) map[string]float64 {
	out := make(map[string]float64)
	for i := 0; i < t.Len(); i++ {
		d := t.Text(i, ingest.ColDistrict)
		if _, seen := out[d]; seen || d == "" {
			continue
		}
		if v, ok := t.Float(i, col); ok {
			out[d] = v
		}
	}
	return out
}

// inactiveRatios divides inactive households by the total, or by
// active+inactive when the table has no total column.
func inactiveRatios(t *ingest.Table) map[string]float64 {
	out := make(map[string]float64)
	for i := 0; i < t.Len(); i++ {
		d := t.Text(i, ingest.ColDistrict)
		if _, seen := out[d]; seen || d == "" {
			continue
		}
		inactive, ok := t.Float(i, ingest.ColInactive)
		if !ok {
			continue
		}
		total, ok := t.Float(i, ingest.ColTotal)
		if !ok {
			active, okActive := t.Float(i, ingest.ColActive)
			if !okActive {
				continue
			}
			total = active + inactive
		}
		if total > 0 {
			out[d] = inactive / total
		}
	}
	return out
}

func proportional(latest map[string]float64, factor float64) map[string]float64 {
	var peak float64
	for _, v := range latest {
		if v > peak {
			peak = v
		}
	}
	out := make(map[string]float64, len(latest))
	if peak <= 0 {
		return out
	}
	for d, v := range latest {
		out[d] = v / peak * factor
	}
	return out
}
