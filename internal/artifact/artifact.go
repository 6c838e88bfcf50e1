// Package artifact renders pipeline results as the flat tables every sink
// emits. Sinks differ only in encoding; column layout lives here.
package artifact

import (
	"maps"
	"slices"
	"strconv"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
)

// Artifact names, in emission order.
const (
	DistrictMaster       = "district_master"
	ServiceGaps          = "service_gaps"
	ForecastElderly      = "forecast_elderly"
	EquipmentDemand      = "equipment_demand"
	PandemicScenario     = "pandemic_scenario"
	DeathsByCause        = "deaths_by_cause"
	HospitalDischarges   = "hospital_discharges"
	OverlookedConditions = "overlooked_conditions"
)

// Names lists every artifact a run emits.
var Names = []string{
	DistrictMaster,
	ServiceGaps,
	ForecastElderly,
	EquipmentDemand,
	PandemicScenario,
	DeathsByCause,
	HospitalDischarges,
	OverlookedConditions,
}

// Table is one artifact. Rows are string-encoded for tabular sinks; Records
// hold the typed rows, index-aligned with Rows, for structured sinks.
type Table struct {
	Name    string
	Header  []string
	Rows    [][]string
	Records []any
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Build renders every artifact of a run, in Names order. Tables without
// records still carry their header.
func Build(res *domain.Results) []Table {
	return []Table{
		districtMaster(res.Districts),
		serviceGaps(res.ServiceGaps),
		forecastElderly(res.Forecasts),
		equipmentDemand(res.Equipment),
		pandemicScenario(res.Scenario),
		deathsByCause(res.DeathsByCause),
		discharges(HospitalDischarges, res.Discharges, true),
		discharges(OverlookedConditions, res.Overlooked, false),
	}
}

func districtMaster(recs []domain.DistrictRecord) Table {
	years := yearsOf(len(recs), func(i int) []int { return slices.Collect(maps.Keys(recs[i].ElderlyPopulation)) })

	header := []string{"district_id"}
	for _, y := range years {
		header = append(header, "elderly_"+strconv.Itoa(y))
	}
	header = append(header,
		"latest_elderly", "growth_rate",
		"median_income", "inactive_ratio", "age_65_plus_pct", "labour_score",
		"income_source", "inactive_source", "age_source",
		"income_score", "elderly_score", "inactive_score", "demand_potential",
	)

	t := Table{Name: DistrictMaster, Header: header}
	for _, r := range recs {
		row := []string{r.District}
		for _, y := range years {
			v, ok := r.ElderlyPopulation[y]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.Itoa(v))
		}
		row = append(row,
			strconv.Itoa(r.LatestElderly), Float(r.GrowthRate),
			Nullable(r.MedianIncome), Nullable(r.InactiveRatio), Nullable(r.Age65PlusPct), Nullable(r.LabourScore),
			r.IncomeSource, r.InactiveSource, r.AgeSource,
			Float(r.IncomeScore), Float(r.ElderlyScore), Float(r.InactiveScore), Float(r.DemandPotential),
		)
		t.Rows = append(t.Rows, row)
		t.Records = append(t.Records, r)
	}
	return t
}

func serviceGaps(recs []domain.ServiceGapRecord) Table {
	t := Table{Name: ServiceGaps, Header: []string{
		"district_id", "latest_elderly", "demand_potential", "median_income", "income_norm",
		"labour_score", "estimated_service", "service_gap", "gap_status",
		"priority_score", "priority", "tier",
	}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{
			r.District, strconv.Itoa(r.LatestElderly), Float(r.DemandPotential),
			Nullable(r.MedianIncome), Float(r.IncomeNorm), Nullable(r.LabourScore),
			Float(r.EstimatedService), Float(r.ServiceGap), r.GapStatus,
			Float(r.PriorityScore), r.Priority, strconv.Itoa(r.Tier),
		})
		t.Records = append(t.Records, r)
	}
	return t
}

func forecastElderly(recs []domain.ForecastRecord) Table {
	years := yearsOf(len(recs), func(i int) []int { return slices.Collect(maps.Keys(recs[i].Predictions)) })

	header := []string{"district_id"}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	header = append(header, "annual_growth", "r2_score", "aggregate")

	t := Table{Name: ForecastElderly, Header: header}
	for _, r := range recs {
		row := []string{r.District}
		for _, y := range years {
			row = append(row, strconv.Itoa(r.Predictions[y]))
		}
		row = append(row, Float(r.AnnualGrowth), Float(r.R2), strconv.FormatBool(r.Aggregate))
		t.Rows = append(t.Rows, row)
		t.Records = append(t.Records, r)
	}
	return t
}

func equipmentDemand(recs []domain.EquipmentDemandRecord) Table {
	t := Table{Name: EquipmentDemand, Header: []string{
		"district_id", "year", "category", "elderly_population",
		"adoption_rate", "estimated_demand", "growth_vs_base",
	}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{
			r.District, strconv.Itoa(r.Year), r.Category, strconv.Itoa(r.ElderlyPopulation),
			Float(r.AdoptionRate), strconv.Itoa(r.EstimatedDemand), Float(r.GrowthVsBase),
		})
		t.Records = append(t.Records, r)
	}
	return t
}

func pandemicScenario(recs []domain.ScenarioRecord) Table {
	t := Table{Name: PandemicScenario, Header: []string{
		"district_id", "category", "normal_demand", "scenario_demand", "multiplier", "difference",
	}}
	for _, r := range recs {
		t.Rows = append(t.Rows, []string{
			r.District, r.Category, strconv.Itoa(r.NormalDemand), strconv.Itoa(r.ScenarioDemand),
			Float(r.Multiplier), strconv.Itoa(r.Difference),
		})
		t.Records = append(t.Records, r)
	}
	return t
}

func deathsByCause(recs []domain.CauseOfDeathRecord) Table {
	years := yearsOf(len(recs), func(i int) []int { return slices.Collect(maps.Keys(recs[i].ByYear)) })

	header := []string{"cause"}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	header = append(header, "total")

	t := Table{Name: DeathsByCause, Header: header}
	for _, r := range recs {
		row := []string{r.Cause}
		for _, y := range years {
			row = append(row, Float(r.ByYear[y]))
		}
		row = append(row, Float(r.Total))
		t.Rows = append(t.Rows, row)
		t.Records = append(t.Records, r)
	}
	return t
}

// discharges renders discharge groups; the overlooked table omits year columns.
func discharges(name string, recs []domain.DischargeRecord, withYears bool) Table {
	var years []int
	if withYears {
		years = yearsOf(len(recs), func(i int) []int { return slices.Collect(maps.Keys(recs[i].ByYear)) })
	}

	header := []string{"disease", "icd10"}
	for _, y := range years {
		header = append(header, strconv.Itoa(y))
	}
	header = append(header, "average")

	t := Table{Name: name, Header: header}
	for _, r := range recs {
		row := []string{r.Disease, r.ICD10}
		for _, y := range years {
			row = append(row, Nullable(r.ByYear[y]))
		}
		row = append(row, Float(r.Average))
		t.Rows = append(t.Rows, row)
		t.Records = append(t.Records, r)
	}
	return t
}

// Float encodes v in the shortest form that parses back to the same value.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Nullable encodes a missing value as the empty string.
func Nullable(v *float64) string {
	if v == nil {
		return ""
	}
	return Float(*v)
}

// yearsOf unions the year keys of n records, ascending.
func yearsOf(n int, keys func(i int) []int) []int {
	seen := make(map[int]struct{})
	for i := range n {
		for _, y := range keys(i) {
			seen[y] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
