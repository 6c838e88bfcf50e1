package domain

import (
	"time"
)

// Gap status labels.
const (
	Underserved = "Underserved"
	WellServed  = "Well-served"
)

// Priority labels, in ascending order.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// DistrictRecord is the reconciled, scored view of one district.
// It is built once per run by the reconciler and only read afterwards.
type DistrictRecord struct {
	District          string      `json:"district_id"`
	ElderlyPopulation map[int]int `json:"elderly_population"`
	LatestElderly     int         `json:"latest_elderly"`
	GrowthRate        float64     `json:"growth_rate"`

	MedianIncome  *float64 `json:"median_income"`
	InactiveRatio *float64 `json:"inactive_ratio"`
	Age65PlusPct  *float64 `json:"age_65_plus_pct"`
	LabourScore   *float64 `json:"labour_score,omitempty"`

	// Name of the strategy that produced each optional indicator.
	IncomeSource   string `json:"income_source"`
	InactiveSource string `json:"inactive_source"`
	AgeSource      string `json:"age_source"`

	IncomeScore     float64 `json:"income_score"`
	ElderlyScore    float64 `json:"elderly_score"`
	InactiveScore   float64 `json:"inactive_score"`
	DemandPotential float64 `json:"demand_potential"`
}

// ServiceGapRecord compares a district's demand with its estimated service penetration.
type ServiceGapRecord struct {
	District         string   `json:"district_id"`
	LatestElderly    int      `json:"latest_elderly"`
	DemandPotential  float64  `json:"demand_potential"`
	MedianIncome     *float64 `json:"median_income"`
	IncomeNorm       float64  `json:"income_norm"`
	LabourScore      *float64 `json:"labour_score"`
	EstimatedService float64  `json:"estimated_service"`
	ServiceGap       float64  `json:"service_gap"`
	GapStatus        string   `json:"gap_status"`
	PriorityScore    float64  `json:"priority_score"`
	Priority         string   `json:"priority"`
	Tier             int      `json:"tier"`
}

// ForecastRecord holds the projected elderly population of one district, or of
// the whole territory when Aggregate is set.
type ForecastRecord struct {
	District     string      `json:"district_id"`
	Predictions  map[int]int `json:"predictions"`
	AnnualGrowth float64     `json:"annual_growth"`
	R2           float64     `json:"r2_score"`
	Aggregate    bool        `json:"aggregate"`
}

// EquipmentDemandRecord is the projected demand for one equipment category in
// one district and year.
type EquipmentDemandRecord struct {
	District          string  `json:"district_id"`
	Year              int     `json:"year"`
	Category          string  `json:"category"`
	ElderlyPopulation int     `json:"elderly_population"`
	AdoptionRate      float64 `json:"adoption_rate"`
	EstimatedDemand   int     `json:"estimated_demand"`
	GrowthVsBase      float64 `json:"growth_vs_base"` // percent
}

// ScenarioRecord is the stress-scenario variant of a baseline demand row.
type ScenarioRecord struct {
	District       string  `json:"district_id"`
	Category       string  `json:"category"`
	NormalDemand   int     `json:"normal_demand"`
	ScenarioDemand int     `json:"scenario_demand"`
	Multiplier     float64 `json:"multiplier"`
	Difference     int     `json:"difference"`
}

// CauseOfDeathRecord is one row of the cause x year mortality pivot.
type CauseOfDeathRecord struct {
	Cause  string          `json:"cause"`
	ByYear map[int]float64 `json:"by_year"`
	Total  float64         `json:"total"`
}

// DischargeRecord is one disease group of the inpatient discharge table.
// Year values are nil when the source cell was blank or unparseable.
type DischargeRecord struct {
	Disease string           `json:"disease"`
	ICD10   string           `json:"icd10"`
	ByYear  map[int]*float64 `json:"by_year"`
	Average float64          `json:"average"`
}

// Results bundles every table a pipeline run produces.
type Results struct {
	RunID       string
	GeneratedAt time.Time

	Districts   []DistrictRecord
	ServiceGaps []ServiceGapRecord
	Forecasts   []ForecastRecord
	Equipment   []EquipmentDemandRecord
	Scenario    []ScenarioRecord

	DeathsByCause []CauseOfDeathRecord
	Discharges    []DischargeRecord
	Overlooked    []DischargeRecord

	// Sources lists the outcome of every ingestion attempt, keyed by source name.
	Sources map[string]string
}

// Float returns a pointer to v, for populating nullable fields.
func Float(v float64) *float64 {
	return &v
}
