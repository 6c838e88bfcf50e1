package artifact

import (
	"testing"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() *domain.Results {
	return &domain.Results{
		Districts: []domain.DistrictRecord{{
			District:          "Islands",
			ElderlyPopulation: map[int]int{2019: 100, 2020: 110},
			LatestElderly:     110,
			GrowthRate:        10,
			MedianIncome:      domain.Float(25000),
			IncomeSource:      "income_table",
			InactiveSource:    "household_table",
			AgeSource:         "age_table",
			IncomeScore:       0.25,
			ElderlyScore:      1,
			InactiveScore:     0.5,
			DemandPotential:   62.5,
		}},
		Forecasts: []domain.ForecastRecord{
			{District: "Islands", Predictions: map[int]int{2026: 130, 2025: 120}, AnnualGrowth: 10, R2: 1},
			{District: "Territory Total", Predictions: map[int]int{2025: 120, 2026: 130}, AnnualGrowth: 10, R2: 1, Aggregate: true},
		},
		Discharges: []domain.DischargeRecord{
			{Disease: "Diseases of the eye", ICD10: "H00-H59", ByYear: map[int]*float64{2020: nil, 2019: domain.Float(100)}, Average: 100},
		},
		Overlooked: []domain.DischargeRecord{
			{Disease: "Diseases of the eye", ICD10: "H00-H59", Average: 100},
		},
	}
}

func TestBuild_NamesAndOrder(t *testing.T) {
	tables := Build(&domain.Results{})
	require.Len(t, tables, len(Names))
	for i, tbl := range tables {
		assert.Equal(t, Names[i], tbl.Name)
		assert.NotEmpty(t, tbl.Header, "%s keeps its header when empty", tbl.Name)
		assert.Zero(t, tbl.Len())
	}
}

func TestBuild_DistrictMaster(t *testing.T) {
	dm := Build(sampleResults())[0]

	wantHeader := []string{
		"district_id", "elderly_2019", "elderly_2020",
		"latest_elderly", "growth_rate",
		"median_income", "inactive_ratio", "age_65_plus_pct", "labour_score",
		"income_source", "inactive_source", "age_source",
		"income_score", "elderly_score", "inactive_score", "demand_potential",
	}
	if diff := cmp.Diff(wantHeader, dm.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, 1, dm.Len())
	row := dm.Rows[0]
	assert.Len(t, row, len(dm.Header))
	assert.Equal(t, "Islands", row[0])
	assert.Equal(t, "100", row[1])
	assert.Equal(t, "25000", row[5])
	assert.Empty(t, row[6], "missing indicator is blank")
	assert.Equal(t, "income_table", row[9])
	assert.Equal(t, "62.5", row[15])
	assert.IsType(t, domain.DistrictRecord{}, dm.Records[0])
}

func TestBuild_YearColumnsSorted(t *testing.T) {
	tables := Build(sampleResults())

	fc := tables[2]
	assert.Equal(t, []string{"district_id", "2025", "2026", "annual_growth", "r2_score", "aggregate"}, fc.Header)
	assert.Equal(t, []string{"Territory Total", "120", "130", "10", "1", "true"}, fc.Rows[1])

	hd := tables[6]
	assert.Equal(t, []string{"disease", "icd10", "2019", "2020", "average"}, hd.Header)
	assert.Equal(t, []string{"Diseases of the eye", "H00-H59", "100", "", "100"}, hd.Rows[0])

	oc := tables[7]
	assert.Equal(t, []string{"disease", "icd10", "average"}, oc.Header)
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{62.5, "62.5"},
		{1.0 / 3, "0.3333333333333333"},
		{-12, "-12"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Float(tt.in))
		})
	}
	assert.Empty(t, Nullable(nil))
}
