package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {
	p, err := DefaultParams()
	require.NoError(t, err)

	assert.Len(t, p.Districts, 18)
	assert.Len(t, p.ElderlyPopulation, 18)
	assert.Equal(t, 2024, p.BaseYear)
	assert.Equal(t, 2019, p.FirstYear())
	assert.Equal(t, 2024, p.LatestYear())
	assert.Equal(t, []int{2025, 2026, 2027, 2028, 2029, 2030}, p.ForecastYears)
	assert.Equal(t, "Territory Total", p.TerritoryLabel)
	assert.Len(t, p.Equipment.Categories, 9)
	assert.InDelta(t, 0.05, p.Equipment.AdoptionGrowthRate, 1e-12)
	assert.Equal(t, 100, p.Equipment.MinDemand)
	assert.InDelta(t, 30000, p.Fallback.MedianIncome, 1e-9)

	for _, d := range p.Districts {
		assert.Len(t, p.ElderlyPopulation[d], 6, d)
		assert.Contains(t, p.TotalPopulationThousands, d)
		assert.Contains(t, p.Fallback.IncomeByDistrict, d)
	}
	assert.Equal(t, []int{42000, 43200, 43600, 44200, 46400, 48600}, p.ElderlyPopulation["Central and Western"])
}

func TestParams_CanonicalDistrict(t *testing.T) {
	p, err := DefaultParams()
	require.NoError(t, err)

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Sha Tin", "Sha Tin", true},
		{"  sha   tin ", "Sha Tin", true},
		{"CENTRAL AND WESTERN", "Central and Western", true},
		{"Whole Territory", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := p.CanonicalDistrict(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Multiplier(t *testing.T) {
	p, err := DefaultParams()
	require.NoError(t, err)

	assert.InDelta(t, 3.5, p.Multiplier("Respiratory"), 1e-12)
	assert.InDelta(t, 1.0, p.Multiplier("Unlisted"), 1e-12)
}

func TestParseParams_Invalid(t *testing.T) {
	base := `
territory_label: T
base_year: 2024
historical_years: [2023, 2024]
forecast_years: [2025]
districts: [A, B]
fallback: {median_income: 1, inactive_ratio: 0.3, age_65_plus_pct: 20, elderly_inactive_factor: 0.5}
equipment:
  categories: [{name: X, adoption_rate: 0.1}]
scenario: {name: s}
`
	t.Run("valid minimal", func(t *testing.T) {
		p, err := ParseParams([]byte(base))
		require.NoError(t, err)
		assert.Empty(t, p.ElderlyPopulation)
	})

	t.Run("series length mismatch", func(t *testing.T) {
		_, err := ParseParams([]byte(base + "elderly_population: {A: [1, 2, 3]}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want 2 values")
	})

	t.Run("unknown district", func(t *testing.T) {
		_, err := ParseParams([]byte(base + "elderly_population: {Z: [1, 2]}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown district")
	})

	t.Run("forecast before base year", func(t *testing.T) {
		_, err := ParseParams([]byte(strings.Replace(base, "forecast_years: [2025]", "forecast_years: [2024]", 1)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start after base_year")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseParams([]byte("districts: [A"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode params")
	})

	t.Run("out of range fallback", func(t *testing.T) {
		bad := `
territory_label: T
base_year: 2024
historical_years: [2023, 2024]
forecast_years: [2025]
districts: [A]
fallback: {median_income: 1, inactive_ratio: 1.5, age_65_plus_pct: 20}
equipment:
  categories: [{name: X, adoption_rate: 0.1}]
scenario: {name: s}
`
		_, err := ParseParams([]byte(bad))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "InactiveRatio")
	})
}

func TestLoadParams(t *testing.T) {
	t.Run("empty path uses embedded default", func(t *testing.T) {
		p, err := LoadParams("")
		require.NoError(t, err)
		assert.Len(t, p.Districts, 18)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "params.yaml")
		require.NoError(t, os.WriteFile(path, defaultParamsYAML, 0o600))
		p, err := LoadParams(path)
		require.NoError(t, err)
		assert.Len(t, p.Districts, 18)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadParams(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read params")
	})
}

func TestSetClock(t *testing.T) {
	frozen := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	assert.Equal(t, frozen, Now())
}
