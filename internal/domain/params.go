package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

//go:embed params.yaml
var defaultParamsYAML []byte

// Params is the immutable parameter set injected into every pipeline stage:
// the district universe, the base population series, fallback constants,
// scoring weights and equipment assumptions.
type Params struct {
	TerritoryLabel  string `yaml:"territory_label" validate:"required"`
	BaseYear        int    `yaml:"base_year" validate:"required"`
	HistoricalYears []int  `yaml:"historical_years" validate:"required,min=2,dive,gt=0"`
	ForecastYears   []int  `yaml:"forecast_years" validate:"required,min=1,dive,gt=0"`

	Districts         []string         `yaml:"districts" validate:"required,min=1,unique,dive,required"`
	ElderlyPopulation map[string][]int `yaml:"elderly_population"`

	TotalPopulationThousands map[string]float64 `yaml:"total_population_thousands" validate:"dive,gt=0"`

	Fallback  FallbackParams  `yaml:"fallback"`
	Weights   WeightParams    `yaml:"weights"`
	Equipment EquipmentParams `yaml:"equipment"`
	Scenario  ScenarioParams  `yaml:"scenario"`
	Keywords  KeywordParams   `yaml:"keywords"`
}

// FallbackParams holds the values substituted when a source cannot supply an indicator.
type FallbackParams struct {
	MedianIncome          float64            `yaml:"median_income" validate:"gt=0"`
	InactiveRatio         float64            `yaml:"inactive_ratio" validate:"gte=0,lte=1"`
	Age65PlusPct          float64            `yaml:"age_65_plus_pct" validate:"gte=0,lte=100"`
	ElderlyInactiveFactor float64            `yaml:"elderly_inactive_factor" validate:"gte=0,lte=1"`
	IncomeByDistrict      map[string]float64 `yaml:"income_by_district" validate:"dive,gt=0"`
}

// WeightParams holds the composite weights of the demand and service indices.
type WeightParams struct {
	Demand struct {
		Elderly  float64 `yaml:"elderly" validate:"gte=0,lte=1"`
		Income   float64 `yaml:"income" validate:"gte=0,lte=1"`
		Inactive float64 `yaml:"inactive" validate:"gte=0,lte=1"`
	} `yaml:"demand"`
	Service struct {
		Income float64 `yaml:"income" validate:"gte=0,lte=1"`
		Labour float64 `yaml:"labour" validate:"gte=0,lte=1"`
	} `yaml:"service"`
}

// EquipmentParams holds the adoption assumptions of the demand projector.
type EquipmentParams struct {
	AdoptionGrowthRate float64             `yaml:"adoption_growth_rate" validate:"gte=0"`
	MinDemand          int                 `yaml:"min_demand" validate:"gte=0"`
	Categories         []EquipmentCategory `yaml:"categories" validate:"required,min=1,dive"`
}

// EquipmentCategory is one equipment category and its baseline adoption rate,
// as a fraction of the elderly population.
type EquipmentCategory struct {
	Name         string  `yaml:"name" validate:"required"`
	AdoptionRate float64 `yaml:"adoption_rate" validate:"gt=0,lte=1"`
}

// ScenarioParams holds a named stress scenario as per-category demand multipliers.
type ScenarioParams struct {
	Name        string             `yaml:"name" validate:"required"`
	Multipliers map[string]float64 `yaml:"multipliers" validate:"dive,gte=0"`
}

// KeywordParams holds substring lists used to drop non-data rows.
type KeywordParams struct {
	NonData           []string `yaml:"non_data"`
	OverlookedExclude []string `yaml:"overlooked_exclude"`
}

// DefaultParams returns the embedded Hong Kong parameter set.
func DefaultParams() (*Params, error) {
	return ParseParams(defaultParamsYAML)
}

// LoadParams reads a parameter set from a YAML file. An empty path selects the
// embedded default.
func LoadParams(path string) (*Params, error) {
	if path == "" {
		return DefaultParams()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}
	return ParseParams(data)
}

// ParseParams decodes and validates a YAML parameter set.
func ParseParams(data []byte) (*Params, error) {
	var p Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks field constraints and cross-field consistency. A missing
// elderly population series is not a validation error; the reconciler reports
// it as ErrBaseSourceMissing.
func (p *Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	var errs []error
	if !sort.IntsAreSorted(p.HistoricalYears) {
		errs = append(errs, errors.New("historical_years must be ascending"))
	}
	if !sort.IntsAreSorted(p.ForecastYears) {
		errs = append(errs, errors.New("forecast_years must be ascending"))
	}
	if len(p.ForecastYears) > 0 && p.ForecastYears[0] <= p.BaseYear {
		errs = append(errs, errors.New("forecast_years must start after base_year"))
	}
	for district, series := range p.ElderlyPopulation {
		if _, ok := p.CanonicalDistrict(district); !ok {
			errs = append(errs, fmt.Errorf("elderly_population: unknown district %q", district))
			continue
		}
		if len(series) != len(p.HistoricalYears) {
			errs = append(errs, fmt.Errorf("elderly_population[%s]: want %d values, got %d",
				district, len(p.HistoricalYears), len(series)))
		}
		for _, v := range series {
			if v < 0 {
				errs = append(errs, fmt.Errorf("elderly_population[%s]: negative value %d", district, v))
				break
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// CanonicalDistrict maps a raw district label onto the configured spelling.
// Matching ignores case and repeated whitespace.
func (p *Params) CanonicalDistrict(raw string) (string, bool) {
	key := normalizeName(raw)
	if key == "" {
		return "", false
	}
	for _, d := range p.Districts {
		if normalizeName(d) == key {
			return d, true
		}
	}
	return "", false
}

// FirstYear returns the earliest historical year.
func (p *Params) FirstYear() int {
	return p.HistoricalYears[0]
}

// LatestYear returns the most recent historical year.
func (p *Params) LatestYear() int {
	return p.HistoricalYears[len(p.HistoricalYears)-1]
}

// Multiplier returns the scenario multiplier for a category, 1.0 when unlisted.
func (p *Params) Multiplier(category string) float64 {
	if m, ok := p.Scenario.Multipliers[category]; ok {
		return m
	}
	return 1.0
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
