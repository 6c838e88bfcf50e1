package forecast

import (
	"log/slog"
	"math"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
)

// floorTolerance absorbs binary rounding so 0.138 × 10000 floors to 1380.
const floorTolerance = 1e-6

// Projector turns population forecasts into equipment demand.
type Projector struct {
	params *domain.Params
	logger *slog.Logger
}

// NewProjector creates a Projector.
func NewProjector(p *domain.Params, logger *slog.Logger) *Projector {
	return &Projector{params: p, logger: logger}
}

// Project computes demand per forecast year, district and category. Adoption
// grows linearly from the base year. Rows at or below the minimum demand are
// dropped. The territory total row is ignored.
func (p *Projector) Project(forecasts []domain.ForecastRecord) []domain.EquipmentDemandRecord {
	eq := p.params.Equipment
	var out []domain.EquipmentDemandRecord
	for _, year := range p.params.ForecastYears {
		factor := 1 + eq.AdoptionGrowthRate*float64(year-p.params.BaseYear)
		for _, f := range forecasts {
			if f.Aggregate {
				continue
			}
			pop := f.Predictions[year]
			for _, c := range eq.Categories {
				rate := c.AdoptionRate * factor
				demand := floorInt(float64(pop) * rate)
				if demand <= eq.MinDemand {
					continue
				}
				out = append(out, domain.EquipmentDemandRecord{
					District:          f.District,
					Year:              year,
					Category:          c.Name,
					ElderlyPopulation: pop,
					AdoptionRate:      math.Round(rate*1000) / 1000,
					EstimatedDemand:   demand,
					GrowthVsBase:      (factor - 1) * 100,
				})
			}
		}
	}
	p.logger.Info("equipment demand projected", "rows", len(out))
	return out
}

// Scenario applies the stress multipliers to the first forecast year's demand.
// Categories without a multiplier keep their baseline.
func (p *Projector) Scenario(demand []domain.EquipmentDemandRecord) []domain.ScenarioRecord {
	if len(p.params.ForecastYears) == 0 {
		return nil
	}
	year := p.params.ForecastYears[0]

	var out []domain.ScenarioRecord
	for _, d := range demand {
		if d.Year != year {
			continue
		}
		m := p.params.Multiplier(d.Category)
		scenario := floorInt(float64(d.EstimatedDemand) * m)
		out = append(out, domain.ScenarioRecord{
			District:       d.District,
			Category:       d.Category,
			NormalDemand:   d.EstimatedDemand,
			ScenarioDemand: scenario,
			Multiplier:     m,
			Difference:     scenario - d.EstimatedDemand,
		})
	}
	p.logger.Info("stress scenario applied", "scenario", p.params.Scenario.Name, "year", year, "rows", len(out))
	return out
}

func floorInt(v float64) int {
	return int(math.Floor(v + floorTolerance))
}
