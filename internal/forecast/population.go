// Package forecast projects the elderly population forward by linear trend and
// derives assistive equipment demand, baseline and under a stress scenario.
package forecast

import (
	"log/slog"
	"math"

	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Forecaster fits a least-squares line to each district's elderly series.
type Forecaster struct {
	params *domain.Params
	logger *slog.Logger
}

// NewForecaster creates a Forecaster.
func NewForecaster(p *domain.Params, logger *slog.Logger) *Forecaster {
	return &Forecaster{params: p, logger: logger}
}

// Forecast returns one record per district in configured order, followed by
// the territory total. The total sums the district predictions and reports the
// mean slope and mean R² of the district fits.
func (f *Forecaster) Forecast(records []domain.DistrictRecord) []domain.ForecastRecord {
	byDistrict := make(map[string]domain.DistrictRecord, len(records))
	for _, r := range records {
		byDistrict[r.District] = r
	}

	out := make([]domain.ForecastRecord, 0, len(records)+1)
	for _, d := range f.params.Districts {
		r, ok := byDistrict[d]
		if !ok {
			continue
		}
		out = append(out, f.fit(r))
	}
	if len(out) == 0 {
		return out
	}

	total := domain.ForecastRecord{
		District:    f.params.TerritoryLabel,
		Predictions: make(map[int]int, len(f.params.ForecastYears)),
		Aggregate:   true,
	}
	for _, r := range out {
		for y, v := range r.Predictions {
			total.Predictions[y] += v
		}
		total.AnnualGrowth += r.AnnualGrowth
		total.R2 += r.R2
	}
	n := float64(len(out))
	total.AnnualGrowth /= n
	total.R2 /= n

	last := f.params.ForecastYears[len(f.params.ForecastYears)-1]
	f.logger.Info("elderly population forecast",
		"districts", len(out), "year", last, "territory_total", total.Predictions[last])
	return append(out, total)
}

func (f *Forecaster) fit(r domain.DistrictRecord) domain.ForecastRecord {
	years := f.params.HistoricalYears
	xs := make([]float64, len(years))
	ys := make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
		ys[i] = float64(r.ElderlyPopulation[y])
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}

	preds := make(map[int]int, len(f.params.ForecastYears))
	for _, y := range f.params.ForecastYears {
		preds[y] = predict(alpha, beta, y)
	}
	return domain.ForecastRecord{
		District:     r.District,
		Predictions:  preds,
		AnnualGrowth: beta,
		R2:           r2,
	}
}

// predict evaluates the fitted line, rounded to whole persons and floored at zero.
func predict(alpha, beta float64, year int) int {
	v := math.Round(alpha + beta*float64(year))
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
