// Package pipeline runs the batch stages in dependency order and hands the
// results to the configured sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/forecast"
	"github.com/couchcryptid/gerontech-demand-etl/internal/gap"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
	"github.com/couchcryptid/gerontech-demand-etl/internal/morbidity"
	"github.com/couchcryptid/gerontech-demand-etl/internal/observability"
	"github.com/couchcryptid/gerontech-demand-etl/internal/reconcile"
	"github.com/google/uuid"
)

// Stage labels used in logs and the stage duration metric.
const (
	StageIngest    = "ingest"
	StageReconcile = "reconcile"
	StageGap       = "gap"
	StageForecast  = "forecast"
	StageEquipment = "equipment"
	StageScenario  = "scenario"
	StageMorbidity = "morbidity"
	StageLoad      = "load"
)

// Extractor reads every raw source of a run.
type Extractor interface {
	Extract(ctx context.Context) *ingest.Catalog
}

// Loader writes the results of a run to one sink.
type Loader interface {
	Name() string
	Load(ctx context.Context, res *domain.Results) error
}

// Run states reported by Status.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Status is a point-in-time view of the current or last run.
type Status struct {
	RunID      string     `json:"run_id,omitempty"`
	State      string     `json:"state"`
	Stage      string     `json:"stage,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Pipeline orchestrates one extract-transform-load pass.
type Pipeline struct {
	extractor  Extractor
	reconciler *reconcile.Reconciler
	scorer     *gap.Scorer
	forecaster *forecast.Forecaster
	projector  *forecast.Projector
	summarizer *morbidity.Summarizer
	primary    Loader
	optional   []Loader
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu     sync.Mutex
	status Status
}

// New creates a Pipeline. The primary loader must succeed for a run to
// count as successful; optional loaders only log their failures.
func New(p *domain.Params, e Extractor, primary Loader, optional []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:  e,
		reconciler: reconcile.New(p, logger, metrics),
		scorer:     gap.NewScorer(p, logger),
		forecaster: forecast.NewForecaster(p, logger),
		projector:  forecast.NewProjector(p, logger),
		summarizer: morbidity.New(p, logger),
		primary:    primary,
		optional:   optional,
		logger:     logger,
		metrics:    metrics,
		status:     Status{State: StateIdle},
	}
}

// Status returns a copy of the current run status.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// CheckReadiness reports ready once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	st := p.Status()
	switch st.State {
	case StateSucceeded:
		return nil
	case StateRunning:
		return fmt.Errorf("run in progress at stage %s", st.Stage)
	case StateFailed:
		return fmt.Errorf("last run failed: %s", st.Error)
	default:
		return errors.New("no run has completed")
	}
}

func (p *Pipeline) update(fn func(*Status)) {
	p.mu.Lock()
	fn(&p.status)
	p.mu.Unlock()
}

// Run executes every stage once, in order. It fails only when the elderly
// population series is missing, the context ends, or the primary loader
// fails; every other problem degrades the results instead.
func (p *Pipeline) Run(ctx context.Context) (*domain.Results, error) {
	res := &domain.Results{
		RunID:       uuid.NewString(),
		GeneratedAt: domain.Now(),
	}
	p.update(func(s *Status) {
		started := res.GeneratedAt
		*s = Status{RunID: res.RunID, State: StateRunning, StartedAt: &started}
	})

	out, err := p.run(ctx, res)

	p.update(func(s *Status) {
		finished := domain.Now()
		s.FinishedAt = &finished
		s.Stage = ""
		if err != nil {
			s.State = StateFailed
			s.Error = err.Error()
			return
		}
		s.State = StateSucceeded
	})
	return out, err
}

func (p *Pipeline) run(ctx context.Context, res *domain.Results) (*domain.Results, error) {
	logger := p.logger.With("run_id", res.RunID)
	logger.Info("pipeline started")
	start := time.Now()

	var catalog *ingest.Catalog
	p.observe(StageIngest, func() { catalog = p.extractor.Extract(ctx) })
	res.Sources = catalog.Status()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	var err error
	p.observe(StageReconcile, func() {
		res.Districts, err = p.reconciler.Reconcile(reconcile.InputsFromCatalog(catalog))
	})
	if err != nil {
		logger.Error("reconcile failed", "error", err)
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	p.observe(StageGap, func() { res.ServiceGaps = p.scorer.Score(res.Districts) })
	p.observe(StageForecast, func() { res.Forecasts = p.forecaster.Forecast(res.Districts) })
	p.observe(StageEquipment, func() { res.Equipment = p.projector.Project(res.Forecasts) })
	p.observe(StageScenario, func() { res.Scenario = p.projector.Scenario(res.Equipment) })
	p.observe(StageMorbidity, func() {
		res.DeathsByCause = p.summarizer.DeathsByCause(catalog.Deaths())
		discharges, _ := catalog.Table(ingest.SourceHospitalDischarges)
		res.Discharges = p.summarizer.Discharges(discharges)
		res.Overlooked = p.summarizer.Overlooked(res.Discharges)
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("before load: %w", err)
	}
	p.observe(StageLoad, func() { err = p.load(ctx, logger, res) })
	if err != nil {
		return nil, err
	}

	p.metrics.LastSuccess.Set(float64(domain.Now().Unix()))
	logger.Info("pipeline finished",
		"districts", len(res.Districts),
		"equipment_rows", len(res.Equipment),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, res *domain.Results) error {
	tables := artifact.Build(res)

	if err := p.primary.Load(ctx, res); err != nil {
		logger.Error("primary load failed", "sink", p.primary.Name(), "error", err)
		return fmt.Errorf("load %s: %w", p.primary.Name(), err)
	}
	p.countRows(p.primary.Name(), tables)

	for _, l := range p.optional {
		if err := l.Load(ctx, res); err != nil {
			logger.Warn("optional load failed", "sink", l.Name(), "error", err)
			continue
		}
		p.countRows(l.Name(), tables)
	}
	return nil
}

func (p *Pipeline) countRows(sink string, tables []artifact.Table) {
	for _, t := range tables {
		p.metrics.ArtifactRows.WithLabelValues(t.Name, sink).Add(float64(t.Len()))
	}
}

func (p *Pipeline) observe(stage string, fn func()) {
	p.update(func(s *Status) { s.Stage = stage })
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	p.metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	p.logger.Debug("stage finished", "stage", stage, "duration", elapsed)
}
