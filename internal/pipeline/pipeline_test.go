package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/config"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/couchcryptid/gerontech-demand-etl/internal/ingest"
	"github.com/couchcryptid/gerontech-demand-etl/internal/mockdata"
	"github.com/couchcryptid/gerontech-demand-etl/internal/observability"
	"github.com/couchcryptid/gerontech-demand-etl/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	name  string
	err   error
	calls int
	got   *domain.Results
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(_ context.Context, res *domain.Results) error {
	m.calls++
	m.got = res
	return m.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testParams(t *testing.T) *domain.Params {
	t.Helper()
	p, err := domain.DefaultParams()
	require.NoError(t, err)
	return p
}

// newExtractor writes mock sources to a temp dir and reads them back through
// the real ingest stage.
func newExtractor(t *testing.T, p *domain.Params, metrics *observability.Metrics, opts *mockdata.Options) *ingest.Extractor {
	t.Helper()
	dir := t.TempDir()
	if opts != nil {
		require.NoError(t, mockdata.Write(dir, p, *opts))
	}
	cfg := &config.Config{DataDir: dir, Sources: config.DefaultSources()}
	return ingest.NewExtractor(ingest.NewReader(p, discard, metrics), ingest.FilesFromConfig(cfg))
}

func freezeClock(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
	return now
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	now := freezeClock(t)
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv"}
	optional := &mockLoader{name: "xlsx"}

	pl := pipeline.New(p, newExtractor(t, p, metrics, &mockdata.Options{Seed: 3}), primary, []pipeline.Loader{optional}, discard, metrics)

	res, err := pl.Run(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err, "run id is a uuid")
	assert.Equal(t, now, res.GeneratedAt)

	assert.Len(t, res.Districts, len(p.Districts))
	assert.Len(t, res.ServiceGaps, len(p.Districts))
	assert.Len(t, res.Forecasts, len(p.Districts)+1)
	assert.NotEmpty(t, res.Equipment)
	assert.NotEmpty(t, res.Scenario)
	assert.NotEmpty(t, res.DeathsByCause)
	assert.LessOrEqual(t, len(res.Discharges), 20)
	assert.LessOrEqual(t, len(res.Overlooked), 10)
	assert.Equal(t, ingest.StatusAvailable, res.Sources[ingest.SourceIncome])

	for _, d := range res.Districts {
		assert.Equal(t, "income_table", d.IncomeSource, d.District)
	}

	assert.Equal(t, 1, primary.calls)
	assert.Same(t, res, primary.got)
	assert.Equal(t, 1, optional.calls)

	assert.InDelta(t, float64(len(p.Districts)),
		testutil.ToFloat64(metrics.ArtifactRows.WithLabelValues(artifact.DistrictMaster, "csv")), 0)
	assert.InDelta(t, float64(len(p.Districts)),
		testutil.ToFloat64(metrics.ArtifactRows.WithLabelValues(artifact.DistrictMaster, "xlsx")), 0)
	assert.InDelta(t, float64(now.Unix()), testutil.ToFloat64(metrics.LastSuccess), 0)
	assert.Equal(t, 8, testutil.CollectAndCount(metrics.StageDuration), "one series per stage")
}

func TestPipeline_Run_NoSourcesDegrades(t *testing.T) {
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv"}

	res, err := pipeline.New(p, newExtractor(t, p, metrics, nil), primary, nil, discard, metrics).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Districts, len(p.Districts))
	for _, d := range res.Districts {
		assert.GreaterOrEqual(t, d.DemandPotential, 0.0)
		assert.LessOrEqual(t, d.DemandPotential, 100.0)
		assert.NotEqual(t, "income_table", d.IncomeSource)
	}
	assert.Len(t, res.ServiceGaps, len(p.Districts))
	assert.Empty(t, res.DeathsByCause)
	assert.Empty(t, res.Discharges)
	assert.Equal(t, 1, primary.calls)
}

func TestPipeline_Run_OptionalLoaderFailureIsNotFatal(t *testing.T) {
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv"}
	broken := &mockLoader{name: "kafka", err: errors.New("broker down")}
	after := &mockLoader{name: "xlsx"}

	_, err := pipeline.New(p, newExtractor(t, p, metrics, nil), primary, []pipeline.Loader{broken, after}, discard, metrics).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, after.calls, "later sinks still run")
	assert.Zero(t, testutil.ToFloat64(metrics.ArtifactRows.WithLabelValues(artifact.DistrictMaster, "kafka")))
	assert.NotZero(t, testutil.ToFloat64(metrics.LastSuccess))
}

func TestPipeline_Run_PrimaryLoaderFailureAborts(t *testing.T) {
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv", err: errors.New("disk full")}
	optional := &mockLoader{name: "xlsx"}

	res, err := pipeline.New(p, newExtractor(t, p, metrics, nil), primary, []pipeline.Loader{optional}, discard, metrics).
		Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "load csv")
	assert.Zero(t, optional.calls)
	assert.Zero(t, testutil.ToFloat64(metrics.LastSuccess))
}

func TestPipeline_Run_MissingBaseSeries(t *testing.T) {
	p := testParams(t)
	p.ElderlyPopulation = nil
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv"}

	_, err := pipeline.New(p, newExtractor(t, p, metrics, nil), primary, nil, discard, metrics).Run(context.Background())
	require.ErrorIs(t, err, domain.ErrBaseSourceMissing)
	assert.Zero(t, primary.calls)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New(p, newExtractor(t, p, metrics, &mockdata.Options{}), primary, nil, discard, metrics).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, primary.calls)
}

type probeExtractor struct {
	inner pipeline.Extractor
	probe func()
}

func (e *probeExtractor) Extract(ctx context.Context) *ingest.Catalog {
	e.probe()
	return e.inner.Extract(ctx)
}

func TestPipeline_StatusAndReadiness(t *testing.T) {
	now := freezeClock(t)
	p := testParams(t)
	metrics := newTestMetrics()

	var during pipeline.Status
	var duringErr error
	ex := &probeExtractor{inner: newExtractor(t, p, metrics, nil)}
	pl := pipeline.New(p, ex, &mockLoader{name: "csv"}, nil, discard, metrics)
	ex.probe = func() {
		during = pl.Status()
		duringErr = pl.CheckReadiness(context.Background())
	}

	assert.Equal(t, pipeline.StateIdle, pl.Status().State)
	require.ErrorContains(t, pl.CheckReadiness(context.Background()), "no run has completed")

	res, err := pl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateRunning, during.State)
	assert.Equal(t, pipeline.StageIngest, during.Stage)
	assert.Equal(t, res.RunID, during.RunID)
	require.ErrorContains(t, duringErr, "stage ingest")

	st := pl.Status()
	assert.Equal(t, pipeline.StateSucceeded, st.State)
	assert.Empty(t, st.Stage)
	require.NotNil(t, st.FinishedAt)
	assert.Equal(t, now, *st.FinishedAt)
	assert.NoError(t, pl.CheckReadiness(context.Background()))
}

func TestPipeline_ReadinessAfterFailure(t *testing.T) {
	p := testParams(t)
	metrics := newTestMetrics()
	primary := &mockLoader{name: "csv", err: errors.New("disk full")}

	pl := pipeline.New(p, newExtractor(t, p, metrics, nil), primary, nil, discard, metrics)
	_, err := pl.Run(context.Background())
	require.Error(t, err)

	st := pl.Status()
	assert.Equal(t, pipeline.StateFailed, st.State)
	assert.Contains(t, st.Error, "disk full")
	assert.ErrorContains(t, pl.CheckReadiness(context.Background()), "last run failed")
}
