package csvfile

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestLoad_WritesEveryArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, discard)

	res := &domain.Results{
		ServiceGaps: []domain.ServiceGapRecord{{
			District: "Islands", DemandPotential: 70, EstimatedService: 40, ServiceGap: 30,
			GapStatus: domain.Underserved, PriorityScore: 42, Priority: domain.PriorityHigh, Tier: 1,
		}},
	}
	require.NoError(t, w.Load(context.Background(), res))

	for _, name := range artifact.Names {
		rows := readCSV(t, Path(dir, name))
		assert.NotEmpty(t, rows, "%s has a header row", name)
	}

	gaps := readCSV(t, Path(dir, artifact.ServiceGaps))
	require.Len(t, gaps, 2)
	assert.Equal(t, "district_id", gaps[0][0])
	assert.Equal(t, "Islands", gaps[1][0])
	assert.Equal(t, "Underserved", gaps[1][8])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(artifact.Names), "no temp files left behind")
}

func TestLoad_OverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, discard)

	first := &domain.Results{Scenario: []domain.ScenarioRecord{
		{District: "A", Category: "Respiratory"}, {District: "B", Category: "Respiratory"},
	}}
	require.NoError(t, w.Load(context.Background(), first))
	require.NoError(t, w.Load(context.Background(), &domain.Results{}))

	assert.Len(t, readCSV(t, Path(dir, artifact.PandemicScenario)), 1)
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter(t.TempDir(), discard).Load(ctx, &domain.Results{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoad_UnwritableDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := NewWriter(filepath.Join(file, "out"), discard).Load(context.Background(), &domain.Results{})
	assert.Error(t, err)
}
