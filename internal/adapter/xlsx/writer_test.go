package xlsx

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/gerontech-demand-etl/internal/artifact"
	"github.com/couchcryptid/gerontech-demand-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLoad_Workbook(t *testing.T) {
	w := NewWriter(t.TempDir(), discard)
	res := &domain.Results{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		Sources:     map[string]string{"income": "available", "households": "unavailable"},
		Equipment: []domain.EquipmentDemandRecord{{
			District: "Islands", Year: 2027, Category: "Mobility - Wheelchairs",
			ElderlyPopulation: 10000, AdoptionRate: 0.138, EstimatedDemand: 1380, GrowthVsBase: 15,
		}},
	}
	require.NoError(t, w.Load(context.Background(), res))

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, append([]string{SummarySheet}, artifact.Names...), sheets)

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_id", "run-1"}, summary[0])
	assert.Equal(t, []string{"generated_at", "2026-03-01T08:00:00Z"}, summary[1])
	assert.Contains(t, summary, []string{"equipment_demand", "1"})
	assert.Contains(t, summary, []string{"households", "unavailable"})

	rows, err := f.GetRows(artifact.EquipmentDemand)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "district_id", rows[0][0])
	assert.Equal(t, "1380", rows[1][5])

	typ, err := f.GetCellType(artifact.EquipmentDemand, "F2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "numbers are stored as numbers")
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"12.5", 12.5},
		{"Islands", "Islands"},
		{"NaN", "NaN"},
		{"H00-H59", "H00-H59"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.in))
		})
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter(t.TempDir(), discard).Load(ctx, &domain.Results{})
	assert.ErrorIs(t, err, context.Canceled)
}
