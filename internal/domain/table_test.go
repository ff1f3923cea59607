package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gta "gotest.tools/v3/assert"
)

func buildReferenceTables(t *testing.T) TableSet {
	t.Helper()
	grid, err := DistanceGrid(0.01, 10.0)
	require.NoError(t, err)
	tables, err := BuildTables(referenceSolver(t), grid)
	require.NoError(t, err)
	return tables
}

func TestDistanceGrid(t *testing.T) {
	grid, err := DistanceGrid(0.01, 10.0)
	require.NoError(t, err)

	require.Len(t, grid, 999)
	assert.InDelta(t, 0.01, grid[0], 1e-12)
	assert.InDelta(t, 9.99, grid[len(grid)-1], 1e-9)
	for i := 1; i < len(grid); i++ {
		assert.InDelta(t, 0.01, grid[i]-grid[i-1], 1e-9)
	}
}

func TestDistanceGrid_RejectsBadParameters(t *testing.T) {
	_, err := DistanceGrid(0, 10)
	assert.Error(t, err)
	_, err = DistanceGrid(-0.01, 10)
	assert.Error(t, err)
	_, err = DistanceGrid(0.01, 0.01)
	assert.Error(t, err)
}

func TestDistanceGrid_RejectsGridsWithFewerThanTwoPoints(t *testing.T) {
	// max barely past step yields a single sample point; must error, not panic
	for _, maxKm := range []float64{0.011, 0.02} {
		grid, err := DistanceGrid(0.01, maxKm)
		assert.Error(t, err, "max %v", maxKm)
		assert.Nil(t, grid)
	}

	grid, err := DistanceGrid(0.01, 0.03)
	require.NoError(t, err)
	assert.Len(t, grid, 2)
}

func TestBuildTables_RowsStrictlyIncreasingDistance(t *testing.T) {
	tables := buildReferenceTables(t)

	for _, ft := range FaultTypes() {
		table := tables.ForType(ft)
		require.Len(t, table.Rows, 999)
		assert.Equal(t, ft, table.Type)
		for i := 1; i < len(table.Rows); i++ {
			assert.Greater(t, table.Rows[i].DistanceKm, table.Rows[i-1].DistanceKm)
		}
	}
}

func TestBuildTables_LeadPhaseMonotonicity(t *testing.T) {
	tables := buildReferenceTables(t)

	// fault current falls as line impedance grows with distance; this
	// monotonicity is what makes the inverse lookup well-posed
	threePh := tables.ForType(FaultThreePhase).Rows
	for i := 1; i < len(threePh); i++ {
		assert.Less(t, threePh[i].IaAmps, threePh[i-1].IaAmps,
			"three-phase lead current must strictly decrease at row %d", i)
	}

	slg := tables.ForType(FaultSingleLineGround).Rows
	for i := 1; i < len(slg); i++ {
		assert.LessOrEqual(t, slg[i].IaAmps, slg[i-1].IaAmps)
	}
}

func TestBuildTables_MaxCurrentAtClosestPoint(t *testing.T) {
	tables := buildReferenceTables(t)

	rows := tables.ForType(FaultThreePhase).Rows
	maxAmps := rows[0].IaAmps
	for _, row := range rows[1:] {
		assert.LessOrEqual(t, row.IaAmps, maxAmps,
			"closest electrical point to the source carries the maximum fault current")
	}
}

func TestBuildTables_Deterministic(t *testing.T) {
	grid, err := DistanceGrid(0.1, 2.0)
	require.NoError(t, err)

	s := referenceSolver(t)
	first, err := BuildTables(s, grid)
	require.NoError(t, err)
	second, err := BuildTables(s, grid)
	require.NoError(t, err)

	gta.DeepEqual(t, first, second)
}

func TestTableRow_Amps(t *testing.T) {
	row := TableRow{DistanceKm: 1, IaAmps: 10, IbAmps: 20, IcAmps: 30}
	assert.Equal(t, 10.0, row.Amps(PhaseA))
	assert.Equal(t, 20.0, row.Amps(PhaseB))
	assert.Equal(t, 30.0, row.Amps(PhaseC))
}
