package domain

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Phase names a column of a lookup-table row.
type Phase int

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
)

// TableRow is one sampled point of the fault-current model.
type TableRow struct {
	DistanceKm float64
	IaAmps     float64
	IbAmps     float64
	IcAmps     float64
}

// Amps returns the current magnitude of the given phase.
func (r TableRow) Amps(p Phase) float64 {
	switch p {
	case PhaseB:
		return r.IbAmps
	case PhaseC:
		return r.IcAmps
	default:
		return r.IaAmps
	}
}

// LookupTable is an ordered, strictly distance-increasing sample of the
// solver for one fault type. Built once, read-only afterwards, safe for
// unsynchronized concurrent reads.
type LookupTable struct {
	Type FaultType
	Rows []TableRow
}

// TableSet holds the three per-fault-type lookup tables.
type TableSet struct {
	SLG        LookupTable
	LL         LookupTable
	ThreePhase LookupTable
}

// ForType returns the table matching the fault type.
func (ts TableSet) ForType(ft FaultType) LookupTable {
	switch ft {
	case FaultLineToLine:
		return ts.LL
	case FaultThreePhase:
		return ts.ThreePhase
	default:
		return ts.SLG
	}
}

// DistanceGrid returns evenly spaced sample distances starting at stepKm and
// ending just short of maxKm.
func DistanceGrid(stepKm, maxKm float64) ([]float64, error) {
	if stepKm <= 0 {
		return nil, fmt.Errorf("grid step must be positive, got %v", stepKm)
	}
	if maxKm <= stepKm {
		return nil, fmt.Errorf("grid max %v must exceed step %v", maxKm, stepKm)
	}
	n := int(math.Round(maxKm/stepKm)) - 1
	// floats.Span needs at least two destination elements
	if n < 2 {
		return nil, fmt.Errorf("grid from step %v to max %v has %d points, need at least 2", stepKm, maxKm, n)
	}
	return floats.Span(make([]float64, n), stepKm, float64(n)*stepKm), nil
}

// BuildTables samples the solver over the grid for each canonical fault type
// with zero fault resistance, the lowest-impedance reference case. The three
// tables build concurrently; the result is a pure function of the solver and
// the grid.
func BuildTables(s Solver, grid []float64) (TableSet, error) {
	types := FaultTypes()
	tables := make([]LookupTable, len(types))
	errs := make([]error, len(types))

	var wg sync.WaitGroup
	for i, ft := range types {
		wg.Add(1)
		go func(i int, ft FaultType) {
			defer wg.Done()
			tables[i], errs[i] = buildTable(s, ft, grid)
		}(i, ft)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return TableSet{}, err
		}
	}
	return TableSet{SLG: tables[0], LL: tables[1], ThreePhase: tables[2]}, nil
}

func buildTable(s Solver, ft FaultType, grid []float64) (LookupTable, error) {
	rows := make([]TableRow, 0, len(grid))
	for _, d := range grid {
		pc, err := s.Solve(d, ft, 0)
		if err != nil {
			return LookupTable{}, fmt.Errorf("build %s table at %.3f km: %w", ft, d, err)
		}
		rows = append(rows, TableRow{DistanceKm: d, IaAmps: pc.A, IbAmps: pc.B, IcAmps: pc.C})
	}
	return LookupTable{Type: ft, Rows: rows}, nil
}
