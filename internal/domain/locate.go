package domain

import (
	"errors"
	"math"
)

// ErrLocateNotFound is returned when no lookup row lies at or beyond the
// observing sensor, i.e. the sensor sits at or past the feeder's longest
// modelled distance.
var ErrLocateNotFound = errors.New("no lookup rows downstream of sensor")

// LocateResult is a recovered fault position and the current magnitude that
// produced it.
type LocateResult struct {
	DistanceKm float64
	Amps       float64
}

// Locate scans the lookup table for the row whose reference-column current is
// closest to the classified reading, restricted to rows at or beyond the
// observing sensor. Upstream rows are excluded even when numerically closer.
// Ties keep the first match in ascending-distance order.
func Locate(c Classification, table LookupTable, sensorDistanceKm float64) (LocateResult, error) {
	best := -1
	bestDiff := math.Inf(1)
	for i, row := range table.Rows {
		if row.DistanceKm < sensorDistanceKm {
			continue
		}
		diff := math.Abs(row.Amps(c.ReferencePhase) - c.ReferenceAmps)
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	if best < 0 {
		return LocateResult{}, ErrLocateNotFound
	}
	return LocateResult{DistanceKm: table.Rows[best].DistanceKm, Amps: c.ReferenceAmps}, nil
}
