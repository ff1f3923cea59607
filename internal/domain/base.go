package domain

import (
	"fmt"
	"math"
)

// SystemBase holds the per-unit base quantities for the feeder. All solver
// math runs in per-unit; the base converts results back to amperes.
type SystemBase struct {
	LineToLineVolts    float64
	ApparentPowerVA    float64
	LineToNeutralVolts float64
	BaseCurrentAmps    float64
	BaseImpedanceOhms  float64
}

// NewSystemBase derives the per-unit base from the line-to-line RMS voltage
// and the apparent-power base. Both inputs must be positive.
func NewSystemBase(lineToLineVolts, apparentPowerVA float64) (SystemBase, error) {
	if lineToLineVolts <= 0 {
		return SystemBase{}, fmt.Errorf("line-to-line voltage must be positive, got %v", lineToLineVolts)
	}
	if apparentPowerVA <= 0 {
		return SystemBase{}, fmt.Errorf("apparent-power base must be positive, got %v", apparentPowerVA)
	}
	return SystemBase{
		LineToLineVolts:    lineToLineVolts,
		ApparentPowerVA:    apparentPowerVA,
		LineToNeutralVolts: lineToLineVolts / math.Sqrt(3),
		BaseCurrentAmps:    apparentPowerVA / (math.Sqrt(3) * lineToLineVolts),
		BaseImpedanceOhms:  lineToLineVolts * lineToLineVolts / apparentPowerVA,
	}, nil
}
