package domain

import "fmt"

// Sequence identifies one of the three symmetrical-component networks.
type Sequence int

const (
	SequencePositive Sequence = iota
	SequenceNegative
	SequenceZero
)

// ImpedanceModel holds the per-unit source and line impedances of the feeder.
// Positive and negative sequence share the same line impedance (balanced line
// assumption); zero sequence carries a distinct, larger value for the
// ground-return path. The source impedance is common to all three networks
// (stiff-source simplification).
type ImpedanceModel struct {
	Source            complex128
	LinePositivePerKm complex128
	LineZeroPerKm     complex128
}

// NewImpedanceModel converts ohmic line parameters and the source
// short-circuit capacity into per-unit impedances on the given base.
// srcR and srcX set the angle of the source impedance; its magnitude comes
// from the short-circuit capacity.
func NewImpedanceModel(base SystemBase, shortCircuitVA, srcR, srcX, r1, x1, r0, x0 float64) (ImpedanceModel, error) {
	if shortCircuitVA <= 0 {
		return ImpedanceModel{}, fmt.Errorf("short-circuit capacity must be positive, got %v", shortCircuitVA)
	}
	if x1 <= 0 || x0 <= 0 {
		return ImpedanceModel{}, fmt.Errorf("line reactances must be positive, got x1=%v x0=%v", x1, x0)
	}
	if r1 < 0 || r0 < 0 {
		return ImpedanceModel{}, fmt.Errorf("line resistances must not be negative, got r1=%v r0=%v", r1, r0)
	}
	srcMag := base.ApparentPowerVA / shortCircuitVA
	return ImpedanceModel{
		Source:            complex(srcMag*srcR, srcMag*srcX),
		LinePositivePerKm: complex(r1/base.BaseImpedanceOhms, x1/base.BaseImpedanceOhms),
		LineZeroPerKm:     complex(r0/base.BaseImpedanceOhms, x0/base.BaseImpedanceOhms),
	}, nil
}

// TotalImpedance returns source plus line impedance accumulated over
// distanceKm for the given sequence network. Negative distances are a caller
// contract violation and must be rejected upstream.
func (m ImpedanceModel) TotalImpedance(distanceKm float64, seq Sequence) complex128 {
	perKm := m.LinePositivePerKm
	if seq == SequenceZero {
		perKm = m.LineZeroPerKm
	}
	return m.Source + perKm*complex(distanceKm, 0)
}
