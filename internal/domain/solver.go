package domain

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// FaultType selects one of the three canonical fault topologies.
type FaultType int

const (
	FaultSingleLineGround FaultType = iota // phase A to ground
	FaultLineToLine                        // phases B-C
	FaultThreePhase                        // balanced
)

// String returns the short wire code for the fault type.
func (ft FaultType) String() string {
	switch ft {
	case FaultSingleLineGround:
		return "slg"
	case FaultLineToLine:
		return "ll"
	case FaultThreePhase:
		return "3ph"
	default:
		return fmt.Sprintf("FaultType(%d)", int(ft))
	}
}

// Label returns the operator-facing name for the fault type.
func (ft FaultType) Label() string {
	switch ft {
	case FaultSingleLineGround:
		return "Single Line-to-Ground (Phase A)"
	case FaultLineToLine:
		return "Line-to-Line (Phase B-C)"
	case FaultThreePhase:
		return "Three-Phase Balanced"
	default:
		return "Unknown"
	}
}

// ParseFaultType maps a wire code ("slg", "ll", "3ph") to a FaultType.
func ParseFaultType(s string) (FaultType, error) {
	switch s {
	case "slg":
		return FaultSingleLineGround, nil
	case "ll":
		return FaultLineToLine, nil
	case "3ph":
		return FaultThreePhase, nil
	default:
		return 0, fmt.Errorf("unknown fault type %q", s)
	}
}

// FaultTypes lists the canonical fault types in table-build order.
func FaultTypes() []FaultType {
	return []FaultType{FaultSingleLineGround, FaultLineToLine, FaultThreePhase}
}

// PhaseCurrents is a triple of phase-current magnitudes in amperes.
type PhaseCurrents struct {
	A float64
	B float64
	C float64
}

// Max returns the largest of the three phase magnitudes.
func (p PhaseCurrents) Max() float64 {
	return math.Max(p.A, math.Max(p.B, p.C))
}

// ErrDegenerateImpedance is returned when the sequence-network denominator
// magnitude underflows. This cannot happen with positive resistances but is
// guarded so the solver never emits NaN or Inf.
var ErrDegenerateImpedance = errors.New("degenerate sequence impedance")

// sourceVoltagePU is the prefault voltage at the fault point.
const sourceVoltagePU = 1.0

// minDenominator is the floor below which a sequence-network denominator is
// treated as degenerate.
const minDenominator = 1e-9

// rotation operator a = e^(j*2*pi/3), 120 degrees.
var opA = cmplx.Exp(complex(0, 2*math.Pi/3))

// Solver computes fault currents from the impedance model on a system base.
type Solver struct {
	Base  SystemBase
	Model ImpedanceModel
}

// Solve returns the three phase-current magnitudes, in amperes, for a fault
// of the given type at distanceKm with the given fault resistance.
//
// The sequence networks are connected per fault type: SLG puts all three in
// series with 3Rf, LL puts positive and negative in series with Rf, and a
// balanced three-phase fault involves the positive network alone.
func (s Solver) Solve(distanceKm float64, ft FaultType, faultResistanceOhms float64) (PhaseCurrents, error) {
	z1 := s.Model.TotalImpedance(distanceKm, SequencePositive)
	z2 := s.Model.TotalImpedance(distanceKm, SequenceNegative)
	z0 := s.Model.TotalImpedance(distanceKm, SequenceZero)
	rf := complex(faultResistanceOhms/s.Base.BaseImpedanceOhms, 0)

	var i0, i1, i2 complex128
	switch ft {
	case FaultSingleLineGround:
		denom := z1 + z2 + z0 + 3*rf
		if cmplx.Abs(denom) < minDenominator {
			return PhaseCurrents{}, fmt.Errorf("%w: slg denominator %v at %.3f km", ErrDegenerateImpedance, denom, distanceKm)
		}
		i1 = sourceVoltagePU / denom
		i2 = i1
		i0 = i1
	case FaultLineToLine:
		denom := z1 + z2 + rf
		if cmplx.Abs(denom) < minDenominator {
			return PhaseCurrents{}, fmt.Errorf("%w: ll denominator %v at %.3f km", ErrDegenerateImpedance, denom, distanceKm)
		}
		i1 = sourceVoltagePU / denom
		i2 = -i1
	case FaultThreePhase:
		denom := z1 + rf
		if cmplx.Abs(denom) < minDenominator {
			return PhaseCurrents{}, fmt.Errorf("%w: 3ph denominator %v at %.3f km", ErrDegenerateImpedance, denom, distanceKm)
		}
		i1 = sourceVoltagePU / denom
	default:
		return PhaseCurrents{}, fmt.Errorf("unknown fault type %d", int(ft))
	}

	// recompose phase quantities: [Ia; Ib; Ic] = A * [I0; I1; I2]
	ia := i0 + i1 + i2
	ib := i0 + opA*opA*i1 + opA*i2
	ic := i0 + opA*i1 + opA*opA*i2

	return PhaseCurrents{
		A: cmplx.Abs(ia) * s.Base.BaseCurrentAmps,
		B: cmplx.Abs(ib) * s.Base.BaseCurrentAmps,
		C: cmplx.Abs(ic) * s.Base.BaseCurrentAmps,
	}, nil
}
