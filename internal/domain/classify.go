package domain

import "fmt"

// DetectionConfig holds the classifier thresholds. The fractions are applied
// to the largest phase magnitude of a reading; the canonical values come from
// the feeder topology file.
type DetectionConfig struct {
	// MinDetectableAmps is the detection floor. Readings whose largest phase
	// magnitude is at or below it classify as no-fault (inclusive boundary).
	MinDetectableAmps float64
	// CriticalAmps separates warning from critical report severity.
	CriticalAmps float64
	// DominantFraction is the minimum share of Imax for the faulted phase of
	// an SLG signature.
	DominantFraction float64
	// QuietFraction is the maximum share of Imax for a healthy phase.
	QuietFraction float64
	// PairedFraction is the minimum share of Imax for both faulted phases of
	// a line-to-line signature.
	PairedFraction float64
	// BalancedFraction is the minimum share of Imax for all phases of a
	// three-phase signature.
	BalancedFraction float64
}

// DefaultDetectionConfig returns the reference thresholds.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MinDetectableAmps: 50,
		CriticalAmps:      8000,
		DominantFraction:  0.5,
		QuietFraction:     0.2,
		PairedFraction:    0.8,
		BalancedFraction:  0.9,
	}
}

// Validate rejects thresholds that would make the decision tree meaningless.
func (c DetectionConfig) Validate() error {
	if c.MinDetectableAmps < 0 {
		return fmt.Errorf("detection floor must not be negative, got %v", c.MinDetectableAmps)
	}
	if c.CriticalAmps <= 0 {
		return fmt.Errorf("critical threshold must be positive, got %v", c.CriticalAmps)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"dominant_fraction", c.DominantFraction},
		{"quiet_fraction", c.QuietFraction},
		{"paired_fraction", c.PairedFraction},
		{"balanced_fraction", c.BalancedFraction},
	} {
		if f.v <= 0 || f.v >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", f.name, f.v)
		}
	}
	if c.QuietFraction >= c.DominantFraction {
		return fmt.Errorf("quiet_fraction %v must be below dominant_fraction %v", c.QuietFraction, c.DominantFraction)
	}
	return nil
}

// Classification is the outcome of matching a reading against the canonical
// fault signatures. ReferencePhase and ReferenceAmps identify the table
// column and target magnitude for the inverse lookup.
type Classification struct {
	Type           FaultType
	Uncertain      bool
	ReferencePhase Phase
	ReferenceAmps  float64
}

// Label returns the operator-facing name of the classification.
func (c Classification) Label() string {
	if c.Uncertain {
		return "Uncertain (Assumed SLG)"
	}
	return c.Type.Label()
}

// Classify matches a three-phase reading against the canonical imbalance
// signatures. It returns false when the reading is below the detection floor
// (no fault). A reading that matches none of the signatures falls back to an
// SLG classification flagged uncertain, with Imax as the reference magnitude.
//
// Classify is a pure function: identical readings always yield identical
// classifications.
func Classify(reading PhaseCurrents, cfg DetectionConfig) (Classification, bool) {
	imax := reading.Max()
	if imax <= cfg.MinDetectableAmps {
		return Classification{}, false
	}

	switch {
	case reading.A > cfg.DominantFraction*imax &&
		reading.B < cfg.QuietFraction*imax &&
		reading.C < cfg.QuietFraction*imax:
		return Classification{Type: FaultSingleLineGround, ReferencePhase: PhaseA, ReferenceAmps: reading.A}, true

	case reading.A < cfg.QuietFraction*imax &&
		reading.B > cfg.PairedFraction*imax &&
		reading.C > cfg.PairedFraction*imax:
		return Classification{Type: FaultLineToLine, ReferencePhase: PhaseB, ReferenceAmps: reading.B}, true

	case reading.A > cfg.BalancedFraction*imax &&
		reading.B > cfg.BalancedFraction*imax &&
		reading.C > cfg.BalancedFraction*imax:
		return Classification{Type: FaultThreePhase, ReferencePhase: PhaseA, ReferenceAmps: reading.A}, true

	default:
		// none of the signatures matched cleanly
		return Classification{Type: FaultSingleLineGround, Uncertain: true, ReferencePhase: PhaseA, ReferenceAmps: imax}, true
	}
}
