// Package domain implements the fault-location physics for a radial
// distribution feeder.
//
// # Model
//
// All electrical quantities are handled in per-unit on a system base derived
// from the feeder's line-to-line voltage and apparent-power base (see
// [SystemBase]). The feeder is radial, so every point on it has a scalar
// distance from the source, and the total sequence impedance at a fault point
// is the source impedance plus the per-kilometre line impedance scaled by
// that distance ([ImpedanceModel]).
//
// Fault currents are solved with symmetrical components: the three canonical
// fault topologies (single-line-to-ground on phase A, line-to-line on phases
// B-C, and balanced three-phase) each reduce to a series connection of the
// sequence networks. Sequence currents are recomposed into phase quantities
// with the 120-degree rotation operator and returned as ampere magnitudes
// only — phase angle is discarded because the detection path works purely on
// magnitudes ([Solver]).
//
// # Detection
//
// At startup the solver is sampled over an even distance grid for each fault
// type, producing three immutable lookup tables ([BuildTables]). A noisy
// three-phase reading is matched against the canonical imbalance signatures
// ([Classify]) and the estimated fault distance is recovered by an inverse
// search over the matching table, restricted to rows at or beyond the
// observing sensor ([Locate]): the fault must be electrically downstream of
// the sensor that saw it.
//
// Everything in this package is deterministic. Measurement noise belongs to
// the simulation orchestration layer, not here.
package domain
