// Package topology holds the static description of a radial feeder: nodes
// with their radial distance from the source, line connectivity, sensor
// placements, and the electrical and detection parameters of the system.
// Everything here is fixed configuration, loaded once at startup.
package topology

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/gridwatch/overwatch/internal/domain"
)

//go:embed ieee13.yaml
var ieee13YAML []byte

// Node is one point on the feeder. Lat/Lng exist purely for map rendering by
// the caller; the physics only uses DistanceKm.
type Node struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	Lat        float64 `yaml:"lat" json:"lat"`
	Lng        float64 `yaml:"lng" json:"lng"`
	DistanceKm float64 `yaml:"distance_km" json:"distance_km"`
}

// Line is a feeder segment between two nodes.
type Line struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Sensor is a measurement unit placed at a node.
type Sensor struct {
	ID         string  `yaml:"id" json:"id"`
	Node       string  `yaml:"node" json:"node"`
	DistanceKm float64 `yaml:"distance_km" json:"distance_km"`
}

// SystemParams are the electrical parameters of the feeder and its source.
type SystemParams struct {
	LineToLineVolts      float64 `yaml:"line_to_line_volts" json:"line_to_line_volts"`
	ApparentPowerVA      float64 `yaml:"apparent_power_va" json:"apparent_power_va"`
	ShortCircuitVA       float64 `yaml:"short_circuit_va" json:"short_circuit_va"`
	SourceResistanceFrac float64 `yaml:"source_resistance_frac" json:"source_resistance_frac"`
	SourceReactanceFrac  float64 `yaml:"source_reactance_frac" json:"source_reactance_frac"`
	LineR1OhmPerKm       float64 `yaml:"line_r1_ohm_per_km" json:"line_r1_ohm_per_km"`
	LineX1OhmPerKm       float64 `yaml:"line_x1_ohm_per_km" json:"line_x1_ohm_per_km"`
	LineR0OhmPerKm       float64 `yaml:"line_r0_ohm_per_km" json:"line_r0_ohm_per_km"`
	LineX0OhmPerKm       float64 `yaml:"line_x0_ohm_per_km" json:"line_x0_ohm_per_km"`
}

// DetectionParams are the classifier thresholds in file form.
type DetectionParams struct {
	MinDetectableAmps float64 `yaml:"min_detectable_amps" json:"min_detectable_amps"`
	CriticalAmps      float64 `yaml:"critical_amps" json:"critical_amps"`
	DominantFraction  float64 `yaml:"dominant_fraction" json:"dominant_fraction"`
	QuietFraction     float64 `yaml:"quiet_fraction" json:"quiet_fraction"`
	PairedFraction    float64 `yaml:"paired_fraction" json:"paired_fraction"`
	BalancedFraction  float64 `yaml:"balanced_fraction" json:"balanced_fraction"`
}

// Config converts the file form into the domain configuration.
func (p DetectionParams) Config() domain.DetectionConfig {
	return domain.DetectionConfig{
		MinDetectableAmps: p.MinDetectableAmps,
		CriticalAmps:      p.CriticalAmps,
		DominantFraction:  p.DominantFraction,
		QuietFraction:     p.QuietFraction,
		PairedFraction:    p.PairedFraction,
		BalancedFraction:  p.BalancedFraction,
	}
}

// GridParams control the lookup-table resolution. Coarser grids trade locate
// precision for build time.
type GridParams struct {
	StepKm float64 `yaml:"step_km" json:"step_km"`
	MaxKm  float64 `yaml:"max_km" json:"max_km"`
}

// Topology is the full static feeder description.
type Topology struct {
	System    SystemParams    `yaml:"system" json:"system"`
	Detection DetectionParams `yaml:"detection" json:"detection"`
	Grid      GridParams      `yaml:"grid" json:"grid"`
	Nodes     []Node          `yaml:"nodes" json:"nodes"`
	Lines     []Line          `yaml:"lines" json:"lines"`
	Sensors   []Sensor        `yaml:"sensors" json:"sensors"`
}

// Default returns the embedded IEEE 13 node test feeder.
func Default() (*Topology, error) {
	return Parse(ieee13YAML)
}

// Load reads and validates a topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a YAML topology document.
func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks referential integrity and parameter sanity. A topology that
// passes validation never causes an engine construction failure later.
func (t *Topology) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("topology has no nodes")
	}

	ids := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		if n.DistanceKm < 0 {
			return fmt.Errorf("node %q has negative distance %v", n.ID, n.DistanceKm)
		}
		ids[n.ID] = true
	}

	for _, l := range t.Lines {
		if !ids[l.From] {
			return fmt.Errorf("line references unknown node %q", l.From)
		}
		if !ids[l.To] {
			return fmt.Errorf("line references unknown node %q", l.To)
		}
	}

	if len(t.Sensors) == 0 {
		return fmt.Errorf("topology has no sensors")
	}
	sensorIDs := make(map[string]bool, len(t.Sensors))
	for _, s := range t.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensor with empty id")
		}
		if sensorIDs[s.ID] {
			return fmt.Errorf("duplicate sensor id %q", s.ID)
		}
		if !ids[s.Node] {
			return fmt.Errorf("sensor %q references unknown node %q", s.ID, s.Node)
		}
		if s.DistanceKm < 0 {
			return fmt.Errorf("sensor %q has negative distance %v", s.ID, s.DistanceKm)
		}
		sensorIDs[s.ID] = true
	}

	if t.System.LineToLineVolts <= 0 || t.System.ApparentPowerVA <= 0 {
		return fmt.Errorf("system base parameters must be positive")
	}
	if t.System.ShortCircuitVA <= 0 {
		return fmt.Errorf("short-circuit capacity must be positive")
	}
	if t.Grid.StepKm <= 0 || t.Grid.MaxKm <= t.Grid.StepKm {
		return fmt.Errorf("invalid lookup grid: step %v, max %v", t.Grid.StepKm, t.Grid.MaxKm)
	}
	if err := t.Detection.Config().Validate(); err != nil {
		return fmt.Errorf("detection parameters: %w", err)
	}

	return nil
}

// Node returns the node with the given id.
func (t *Topology) Node(id string) (Node, bool) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// SensorRecords converts the sensor placements into domain records.
func (t *Topology) SensorRecords() []domain.SensorRecord {
	records := make([]domain.SensorRecord, len(t.Sensors))
	for i, s := range t.Sensors {
		records[i] = domain.SensorRecord{ID: s.ID, NodeID: s.Node, DistanceKm: s.DistanceKm}
	}
	return records
}
