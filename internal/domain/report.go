package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity buckets a located fault by its estimated current.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// SeverityForAmps maps an estimated fault current to a severity level.
func SeverityForAmps(amps, criticalAmps float64) Severity {
	if amps > criticalAmps {
		return SeverityCritical
	}
	return SeverityWarning
}

// Report sources.
const (
	SourceSimulation = "simulation"
	SourceFeed       = "feed"
)

// StatusPending is the initial status of every report until an operator
// acknowledges it.
const StatusPending = "pending"

// FaultReport is one entry of the append-only report log. Immutable after
// creation except for the operator-settable acknowledgment fields.
type FaultReport struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	SensorID            string    `json:"sensor_id,omitempty"`
	NodeID              string    `json:"node_id,omitempty"`
	Type                string    `json:"type"`
	Uncertain           bool      `json:"uncertain,omitempty"`
	EstimatedDistanceKm float64   `json:"distance_km"`
	EstimatedAmps       float64   `json:"amps"`
	Lat                 float64   `json:"lat,omitempty"`
	Lng                 float64   `json:"lng,omitempty"`
	Severity            Severity  `json:"severity"`
	Status              string    `json:"status"`
	Acknowledged        bool      `json:"acknowledged"`
	AcknowledgedBy      string    `json:"acknowledged_by,omitempty"`
	Source              string    `json:"source"`
}

// NewReportID returns a fresh report identifier.
func NewReportID() string {
	return "FLT-" + strings.Split(uuid.NewString(), "-")[0]
}

// NewFaultReport assembles a pending report for a freshly located fault.
// The node coordinates place the estimate on the map for the caller.
func NewFaultReport(sensor SensorRecord, nodeID string, lat, lng float64, c Classification, loc LocateResult, criticalAmps float64) FaultReport {
	return FaultReport{
		ID:                  NewReportID(),
		Timestamp:           clock.Now(),
		SensorID:            sensor.ID,
		NodeID:              nodeID,
		Type:                c.Label(),
		Uncertain:           c.Uncertain,
		EstimatedDistanceKm: loc.DistanceKm,
		EstimatedAmps:       loc.Amps,
		Lat:                 lat,
		Lng:                 lng,
		Severity:            SeverityForAmps(loc.Amps, criticalAmps),
		Status:              StatusPending,
		Source:              SourceSimulation,
	}
}
