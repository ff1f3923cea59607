// Package feed ingests third-party fault records into the report log,
// bypassing the physics engine. Records arrive either from a Kafka topic or
// from a polled spreadsheet export; both paths share the decode and dedupe
// logic here.
package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/gridwatch/overwatch/internal/domain"
)

// Record is one externally reported fault. Spreadsheet exports stringify
// every cell, so decoding is weakly typed.
type Record struct {
	ID         string  `mapstructure:"id"`
	Timestamp  string  `mapstructure:"timestamp"`
	SensorID   string  `mapstructure:"sensor_id"`
	Type       string  `mapstructure:"type"`
	DistanceKm float64 `mapstructure:"distance_km"`
	Amps       float64 `mapstructure:"amps"`
	Lat        float64 `mapstructure:"lat"`
	Lng        float64 `mapstructure:"lng"`
}

// DecodeRecord maps a loosely typed row onto a Record. Numeric fields accept
// both numbers and numeric strings.
func DecodeRecord(raw map[string]any) (Record, error) {
	var rec Record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Record{}, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r Record) validate() error {
	if r.ID == "" {
		return errors.New("record has no id")
	}
	if r.Amps < 0 {
		return fmt.Errorf("record %s: negative amps %.1f", r.ID, r.Amps)
	}
	if r.DistanceKm < 0 {
		return fmt.Errorf("record %s: negative distance %.3f", r.ID, r.DistanceKm)
	}
	return nil
}

// ToReport converts the record to the internal report shape. Severity is
// derived from the reported current against the feeder's critical threshold.
// Unparseable timestamps fall back to ingestion time.
func (r Record) ToReport(criticalAmps float64) domain.FaultReport {
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		ts = domain.Now()
	}
	return domain.FaultReport{
		Timestamp:           ts,
		SensorID:            r.SensorID,
		Type:                r.Type,
		EstimatedDistanceKm: r.DistanceKm,
		EstimatedAmps:       r.Amps,
		Lat:                 r.Lat,
		Lng:                 r.Lng,
		Severity:            domain.SeverityForAmps(r.Amps, criticalAmps),
		Status:              domain.StatusPending,
		Source:              domain.SourceFeed,
	}
}
