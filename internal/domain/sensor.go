package domain

import "errors"

// SensorRecord is a fixed measurement unit on the feeder. Static
// configuration, never mutated by the engine.
type SensorRecord struct {
	ID         string  `json:"id"`
	NodeID     string  `json:"node_id"`
	DistanceKm float64 `json:"distance_km"`
}

// ErrUpstreamOfAllSensors is returned when every sensor sits downstream of
// the fault. This is a reported condition, distinct from "no fault".
var ErrUpstreamOfAllSensors = errors.New("fault upstream of all sensors")

// SelectSensor picks the sensor with the largest distance not exceeding the
// fault distance, i.e. the closest sensor that is still upstream of the
// fault and therefore sees its current.
func SelectSensor(sensors []SensorRecord, faultDistanceKm float64) (SensorRecord, error) {
	best := -1
	for i, s := range sensors {
		if s.DistanceKm > faultDistanceKm {
			continue
		}
		if best < 0 || s.DistanceKm > sensors[best].DistanceKm {
			best = i
		}
	}
	if best < 0 {
		return SensorRecord{}, ErrUpstreamOfAllSensors
	}
	return sensors[best], nil
}
