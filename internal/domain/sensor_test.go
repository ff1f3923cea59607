package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceSensors() []SensorRecord {
	return []SensorRecord{
		{ID: "U1", NodeID: "650", DistanceKm: 0},
		{ID: "U2", NodeID: "632", DistanceKm: 0.61},
		{ID: "U3", NodeID: "671", DistanceKm: 1.22},
	}
}

func TestSelectSensor_ClosestUpstream(t *testing.T) {
	tests := []struct {
		faultKm float64
		wantID  string
	}{
		{faultKm: 1.0, wantID: "U2"},
		{faultKm: 1.5, wantID: "U3"},
		{faultKm: 0.61, wantID: "U2"},
		{faultKm: 0, wantID: "U1"},
		{faultKm: 9.9, wantID: "U3"},
	}

	for _, tc := range tests {
		s, err := SelectSensor(referenceSensors(), tc.faultKm)
		require.NoError(t, err)
		assert.Equal(t, tc.wantID, s.ID, "fault at %.2f km", tc.faultKm)
	}
}

func TestSelectSensor_OrderIndependent(t *testing.T) {
	sensors := []SensorRecord{
		{ID: "U3", DistanceKm: 1.22},
		{ID: "U1", DistanceKm: 0},
		{ID: "U2", DistanceKm: 0.61},
	}
	s, err := SelectSensor(sensors, 1.0)
	require.NoError(t, err)
	assert.Equal(t, "U2", s.ID)
}

func TestSelectSensor_UpstreamOfAllSensors(t *testing.T) {
	sensors := []SensorRecord{
		{ID: "U2", DistanceKm: 0.61},
		{ID: "U3", DistanceKm: 1.22},
	}

	_, err := SelectSensor(sensors, 0.3)
	assert.ErrorIs(t, err, ErrUpstreamOfAllSensors)

	_, err = SelectSensor(nil, 1.0)
	assert.ErrorIs(t, err, ErrUpstreamOfAllSensors)
}
