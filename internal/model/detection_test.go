package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_Valid(t *testing.T) {
	for _, d := range Directions {
		assert.True(t, d.Valid(), "direction %s", d)
	}
	assert.Len(t, Directions, 8)

	for _, bad := range []Direction{"", "n", "NNE", "NORTH", "ne"} {
		assert.False(t, bad.Valid(), "direction %q", bad)
	}
}

func TestDetectionUpdate_Empty(t *testing.T) {
	assert.True(t, DetectionUpdate{}.Empty())

	v := 0.5
	assert.False(t, DetectionUpdate{Confidence: &v}.Empty())

	b := true
	assert.False(t, DetectionUpdate{DroneDetected: &b}.Empty())

	ts := time.Now()
	assert.False(t, DetectionUpdate{Timestamp: &ts}.Empty())
}

func TestDetection_JSONOmitsAbsentOptionals(t *testing.T) {
	d := Detection{
		ID:            1,
		Timestamp:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		DroneDetected: true,
		Confidence:    0.9,
		FusedScore:    0.9,
	}

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	for _, absent := range []string{"direction", "distance_ft", "visual_confidence", "thermal_confidence", "frame_snapshot_url", "stream_name"} {
		_, ok := m[absent]
		assert.False(t, ok, "field %s should be omitted", absent)
	}
	assert.Equal(t, float64(1), m["id"])
	assert.Equal(t, true, m["drone_detected"])
}

func TestDetectionCreate_JSONRoundTrip(t *testing.T) {
	dir := DirectionSW
	dist := 42.5
	in := DetectionCreate{
		Timestamp:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		DroneDetected: false,
		Confidence:    0.25,
		Direction:     &dir,
		DistanceFt:    &dist,
		FusedScore:    0.3,
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out DetectionCreate
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
