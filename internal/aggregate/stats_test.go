package aggregate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfence/detection-api/internal/model"
	"github.com/skyfence/detection-api/internal/store"
)

// countingStore returns canned counts and records the filters it was asked for.
type countingStore struct {
	store.Store
	counts  map[store.CountFilter]int64
	asked   []store.CountFilter
	failing bool
}

func (c *countingStore) CountDetections(ctx context.Context, filter store.CountFilter) (int64, error) {
	if c.failing {
		return 0, store.ErrStorageUnavailable
	}
	c.asked = append(c.asked, filter)
	return c.counts[filter], nil
}

func TestStats_UsesDedicatedCounts(t *testing.T) {
	cs := &countingStore{counts: map[store.CountFilter]int64{
		{}:                3,
		{DroneOnly: true}: 2,
	}}

	stats, err := Stats(context.Background(), cs, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalDetections)
	assert.Equal(t, int64(2), stats.DroneDetections)
	assert.Equal(t, int64(1), stats.NonDroneDetections)
	assert.Nil(t, stats.StreamName)

	// Exactly two count queries: one total, one drone-positive.
	require.Len(t, cs.asked, 2)
	assert.Equal(t, store.CountFilter{}, cs.asked[0])
	assert.Equal(t, store.CountFilter{DroneOnly: true}, cs.asked[1])
}

func TestStats_StreamScoped(t *testing.T) {
	cs := &countingStore{counts: map[store.CountFilter]int64{
		{StreamName: "drone"}:                 10,
		{StreamName: "drone", DroneOnly: true}: 7,
	}}

	stats, err := Stats(context.Background(), cs, "drone")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalDetections)
	assert.Equal(t, int64(7), stats.DroneDetections)
	assert.Equal(t, int64(3), stats.NonDroneDetections)
	require.NotNil(t, stats.StreamName)
	assert.Equal(t, "drone", *stats.StreamName)
}

func TestStats_StorageErrorPropagates(t *testing.T) {
	cs := &countingStore{failing: true}

	_, err := Stats(context.Background(), cs, "")
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))
}

// Drone-positive volume past any page size must still be counted exactly.
func TestStats_NotCappedByPageSize(t *testing.T) {
	if testing.Short() {
		t.Skip("bulk insert test")
	}

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	stream := "drone"
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 1500; i++ {
		_, err := s.CreateDetection(ctx, model.DetectionCreate{
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			DroneDetected: true,
			Confidence:    0.9,
			FusedScore:    0.9,
			StreamName:    &stream,
		})
		require.NoError(t, err)
	}

	stats, err := Stats(ctx, s, stream)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), stats.TotalDetections)
	assert.Equal(t, int64(1500), stats.DroneDetections)
	assert.Equal(t, int64(0), stats.NonDroneDetections)
}
