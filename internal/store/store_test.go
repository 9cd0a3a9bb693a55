package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfence/detection-api/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func baseDetection(ts time.Time, drone bool, stream string) model.DetectionCreate {
	in := model.DetectionCreate{
		Timestamp:     ts,
		DroneDetected: drone,
		Confidence:    0.9,
		FusedScore:    0.9,
	}
	if stream != "" {
		in.StreamName = ptr(stream)
	}
	return in
}

func TestStore_Suite(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		in := model.DetectionCreate{
			Timestamp:         ts,
			DroneDetected:     true,
			Confidence:        0.94,
			Direction:         ptr(model.DirectionNE),
			DistanceFt:        ptr(125.5),
			VisualConfidence:  ptr(0.9),
			ThermalConfidence: ptr(0.85),
			FusedScore:        0.94,
			FrameSnapshotURL:  ptr("s3://frames/1.jpg"),
			StreamName:        ptr("drone"),
		}

		created, err := s.CreateDetection(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.False(t, created.UpdatedAt.IsZero())

		got, err := s.GetDetection(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Timestamp.Equal(ts))
		assert.Equal(t, in.DroneDetected, got.DroneDetected)
		assert.Equal(t, in.Confidence, got.Confidence)
		assert.Equal(t, *in.Direction, *got.Direction)
		assert.Equal(t, *in.DistanceFt, *got.DistanceFt)
		assert.Equal(t, *in.VisualConfidence, *got.VisualConfidence)
		assert.Equal(t, *in.ThermalConfidence, *got.ThermalConfidence)
		assert.Equal(t, in.FusedScore, got.FusedScore)
		assert.Equal(t, *in.FrameSnapshotURL, *got.FrameSnapshotURL)
		assert.Equal(t, *in.StreamName, *got.StreamName)
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetDetection(context.Background(), 999)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("MonotonicIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ts := time.Now().UTC()

		for i := int64(1); i <= 3; i++ {
			d, err := s.CreateDetection(ctx, baseDetection(ts, true, ""))
			require.NoError(t, err)
			assert.Equal(t, i, d.ID)
		}
	})

	t.Run("ListOrdering", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
		// Inserted out of chronological order on purpose.
		for _, offset := range []time.Duration{2 * time.Hour, 5 * time.Hour, time.Hour, 4 * time.Hour, 3 * time.Hour} {
			_, err := s.CreateDetection(ctx, baseDetection(base.Add(offset), true, ""))
			require.NoError(t, err)
		}

		out, err := s.ListDetections(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, out, 5)
		for i := 1; i < len(out); i++ {
			assert.False(t, out[i-1].Timestamp.Before(out[i].Timestamp),
				"timestamps must be non-increasing")
		}
	})

	t.Run("ListTiesByInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

		for i := 0; i < 3; i++ {
			_, err := s.CreateDetection(ctx, baseDetection(ts, true, ""))
			require.NoError(t, err)
		}

		out, err := s.ListDetections(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, int64(1), out[0].ID)
		assert.Equal(t, int64(2), out[1].ID)
		assert.Equal(t, int64(3), out[2].ID)
	})

	t.Run("FilterCorrectness", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

		_, err := s.CreateDetection(ctx, baseDetection(base.Add(1*time.Minute), true, "drone"))
		require.NoError(t, err)
		_, err = s.CreateDetection(ctx, baseDetection(base.Add(2*time.Minute), true, "perimeter"))
		require.NoError(t, err)
		_, err = s.CreateDetection(ctx, baseDetection(base.Add(3*time.Minute), false, "drone"))
		require.NoError(t, err)

		droneOnly, err := s.ListDetections(ctx, ListFilter{DroneOnly: true})
		require.NoError(t, err)
		require.Len(t, droneOnly, 2)
		for _, d := range droneOnly {
			assert.True(t, d.DroneDetected)
		}

		byStream, err := s.ListDetections(ctx, ListFilter{StreamName: "drone"})
		require.NoError(t, err)
		require.Len(t, byStream, 2)
		for _, d := range byStream {
			assert.Equal(t, "drone", *d.StreamName)
		}
	})

	t.Run("PaginationPartition", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 10; i++ {
			_, err := s.CreateDetection(ctx, baseDetection(base.Add(time.Duration(i)*time.Minute), true, ""))
			require.NoError(t, err)
		}

		full, err := s.ListDetections(ctx, ListFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, full, 10)

		page1, err := s.ListDetections(ctx, ListFilter{Skip: 0, Limit: 4})
		require.NoError(t, err)
		page2, err := s.ListDetections(ctx, ListFilter{Skip: 4, Limit: 4})
		require.NoError(t, err)
		require.Len(t, page1, 4)
		require.Len(t, page2, 4)

		seen := map[int64]bool{}
		for _, d := range page1 {
			seen[d.ID] = true
		}
		for _, d := range page2 {
			assert.False(t, seen[d.ID], "pages must be disjoint")
		}

		concat := append(append([]model.Detection{}, page1...), page2...)
		for i, d := range concat {
			assert.Equal(t, full[i].ID, d.ID, "concatenated pages must equal the ordering prefix")
		}
	})

	t.Run("ListEmptyWindow", func(t *testing.T) {
		s := newStore(t)

		out, err := s.ListDetections(context.Background(), ListFilter{Skip: 100, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("CountIndependentOfPagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 25; i++ {
			_, err := s.CreateDetection(ctx, baseDetection(base.Add(time.Duration(i)*time.Second), i%2 == 0, "drone"))
			require.NoError(t, err)
		}

		total, err := s.CountDetections(ctx, CountFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)

		positive, err := s.CountDetections(ctx, CountFilter{DroneOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(13), positive)

		// A one-row page does not change the count.
		page, err := s.ListDetections(ctx, ListFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)

		again, err := s.CountDetections(ctx, CountFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(25), again)
	})

	t.Run("UpdatePartial", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateDetection(ctx, model.DetectionCreate{
			Timestamp:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			DroneDetected: false,
			Confidence:    0.4,
			FusedScore:    0.4,
			StreamName:    ptr("drone"),
		})
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		updated, err := s.UpdateDetection(ctx, created.ID, model.DetectionUpdate{
			DroneDetected: ptr(true),
			Confidence:    ptr(0.95),
		})
		require.NoError(t, err)

		assert.True(t, updated.DroneDetected)
		assert.Equal(t, 0.95, updated.Confidence)
		// Untouched fields keep their stored values.
		assert.Equal(t, 0.4, updated.FusedScore)
		assert.Equal(t, "drone", *updated.StreamName)
		// Server-assigned fields: id and created_at are immutable,
		// updated_at advances.
		assert.Equal(t, created.ID, updated.ID)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.UpdateDetection(context.Background(), 999, model.DetectionUpdate{
			DroneDetected: ptr(true),
		})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("DeleteIdempotence", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateDetection(ctx, baseDetection(time.Now().UTC(), true, ""))
		require.NoError(t, err)

		deleted, err := s.DeleteDetection(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.DeleteDetection(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.GetDetection(ctx, created.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("DeleteOnEmptyStore", func(t *testing.T) {
		s := newStore(t)

		deleted, err := s.DeleteDetection(context.Background(), 999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestListFilter_Window(t *testing.T) {
	cases := []struct {
		name      string
		in        ListFilter
		wantSkip  int
		wantLimit int
	}{
		{"zero value", ListFilter{}, 0, DefaultLimit},
		{"explicit", ListFilter{Skip: 10, Limit: 50}, 10, 50},
		{"negative skip", ListFilter{Skip: -3}, 0, DefaultLimit},
		{"limit too large", ListFilter{Limit: 9999}, 0, MaxLimit},
		{"limit at max", ListFilter{Limit: MaxLimit}, 0, MaxLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			skip, limit := tc.in.window()
			assert.Equal(t, tc.wantSkip, skip)
			assert.Equal(t, tc.wantLimit, limit)
		})
	}
}
