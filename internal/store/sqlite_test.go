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

func TestSQLite_MigrateIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))
}

func TestSQLite_Ping(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	created, err := s.CreateDetection(ctx, model.DetectionCreate{
		Timestamp:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		DroneDetected: true,
		Confidence:    0.9,
		FusedScore:    0.9,
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s2.Close() }) //nolint:errcheck

	got, err := s2.GetDetection(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.DroneDetected)
}
