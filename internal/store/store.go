package store

import (
	"context"

	"github.com/skyfence/detection-api/internal/model"
)

const (
	// DefaultLimit is applied when a list request does not specify one.
	DefaultLimit = 100
	// MaxLimit caps a single page; counts are never subject to it.
	MaxLimit = 1000
)

// ListFilter selects and windows a detection listing. Zero value means
// "everything, first page".
type ListFilter struct {
	StreamName string `json:"stream_name,omitempty"`
	DroneOnly  bool   `json:"drone_only,omitempty"`
	Skip       int    `json:"skip,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// CountFilter selects rows for an exact count over the full table.
type CountFilter struct {
	StreamName string `json:"stream_name,omitempty"`
	DroneOnly  bool   `json:"drone_only,omitempty"`
}

// window returns the effective skip and limit, clamped to the allowed range.
func (f ListFilter) window() (skip, limit int) {
	skip = f.Skip
	if skip < 0 {
		skip = 0
	}
	limit = f.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return skip, limit
}

// Store is the sole authority for reading and writing detections against the
// persistent store. Inputs must already have passed validation; every read
// returns a value snapshot, never a reference to stored state.
type Store interface {
	// CreateDetection persists a validated detection atomically and returns
	// the stored value including server-assigned id and timestamps.
	CreateDetection(ctx context.Context, in model.DetectionCreate) (*model.Detection, error)

	// GetDetection returns the detection with the given id, or ErrNotFound.
	GetDetection(ctx context.Context, id int64) (*model.Detection, error)

	// ListDetections returns a contiguous window of the filtered sequence,
	// ordered by timestamp descending with ties broken by insertion order.
	// An empty result is valid, not an error.
	ListDetections(ctx context.Context, filter ListFilter) ([]model.Detection, error)

	// CountDetections returns the exact number of matching rows over the
	// full table, independent of any pagination window.
	CountDetections(ctx context.Context, filter CountFilter) (int64, error)

	// UpdateDetection merges the supplied fields into the stored record,
	// advances updated_at, and returns the new value. ErrNotFound if the id
	// has no row. Fields must already have passed validation.
	UpdateDetection(ctx context.Context, id int64, in model.DetectionUpdate) (*model.Detection, error)

	// DeleteDetection removes the row if it exists. Returns true when a row
	// was removed, false when there was none; deleting twice is not an error.
	DeleteDetection(ctx context.Context, id int64) (bool, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
