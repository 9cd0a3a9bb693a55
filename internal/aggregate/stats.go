// Package aggregate derives summary statistics from repository queries.
package aggregate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/skyfence/detection-api/internal/model"
	"github.com/skyfence/detection-api/internal/store"
)

// Stats reports total, drone-positive and non-drone counts, optionally scoped
// to one stream. The drone-positive figure is a dedicated exact count, never
// the length of a bounded fetch, so it stays correct past any page size.
func Stats(ctx context.Context, s store.Store, streamName string) (*model.DetectionStats, error) {
	total, err := s.CountDetections(ctx, store.CountFilter{StreamName: streamName})
	if err != nil {
		return nil, eris.Wrap(err, "aggregate: total count")
	}

	positive, err := s.CountDetections(ctx, store.CountFilter{StreamName: streamName, DroneOnly: true})
	if err != nil {
		return nil, eris.Wrap(err, "aggregate: drone-positive count")
	}

	stats := &model.DetectionStats{
		TotalDetections:    total,
		DroneDetections:    positive,
		NonDroneDetections: total - positive,
	}
	if streamName != "" {
		stats.StreamName = &streamName
	}
	return stats, nil
}
