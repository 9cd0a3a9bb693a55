package model

import "time"

// Direction is a compass heading for a detected object.
type Direction string

const (
	DirectionN  Direction = "N"
	DirectionNE Direction = "NE"
	DirectionE  Direction = "E"
	DirectionSE Direction = "SE"
	DirectionS  Direction = "S"
	DirectionSW Direction = "SW"
	DirectionW  Direction = "W"
	DirectionNW Direction = "NW"
)

// Directions lists the eight accepted compass values in clockwise order.
var Directions = []Direction{
	DirectionN, DirectionNE, DirectionE, DirectionSE,
	DirectionS, DirectionSW, DirectionW, DirectionNW,
}

// Valid reports whether d is one of the eight compass values.
func (d Direction) Valid() bool {
	switch d {
	case DirectionN, DirectionNE, DirectionE, DirectionSE,
		DirectionS, DirectionSW, DirectionW, DirectionNW:
		return true
	}
	return false
}

// Detection is one recorded sensor-fusion event. Values returned from the
// store are snapshots; mutating one never touches persisted state.
type Detection struct {
	ID                int64      `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	DroneDetected     bool       `json:"drone_detected"`
	Confidence        float64    `json:"confidence"`
	Direction         *Direction `json:"direction,omitempty"`
	DistanceFt        *float64   `json:"distance_ft,omitempty"`
	VisualConfidence  *float64   `json:"visual_confidence,omitempty"`
	ThermalConfidence *float64   `json:"thermal_confidence,omitempty"`
	FusedScore        float64    `json:"fused_score"`
	FrameSnapshotURL  *string    `json:"frame_snapshot_url,omitempty"`
	StreamName        *string    `json:"stream_name,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DetectionCreate is the caller-supplied input for a new detection.
// ID, CreatedAt and UpdatedAt are always server-assigned.
type DetectionCreate struct {
	Timestamp         time.Time  `json:"timestamp"`
	DroneDetected     bool       `json:"drone_detected"`
	Confidence        float64    `json:"confidence"`
	Direction         *Direction `json:"direction,omitempty"`
	DistanceFt        *float64   `json:"distance_ft,omitempty"`
	VisualConfidence  *float64   `json:"visual_confidence,omitempty"`
	ThermalConfidence *float64   `json:"thermal_confidence,omitempty"`
	FusedScore        float64    `json:"fused_score"`
	FrameSnapshotURL  *string    `json:"frame_snapshot_url,omitempty"`
	StreamName        *string    `json:"stream_name,omitempty"`
}

// DetectionUpdate is a partial update: nil fields are left untouched.
type DetectionUpdate struct {
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	DroneDetected     *bool      `json:"drone_detected,omitempty"`
	Confidence        *float64   `json:"confidence,omitempty"`
	Direction         *Direction `json:"direction,omitempty"`
	DistanceFt        *float64   `json:"distance_ft,omitempty"`
	VisualConfidence  *float64   `json:"visual_confidence,omitempty"`
	ThermalConfidence *float64   `json:"thermal_confidence,omitempty"`
	FusedScore        *float64   `json:"fused_score,omitempty"`
	FrameSnapshotURL  *string    `json:"frame_snapshot_url,omitempty"`
	StreamName        *string    `json:"stream_name,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (u DetectionUpdate) Empty() bool {
	return u.Timestamp == nil && u.DroneDetected == nil && u.Confidence == nil &&
		u.Direction == nil && u.DistanceFt == nil && u.VisualConfidence == nil &&
		u.ThermalConfidence == nil && u.FusedScore == nil &&
		u.FrameSnapshotURL == nil && u.StreamName == nil
}

// DetectionStats summarises detection counts, optionally scoped to a stream.
type DetectionStats struct {
	TotalDetections    int64   `json:"total_detections"`
	DroneDetections    int64   `json:"drone_detections"`
	NonDroneDetections int64   `json:"non_drone_detections"`
	StreamName         *string `json:"stream_name,omitempty"`
}

// StreamInfo describes a configured video stream and its connection URLs.
type StreamInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	RTSPURL     string `json:"rtsp_url"`
	HLSURL      string `json:"hls_url"`
	Status      string `json:"status"`
}
