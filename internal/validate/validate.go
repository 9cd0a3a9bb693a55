// Package validate turns untrusted detection input into invariant-satisfying
// values. All checks are pure: a failed validation has no side effects, and
// every violated constraint is reported, not just the first.
package validate

import (
	"fmt"
	"strings"

	"github.com/skyfence/detection-api/internal/model"
)

// Violation names one failed field-level constraint and the offending value.
type Violation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value"`
}

// ValidationError aggregates every violation found in a single input.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// AsValidation returns the *ValidationError inside err, or nil.
func AsValidation(err error) *ValidationError {
	ve, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	return ve
}

const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
	schemeS3    = "s3://"
)

// Detection checks a full create input. Returns nil or a *ValidationError
// carrying the complete set of violations.
func Detection(in model.DetectionCreate) error {
	var vs []Violation

	if in.Timestamp.IsZero() {
		vs = append(vs, Violation{"timestamp", "required", nil})
	}
	vs = appendUnitInterval(vs, "confidence", in.Confidence)
	vs = appendUnitInterval(vs, "fused_score", in.FusedScore)
	if in.VisualConfidence != nil {
		vs = appendUnitInterval(vs, "visual_confidence", *in.VisualConfidence)
	}
	if in.ThermalConfidence != nil {
		vs = appendUnitInterval(vs, "thermal_confidence", *in.ThermalConfidence)
	}
	if in.DistanceFt != nil && *in.DistanceFt <= 0 {
		vs = append(vs, Violation{"distance_ft", "must be greater than 0", *in.DistanceFt})
	}
	if in.Direction != nil && !in.Direction.Valid() {
		vs = append(vs, Violation{"direction", "must be one of N, NE, E, SE, S, SW, W, NW", string(*in.Direction)})
	}
	if in.FrameSnapshotURL != nil && !validScheme(*in.FrameSnapshotURL) {
		vs = append(vs, Violation{"frame_snapshot_url", "scheme must be http, https or s3", *in.FrameSnapshotURL})
	}
	if in.StreamName != nil && !validStreamName(*in.StreamName) {
		vs = append(vs, Violation{"stream_name", "1-100 characters, letters, digits, - and _ only", *in.StreamName})
	}

	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

// Update checks only the fields present in a partial update. An update with
// no fields at all is itself a violation.
func Update(in model.DetectionUpdate) error {
	var vs []Violation

	if in.Empty() {
		return &ValidationError{Violations: []Violation{
			{"update", "at least one field must be supplied", nil},
		}}
	}
	if in.Timestamp != nil && in.Timestamp.IsZero() {
		vs = append(vs, Violation{"timestamp", "required", nil})
	}
	if in.Confidence != nil {
		vs = appendUnitInterval(vs, "confidence", *in.Confidence)
	}
	if in.FusedScore != nil {
		vs = appendUnitInterval(vs, "fused_score", *in.FusedScore)
	}
	if in.VisualConfidence != nil {
		vs = appendUnitInterval(vs, "visual_confidence", *in.VisualConfidence)
	}
	if in.ThermalConfidence != nil {
		vs = appendUnitInterval(vs, "thermal_confidence", *in.ThermalConfidence)
	}
	if in.DistanceFt != nil && *in.DistanceFt <= 0 {
		vs = append(vs, Violation{"distance_ft", "must be greater than 0", *in.DistanceFt})
	}
	if in.Direction != nil && !in.Direction.Valid() {
		vs = append(vs, Violation{"direction", "must be one of N, NE, E, SE, S, SW, W, NW", string(*in.Direction)})
	}
	if in.FrameSnapshotURL != nil && !validScheme(*in.FrameSnapshotURL) {
		vs = append(vs, Violation{"frame_snapshot_url", "scheme must be http, https or s3", *in.FrameSnapshotURL})
	}
	if in.StreamName != nil && !validStreamName(*in.StreamName) {
		vs = append(vs, Violation{"stream_name", "1-100 characters, letters, digits, - and _ only", *in.StreamName})
	}

	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

func appendUnitInterval(vs []Violation, field string, v float64) []Violation {
	if v < 0 || v > 1 {
		return append(vs, Violation{field, "must be between 0.0 and 1.0", v})
	}
	return vs
}

func validScheme(u string) bool {
	return strings.HasPrefix(u, schemeHTTP) ||
		strings.HasPrefix(u, schemeHTTPS) ||
		strings.HasPrefix(u, schemeS3)
}

func validStreamName(s string) bool {
	if len(s) < 1 || len(s) > 100 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
