package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skyfence/detection-api/internal/aggregate"
	"github.com/skyfence/detection-api/internal/model"
	"github.com/skyfence/detection-api/internal/store"
	"github.com/skyfence/detection-api/internal/validate"
)

func (s *Server) handleCreateDetection(w http.ResponseWriter, r *http.Request) {
	var in model.DetectionCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	// Validation runs to completion before any persistence is attempted.
	if err := validate.Detection(in); err != nil {
		writeError(w, err)
		return
	}

	d, err := s.store.CreateDetection(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetDetection(w http.ResponseWriter, r *http.Request) {
	id, ok := detectionID(w, r)
	if !ok {
		return
	}

	d, err := s.store.GetDetection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListDetections(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}

	detections, err := s.store.ListDetections(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detections)
}

func (s *Server) handleUpdateDetection(w http.ResponseWriter, r *http.Request) {
	id, ok := detectionID(w, r)
	if !ok {
		return
	}

	var in model.DetectionUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	// Only the supplied fields are re-validated; the rest stay as stored.
	if err := validate.Update(in); err != nil {
		writeError(w, err)
		return
	}

	d, err := s.store.UpdateDetection(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDetection(w http.ResponseWriter, r *http.Request) {
	id, ok := detectionID(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.DeleteDetection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "detection not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDetectionStats(w http.ResponseWriter, r *http.Request) {
	streamName := r.URL.Query().Get("stream_name")

	stats, err := aggregate.Stats(r.Context(), s.store, streamName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"streams": s.streams.List(),
		"total":   s.streams.Len(),
	})
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	si, ok := s.streams.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":             "stream not found",
			"stream":            name,
			"available_streams": s.streams.Names(),
		})
		return
	}
	writeJSON(w, http.StatusOK, si)
}

// detectionID parses the path id; a non-positive or non-numeric id is a 400.
func detectionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, fmt.Sprintf("invalid detection id %q", raw))
		return 0, false
	}
	return id, true
}

// listFilter parses skip/limit/stream_name/drone_only query parameters,
// rejecting values outside the repository's contract.
func listFilter(w http.ResponseWriter, r *http.Request) (store.ListFilter, bool) {
	q := r.URL.Query()
	filter := store.ListFilter{
		StreamName: q.Get("stream_name"),
		Limit:      store.DefaultLimit,
	}

	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			writeBadRequest(w, fmt.Sprintf("skip must be a non-negative integer, got %q", raw))
			return store.ListFilter{}, false
		}
		filter.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			writeBadRequest(w, fmt.Sprintf("limit must be between 1 and %d, got %q", store.MaxLimit, raw))
			return store.ListFilter{}, false
		}
		filter.Limit = limit
	}
	if raw := q.Get("drone_only"); raw != "" {
		droneOnly, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, fmt.Sprintf("drone_only must be a boolean, got %q", raw))
			return store.ListFilter{}, false
		}
		filter.DroneOnly = droneOnly
	}
	return filter, true
}
