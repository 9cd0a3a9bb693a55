package api

import (
	"net/http"
	"time"

	"github.com/skyfence/detection-api/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReadiness verifies the store answers and the detections table is
// queryable before reporting ready.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "not_ready",
			"reason":    "store unreachable",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if _, err := s.store.CountDetections(ctx, store.CountFilter{}); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "not_ready",
			"reason":    "detections table not queryable",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDBHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	total, err := s.store.CountDetections(ctx, store.CountFilter{})
	tableExists := err == nil

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                  "healthy",
		"database":                "connected",
		"detections_table_exists": tableExists,
		"detections_total":        total,
		"timestamp":               time.Now().UTC().Format(time.RFC3339),
	})
}
