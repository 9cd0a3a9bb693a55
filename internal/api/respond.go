package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/skyfence/detection-api/internal/store"
	"github.com/skyfence/detection-api/internal/validate"
)

type errorResponse struct {
	Error      string               `json:"error"`
	Violations []validate.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v) //nolint:errcheck
	}
}

// writeError maps core error types onto transport status codes:
// validation -> 422, not found -> 404, storage unavailable -> 503.
func writeError(w http.ResponseWriter, err error) {
	if ve := validate.AsValidation(err); ve != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      ve.Error(),
			Violations: ve.Violations,
		})
		return
	}
	if store.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "detection not found"})
		return
	}
	if store.IsUnavailable(err) {
		zap.L().Error("storage unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
		return
	}
	zap.L().Error("internal error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
