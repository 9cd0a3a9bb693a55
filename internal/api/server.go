// Package api exposes the detection repository over HTTP. Handlers translate
// typed core results into status codes; all invariants live below this layer.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyfence/detection-api/internal/store"
	"github.com/skyfence/detection-api/internal/streams"
)

// Server bundles the handler dependencies.
type Server struct {
	store   store.Store
	streams *streams.Registry
}

// NewServer creates an API server over the given store and stream registry.
func NewServer(st store.Store, reg *streams.Registry) *Server {
	return &Server{store: st, streams: reg}
}

// Router builds the chi router with CORS, request logging and all routes.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestLogger)

	r.Get("/", s.handleRoot)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.handleHealth)
		r.Get("/live", s.handleLiveness)
		r.Get("/ready", s.handleReadiness)
		r.Get("/db", s.handleDBHealth)
	})

	r.Route("/streams", func(r chi.Router) {
		r.Get("/", s.handleListStreams)
		r.Get("/{name}", s.handleGetStream)
	})

	r.Route("/detections", func(r chi.Router) {
		r.Post("/", s.handleCreateDetection)
		r.Get("/", s.handleListDetections)
		r.Get("/stats/summary", s.handleDetectionStats)
		r.Get("/{id}", s.handleGetDetection)
		r.Patch("/{id}", s.handleUpdateDetection)
		r.Delete("/{id}", s.handleDeleteDetection)
	})

	return r
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set("X-Request-Id", reqID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		zap.L().Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Multimodal Drone Detection API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"detections":      "/detections",
			"detection_stats": "/detections/stats/summary",
			"streams":         "/streams",
			"health":          "/health",
		},
	})
}
