package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// EngineStatus reports whether the external tool chain can be resolved.
type EngineStatus interface {
	Available() bool
	TranscoderAvailable() bool
}

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	engine  EngineStatus
	history Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(engine EngineStatus, history Pinger) *HealthHandler {
	return &HealthHandler{
		engine:  engine,
		history: history,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe. The service is ready only when
// the download engine, the transcoder and the history store all resolve.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"engine":     "ok",
		"transcoder": "ok",
		"history":    "ok",
	}
	ready := true

	if !h.engine.Available() {
		checks["engine"] = "yt-dlp not found"
		ready = false
	}
	if !h.engine.TranscoderAvailable() {
		checks["transcoder"] = "ffmpeg not found"
		ready = false
	}
	if err := h.history.Ping(ctx); err != nil {
		checks["history"] = err.Error()
		ready = false
	}

	status := "ok"
	code := http.StatusOK
	if !ready {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
