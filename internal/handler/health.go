package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness check.
type HealthHandler struct {
	deps    map[string]Pinger
	ready   func() bool
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler reports each named dependency; ready says whether the
// summarizer is configured.
func NewHealthHandler(deps map[string]Pinger, ready func() bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, ready: ready, timeout: 2 * time.Second, logger: logger}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Ready     bool      `json:"ready"`
}

// HandleHealth answers 200 {"status":"ok"} while every dependency responds
// and 503 {"status":"degraded"} otherwise. "ready" is false when summaries
// would only produce the not-configured warning.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Error("health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Ready:     h.ready != nil && h.ready(),
	})
}
