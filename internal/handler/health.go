package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mailclient/mailclient-auth/internal/model"
)

const healthPingTimeout = time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and database liveness.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, model.HealthResponse{Status: "degraded", DB: "down"})
		return
	}

	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok", DB: "up"})
}
