package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"ecgprep/internal/config"
)

// HubStats exposes websocket hub counters.
type HubStats interface {
	GetHubMetrics() map[string]interface{}
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	hub     HubStats
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler. hub may be nil.
func NewHealthHandler(hub HubStats, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		hub:     hub,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": config.AppVersion,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.hub != nil {
		resp["websocket"] = h.hub.GetHubMetrics()
	}
	render.JSON(w, r, resp)
}

// Version handles GET /version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"name":    config.AppName,
		"version": config.AppVersion,
	})
}
