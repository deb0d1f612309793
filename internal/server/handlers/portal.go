package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"feedreader/internal/core"
)

// PortalHandler serves the service-level endpoints that sit beside the
// feature routes
type PortalHandler struct {
	logger   *core.Logger
	registry *core.Registry
	db       *core.Database
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(logger *core.Logger, registry *core.Registry, db *core.Database) *PortalHandler {
	return &PortalHandler{
		logger:   logger,
		registry: registry,
		db:       db,
	}
}

// FeaturesHandler lists the registered features and whether they are enabled
func (h *PortalHandler) FeaturesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"features": h.registry.GetFeatureStatus(),
	})
}

// HealthCheckHandler provides a health check endpoint
func (h *PortalHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := h.db.PingWithTimeout(2 * time.Second); err != nil {
		h.logger.Error("Health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"service": "feedreader",
		"version": "1.0.0",
	})
}
