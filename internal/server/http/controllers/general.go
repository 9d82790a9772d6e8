package controllers

import (
	"net/http"

	"github.com/cocuh/toyosatomimi/internal/services/broker"
	"github.com/go-chi/chi/v5"
)

// GeneralController serves health and counters.
type GeneralController struct {
	svc *broker.Service
}

// NewGeneralController creates a new general controller.
func NewGeneralController(svc *broker.Service) *GeneralController {
	return &GeneralController{svc: svc}
}

// RegisterRoutes registers /v1/healthz and /v1/stats.
func (c *GeneralController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/healthz", c.handleHealth)
	r.Get("/v1/stats", c.handleStats)
}

// handleHealth returns 200 with {"status":"ok"} while the broker loop is
// serving, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.CheckHealth(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, HealthResponse{Status: "not_serving", Error: err.Error()})
		return
	}
	writeJSON(w, HealthResponse{Status: "ok"})
}

func (c *GeneralController) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := c.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, st)
}
