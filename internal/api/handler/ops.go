package handler

import (
	"net/http"
	"time"

	"github.com/cityaq/cityaq/internal/api/response"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version  string
	registry *resilience.Registry
	cities   []string
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version string, registry *resilience.Registry, cities []string) *OpsHandler {
	return &OpsHandler{
		version:  version,
		registry: registry,
		cities:   cities,
	}
}

type healthBody struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Version string    `json:"version,omitempty"`
}

// HealthCheck handles GET /health, the liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, healthBody{
		Status:  "ok",
		Time:    time.Now(),
		Version: h.version,
	})
}

// ReadinessCheck handles GET /ready. The service is ready once at least one
// provider is registered; with no providers every read would fail.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if len(h.registry.Health()) == 0 {
		response.Error(w, r, http.StatusServiceUnavailable, "no providers configured", "")
		return
	}
	response.JSON(w, r, http.StatusOK, healthBody{Status: "ok", Time: time.Now()})
}

type statusBody struct {
	Status    string                      `json:"status"`
	Time      time.Time                   `json:"time"`
	Cities    int                         `json:"cities"`
	Providers []resilience.ProviderHealth `json:"providers"`
}

// SystemStatus handles GET /api/status, reporting per-provider circuit
// breaker health.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	providers := h.registry.Health()

	status := "ok"
	for _, p := range providers {
		if !p.Healthy() {
			status = "degraded"
			break
		}
	}

	response.JSON(w, r, http.StatusOK, statusBody{
		Status:    status,
		Time:      time.Now(),
		Cities:    len(h.cities),
		Providers: providers,
	})
}
