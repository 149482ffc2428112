// Package handler provides HTTP request handlers for the API.
package handler

import (
	"context"
	"net/http"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/api/response"
)

// DefaultCity is served when the city query parameter is absent.
const DefaultCity = "Delhi"

// AQIService is the read surface backing the air quality endpoints.
type AQIService interface {
	GetCity(ctx context.Context, city string) (*airquality.CitySample, error)
	GetSnapshot() *airquality.Snapshot
	GetHistory(city string) []airquality.HistoryPoint
}

// AQIHandler handles air quality endpoints.
type AQIHandler struct {
	service AQIService
}

// NewAQIHandler creates a new AQI handler.
func NewAQIHandler(service AQIService) *AQIHandler {
	return &AQIHandler{service: service}
}

// GetCity handles GET /api/aqi. Without a city parameter it serves the
// default city.
func (h *AQIHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		city = DefaultCity
	}

	sample, err := h.service.GetCity(r.Context(), city)
	if err != nil {
		response.Error(w, r, http.StatusBadGateway, "upstream API error", err.Error())
		return
	}

	response.JSON(w, r, http.StatusOK, sample)
}

// GetSnapshot handles GET /api/aqi/all, serving the latest known sample for
// every configured city.
func (h *AQIHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.service.GetSnapshot())
}

// historyResponse is the JSON shape of the history endpoint.
type historyResponse struct {
	City   string                    `json:"city"`
	Points []airquality.HistoryPoint `json:"points"`
}

// GetHistory handles GET /api/aqi/history. The city parameter is required.
func (h *AQIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		response.Error(w, r, http.StatusBadRequest, "missing city parameter", "")
		return
	}

	response.JSON(w, r, http.StatusOK, historyResponse{
		City:   city,
		Points: h.service.GetHistory(city),
	})
}
