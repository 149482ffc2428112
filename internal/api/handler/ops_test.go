package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityaq/cityaq/internal/api/handler"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

func TestHealthCheck(t *testing.T) {
	h := handler.NewOpsHandler("test", resilience.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestReadinessCheckNoProviders(t *testing.T) {
	h := handler.NewOpsHandler("test", resilience.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadinessCheckWithProvider(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openaq", resilience.NewClient(resilience.ClientConfig{Name: "openaq"}))
	h := handler.NewOpsHandler("test", registry, nil)

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("waqi", resilience.NewClient(resilience.ClientConfig{Name: "waqi"}))
	registry.Register("openaq", resilience.NewClient(resilience.ClientConfig{Name: "openaq"}))
	h := handler.NewOpsHandler("test", registry, []string{"Delhi", "Mumbai"})

	rec := httptest.NewRecorder()
	h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string                      `json:"status"`
		Cities    int                         `json:"cities"`
		Providers []resilience.ProviderHealth `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Cities)

	// Providers come back ordered by name.
	require.Len(t, body.Providers, 2)
	assert.Equal(t, "openaq", body.Providers[0].Provider)
	assert.Equal(t, "waqi", body.Providers[1].Provider)
	assert.Equal(t, "closed", body.Providers[0].State)
}
