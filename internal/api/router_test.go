package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/api"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

type stubService struct{}

func (stubService) GetCity(_ context.Context, city string) (*airquality.CitySample, error) {
	return &airquality.CitySample{City: city, CapturedAt: time.Now()}, nil
}

func (stubService) GetSnapshot() *airquality.Snapshot {
	return &airquality.Snapshot{TS: time.Now(), Cities: map[string]*airquality.CitySample{}}
}

func (stubService) GetHistory(string) []airquality.HistoryPoint {
	return nil
}

func newTestRouter() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Version:    "test",
		Logger:     zerolog.Nop(),
		AQIService: stubService{},
		Registry:   resilience.NewRegistry(),
		Cities:     []string{"Delhi"},
	})
}

func TestRouterRoutes(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/api/aqi", http.StatusOK},
		{"/api/aqi/all", http.StatusOK},
		{"/api/aqi/history?city=Delhi", http.StatusOK},
		{"/api/status", http.StatusOK},
		{"/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouterSetsRequestID(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aqi", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterPropagatesRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/aqi", nil)
	req.Header.Set("X-Request-Id", "req_incoming")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req_incoming", rec.Header().Get("X-Request-Id"))
}

func TestRouterContentType(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
