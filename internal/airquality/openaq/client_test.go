package openaq_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/airquality/openaq"
)

func newTestClient(srv *httptest.Server) *openaq.Client {
	return openaq.NewClient(openaq.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestFetchCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "Delhi", r.URL.Query().Get("city"))
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{
				"location": "US Diplomatic Post: New Delhi",
				"city": "Delhi",
				"measurements": [
					{"parameter": "pm25", "value": 24, "unit": "µg/m³", "lastUpdated": "2026-09-01T10:00:00Z"},
					{"parameter": "no2", "value": 40, "unit": "µg/m³", "lastUpdated": "2026-09-01T10:00:00Z"}
				]
			}]
		}`))
	}))
	defer srv.Close()

	sample, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	require.NoError(t, err)
	assert.Equal(t, "Delhi", sample.City)
	require.Len(t, sample.Measurements, 2)
	assert.Equal(t, "pm25", sample.Measurements[0].Parameter)
	assert.Equal(t, 24.0, sample.Measurements[0].Value)
	require.NotNil(t, sample.Measurements[0].LastUpdated)
	require.NotNil(t, sample.ComputedAQI)
	assert.Equal(t, 76, *sample.ComputedAQI)
}

func TestFetchCityEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	sample, err := newTestClient(srv).FetchCity(context.Background(), "Atlantis")

	require.NoError(t, err, "a city unknown upstream is not a provider failure")
	assert.Empty(t, sample.Measurements)
	assert.Nil(t, sample.ComputedAQI)
}

func TestFetchCityUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "rate limited"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	require.Error(t, err)
	var provErr *airquality.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, openaq.ProviderName, provErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, provErr.Status)
	assert.Contains(t, provErr.Body, "rate limited")
}

func TestFetchCityMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	assert.ErrorIs(t, err, airquality.ErrMalformedResponse)
}
