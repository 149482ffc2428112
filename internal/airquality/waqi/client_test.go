package waqi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/airquality/waqi"
)

func newTestClient(srv *httptest.Server) *waqi.Client {
	return waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestFetchCityDirectFeed(t *testing.T) {
	var searchCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed/delhi/":
			assert.Equal(t, "test-token", r.URL.Query().Get("token"))
			_, _ = w.Write([]byte(`{
				"status": "ok",
				"data": {
					"aqi": 152,
					"iaqi": {"pm25": {"v": 45}, "no2": {"v": 18.2}},
					"time": {"iso": "2026-09-01T10:00:00+05:30"}
				}
			}`))
		case "/search/":
			searchCalled = true
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	sample, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	require.NoError(t, err)
	assert.False(t, searchCalled, "a feed with PM data needs no station search")
	assert.Equal(t, "Delhi", sample.City)
	require.Len(t, sample.Measurements, 2)

	// Parameters come back sorted.
	assert.Equal(t, "no2", sample.Measurements[0].Parameter)
	assert.Equal(t, "pm25", sample.Measurements[1].Parameter)
	assert.Equal(t, 45.0, sample.Measurements[1].Value)
	require.NotNil(t, sample.Measurements[1].LastUpdated)

	require.NotNil(t, sample.ComputedAQI)
	assert.Equal(t, 148, *sample.ComputedAQI)
}

func TestFetchCitySearchFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed/gurugram/":
			// Direct feed knows the city but has no particulate data.
			_, _ = w.Write([]byte(`{
				"status": "ok",
				"data": {"aqi": 80, "iaqi": {"no2": {"v": 22}}, "time": {"iso": "2026-09-01T10:00:00+05:30"}}
			}`))
		case "/search/":
			assert.Equal(t, "Gurugram", r.URL.Query().Get("keyword"))
			_, _ = w.Write([]byte(`{"status": "ok", "data": [{"uid": 2558}, {"uid": 2559}]}`))
		case "/feed/@2558/":
			_, _ = w.Write([]byte(`{
				"status": "ok",
				"data": {"aqi": 161, "iaqi": {"pm10": {"v": 55.4}}, "time": {"iso": "2026-09-01T10:00:00+05:30"}}
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	sample, err := newTestClient(srv).FetchCity(context.Background(), "Gurugram")

	require.NoError(t, err)
	require.Len(t, sample.Measurements, 1)
	assert.Equal(t, "pm10", sample.Measurements[0].Parameter)
	require.NotNil(t, sample.ComputedAQI)
	assert.Equal(t, 200, *sample.ComputedAQI)
}

func TestFetchCityKeepsDirectFeedWhenSearchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed/noida/":
			_, _ = w.Write([]byte(`{
				"status": "ok",
				"data": {"aqi": 80, "iaqi": {"o3": {"v": 31}}, "time": {"iso": "2026-09-01T10:00:00+05:30"}}
			}`))
		case "/search/":
			_, _ = w.Write([]byte(`{"status": "ok", "data": []}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	sample, err := newTestClient(srv).FetchCity(context.Background(), "Noida")

	require.NoError(t, err, "a failed station search does not discard the direct feed")
	require.Len(t, sample.Measurements, 1)
	assert.Equal(t, "o3", sample.Measurements[0].Parameter)
	assert.Nil(t, sample.ComputedAQI)
}

func TestFetchCityProviderReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "data": "Invalid key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	require.Error(t, err)
	var provErr *airquality.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, waqi.ProviderName, provErr.Provider)
	assert.Zero(t, provErr.Status)
	assert.Equal(t, "Invalid key", provErr.Body)
}

func TestFetchCityHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	var provErr *airquality.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusBadGateway, provErr.Status)
}

func TestFetchCityMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchCity(context.Background(), "Delhi")

	assert.ErrorIs(t, err, airquality.ErrMalformedResponse)
}
