// Package airquality provides normalized air quality data and the
// aggregation read path: provider adapters, the fallback resolver and the
// cached read service.
package airquality

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for provider and read-path failures.
var (
	// ErrNoProvider is returned when no adapter is configured or every
	// configured adapter failed for a city.
	ErrNoProvider = errors.New("no provider data available")

	// ErrMalformedResponse indicates an upstream payload that could not be
	// decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ErrorNoProvider is the sample-level error value recorded when every
// adapter was exhausted for a city.
const ErrorNoProvider = "no-provider"

// maxErrorBody caps how much of an upstream error body is carried in a
// ProviderError.
const maxErrorBody = 200

// ProviderError is an explicit upstream failure: a non-2xx HTTP response or
// a provider-reported error status inside a 200 body.
type ProviderError struct {
	// Provider identifies the upstream service.
	Provider string

	// Status is the HTTP status code, or 0 when the failure was reported
	// inside a successful HTTP response.
	Status int

	// Body is the truncated upstream error body or message.
	Body string
}

// NewProviderError builds a ProviderError, truncating the body.
func NewProviderError(provider string, status int, body string) *ProviderError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &ProviderError{Provider: provider, Status: status, Body: body}
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Body)
}

// Measurement is a single pollutant reading as reported by a provider.
// Immutable once constructed; duplicates per parameter are kept as reported.
type Measurement struct {
	Parameter   string     `json:"parameter"`
	Value       float64    `json:"value"`
	Unit        string     `json:"unit"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// CitySample is one normalized poll result for a city. A sample can carry
// neither an error nor a computed index (no PM reading was present), or an
// error with empty measurements.
type CitySample struct {
	City         string        `json:"city"`
	Measurements []Measurement `json:"measurements"`
	ComputedAQI  *int          `json:"computedAQI"`
	Error        string        `json:"error,omitempty"`
	CapturedAt   time.Time     `json:"capturedAt"`
}

// HistoryPoint is a retained snapshot of a CitySample at insertion time.
type HistoryPoint struct {
	T            time.Time     `json:"t"`
	ComputedAQI  *int          `json:"computedAQI"`
	Measurements []Measurement `json:"measurements"`
}

// HasPM reports whether the measurements contain a PM2.5 or PM10 reading.
func HasPM(measurements []Measurement) bool {
	for _, m := range measurements {
		if m.Parameter == "pm25" || m.Parameter == "pm10" {
			return true
		}
	}
	return false
}
