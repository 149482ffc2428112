// Package openaq provides the primary, structured air quality adapter.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "openaq"

	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org/v3"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// APIKey is the OpenAQ API key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 12s).
	Timeout time.Duration
}

// Client is an OpenAQ API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from the OpenAQ latest endpoint).

type latestResponse struct {
	Results []resultData `json:"results"`
}

type resultData struct {
	Location     string            `json:"location"`
	City         string            `json:"city"`
	Measurements []measurementData `json:"measurements"`
}

type measurementData struct {
	Parameter   string  `json:"parameter"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	LastUpdated string  `json:"lastUpdated"`
}

// FetchCity fetches the latest readings for a city in one structured call.
// An empty results list is not an error: the sample comes back with no
// measurements and a nil index.
func (c *Client) FetchCity(ctx context.Context, city string) (*airquality.CitySample, error) {
	reqURL := fmt.Sprintf("%s/latest?city=%s&limit=100", c.baseURL, url.QueryEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, airquality.NewProviderError(ProviderName, resp.StatusCode, string(body))
	}

	var result latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrMalformedResponse, err)
	}

	measurements := []airquality.Measurement{}
	if len(result.Results) > 0 {
		// The first result is the most relevant station for the city.
		for _, m := range result.Results[0].Measurements {
			measurements = append(measurements, airquality.Measurement{
				Parameter:   m.Parameter,
				Value:       m.Value,
				Unit:        m.Unit,
				LastUpdated: parseTimestamp(m.LastUpdated),
			})
		}
	}

	return &airquality.CitySample{
		City:         city,
		Measurements: measurements,
		ComputedAQI:  airquality.ComputeIndex(measurements),
		CapturedAt:   time.Now(),
	}, nil
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
