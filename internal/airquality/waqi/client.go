// Package waqi provides the secondary, feed/search based air quality
// adapter.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "waqi"

	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI API token (required).
	Token string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 12s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new WAQI client.
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
		token:      cfg.Token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// API response types (from the WAQI feed and search endpoints).

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type feedData struct {
	AQI  json.Number `json:"aqi"`
	IAQI map[string]struct {
		V float64 `json:"v"`
	} `json:"iaqi"`
	Time struct {
		ISO string `json:"iso"`
	} `json:"time"`
}

type searchResult struct {
	UID int `json:"uid"`
}

// FetchCity fetches readings via the city feed. When the direct feed lacks
// both PM2.5 and PM10, a keyword search resolves a station identifier and
// the feed is refetched by that identifier. If the secondary path cannot
// improve on the direct feed, the direct feed result is kept.
func (c *Client) FetchCity(ctx context.Context, city string) (*airquality.CitySample, error) {
	sample, err := c.fetchFeed(ctx, city, "feed/"+url.PathEscape(strings.ToLower(city)))
	if err != nil {
		return nil, err
	}
	if airquality.HasPM(sample.Measurements) {
		return sample, nil
	}

	uid, err := c.searchStation(ctx, city)
	if err != nil {
		c.logger.Debug().Str("city", city).Err(err).Msg("station search failed, keeping direct feed result")
		return sample, nil
	}

	refetched, err := c.fetchFeed(ctx, city, fmt.Sprintf("feed/@%d", uid))
	if err != nil {
		c.logger.Debug().Str("city", city).Int("station", uid).Err(err).Msg("station refetch failed, keeping direct feed result")
		return sample, nil
	}
	return refetched, nil
}

// fetchFeed fetches one feed path and normalizes it. A non-"ok" status in a
// 200 body is a ProviderError, distinct from a transport failure.
func (c *Client) fetchFeed(ctx context.Context, city, path string) (*airquality.CitySample, error) {
	env, err := c.get(ctx, fmt.Sprintf("%s/%s/?token=%s", c.baseURL, path, url.QueryEscape(c.token)))
	if err != nil {
		return nil, err
	}

	var data feedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrMalformedResponse, err)
	}

	var lastUpdated *time.Time
	if t, err := time.Parse(time.RFC3339, data.Time.ISO); err == nil {
		lastUpdated = &t
	}

	// Sub-index entries come in map order; sort parameters for a stable
	// measurement list.
	params := make([]string, 0, len(data.IAQI))
	for p := range data.IAQI {
		params = append(params, p)
	}
	sort.Strings(params)

	measurements := make([]airquality.Measurement, 0, len(params))
	for _, p := range params {
		measurements = append(measurements, airquality.Measurement{
			Parameter:   p,
			Value:       data.IAQI[p].V,
			Unit:        "aqi",
			LastUpdated: lastUpdated,
		})
	}

	return &airquality.CitySample{
		City:         city,
		Measurements: measurements,
		ComputedAQI:  airquality.ComputeIndex(measurements),
		CapturedAt:   time.Now(),
	}, nil
}

// searchStation resolves a station identifier by keyword.
func (c *Client) searchStation(ctx context.Context, city string) (int, error) {
	env, err := c.get(ctx, fmt.Sprintf("%s/search/?token=%s&keyword=%s", c.baseURL, url.QueryEscape(c.token), url.QueryEscape(city)))
	if err != nil {
		return 0, err
	}

	var results []searchResult
	if err := json.Unmarshal(env.Data, &results); err != nil {
		return 0, fmt.Errorf("%w: %v", airquality.ErrMalformedResponse, err)
	}
	if len(results) == 0 {
		return 0, airquality.NewProviderError(ProviderName, 0, "no stations matched "+city)
	}
	return results[0].UID, nil
}

// get executes one API call and unwraps the status envelope.
func (c *Client) get(ctx context.Context, reqURL string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, airquality.NewProviderError(ProviderName, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", airquality.ErrMalformedResponse, err)
	}

	if env.Status != "ok" {
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			msg = string(env.Data)
		}
		return nil, airquality.NewProviderError(ProviderName, 0, msg)
	}

	return &env, nil
}
