// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the full application configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// PollInterval controls how often the poller refreshes every city.
	PollInterval time.Duration

	// Retention bounds how long history points are kept per city.
	Retention time.Duration

	// Cities is the list of cities to poll.
	Cities []string

	// FetchConcurrency bounds in-flight city fetches during a poll cycle.
	FetchConcurrency int

	// RequestTimeout caps each upstream fetch.
	RequestTimeout time.Duration

	// CityCacheTTL is how long a per-city sample is served from cache.
	CityCacheTTL time.Duration

	// SnapshotCacheTTL is how long the all-cities snapshot is served from
	// cache.
	SnapshotCacheTTL time.Duration

	// ReadRetryDelay is the pause before the single on-demand retry.
	ReadRetryDelay time.Duration

	// OpenAQAPIKey authenticates against OpenAQ. Empty disables the
	// provider.
	OpenAQAPIKey string

	// OpenAQBaseURL overrides the OpenAQ base URL (tests, proxies).
	OpenAQBaseURL string

	// WAQIToken authenticates against WAQI. Empty disables the provider.
	WAQIToken string

	// WAQIBaseURL overrides the WAQI base URL.
	WAQIBaseURL string

	// OtelEnabled turns on trace and metric export.
	OtelEnabled bool

	// OtelEndpoint is the OTLP gRPC collector endpoint.
	OtelEndpoint string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Info().Err(err).Msg("no .env file loaded")
	}

	cfg := &Config{
		Port:             getenvDefault("APP_PORT", "8080"),
		FetchConcurrency: getenvInt("FETCH_CONCURRENCY", 4),
		OpenAQAPIKey:     os.Getenv("OPENAQ_API_KEY"),
		OpenAQBaseURL:    os.Getenv("OPENAQ_BASE_URL"),
		WAQIToken:        os.Getenv("WAQI_TOKEN"),
		WAQIBaseURL:      os.Getenv("WAQI_BASE_URL"),
		OtelEnabled:      getenvBool("OTEL_ENABLED", false),
		OtelEndpoint:     getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.PollInterval, err = getenvDuration("AGG_POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Retention, err = getenvDuration("AGG_RETENTION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 12*time.Second); err != nil {
		return nil, err
	}
	if cfg.CityCacheTTL, err = getenvDuration("CITY_CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SnapshotCacheTTL, err = getenvDuration("SNAPSHOT_CACHE_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReadRetryDelay, err = getenvDuration("READ_RETRY_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.Cities = loadCities()

	return cfg, nil
}

// loadCities parses the AGG_CITIES comma-separated override, falling back
// to the default city list.
func loadCities() []string {
	raw := os.Getenv("AGG_CITIES")
	if raw == "" {
		return DefaultCities()
	}

	var cities []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	if len(cities) == 0 {
		return DefaultCities()
	}
	return cities
}

// DefaultCities returns the cities polled when no override is configured.
func DefaultCities() []string {
	return []string{
		"Delhi", "Mumbai", "Bengaluru", "Kolkata", "Chennai",
		"Hyderabad", "Pune", "Ahmedabad", "Lucknow", "Jaipur",
		"Kanpur", "Nagpur", "Indore", "Bhopal", "Patna",
		"Surat", "Vadodara", "Visakhapatnam", "Coimbatore", "Ludhiana",
		"Agra", "Nashik", "Faridabad", "Meerut", "Rajkot",
		"Kochi", "Varanasi", "Srinagar", "Amritsar", "Guwahati",
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
