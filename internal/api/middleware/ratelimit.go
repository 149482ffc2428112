package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window.
	RequestLimit int
	// Window duration.
	WindowLength time.Duration
}

// StandardRateLimit applies to the read endpoints (100 req/min).
var StandardRateLimit = RateLimitConfig{
	RequestLimit: 100,
	WindowLength: time.Minute,
}

// RateLimitByIP creates a rate limiter middleware keyed on client IP.
// Uses X-Forwarded-For when present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	// httprate does not expose the exact reset time, use a conservative
	// estimate.
	w.Header().Set("Retry-After", strconv.Itoa(60))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "rate limit exceeded, try again later",
	})
}
