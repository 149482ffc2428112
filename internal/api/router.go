// Package api provides the HTTP API for the service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cityaq/cityaq/internal/api/handler"
	"github.com/cityaq/cityaq/internal/api/middleware"
	"github.com/cityaq/cityaq/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	AQIService handler.AQIService
	Registry   *resilience.Registry
	Cities     []string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	aqiHandler := handler.NewAQIHandler(cfg.AQIService)
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Registry, cfg.Cities)

	// Probes stay outside the rate limit so orchestration never gets 429s.
	r.Get("/health", opsHandler.HealthCheck)
	r.Get("/ready", opsHandler.ReadinessCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
		r.Get("/aqi", aqiHandler.GetCity)
		r.Get("/aqi/all", aqiHandler.GetSnapshot)
		r.Get("/aqi/history", aqiHandler.GetHistory)
		r.Get("/status", opsHandler.SystemStatus)
	})

	return r
}
