// Package main provides the entrypoint for the cityaq API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cityaq/cityaq/internal/airquality"
	"github.com/cityaq/cityaq/internal/airquality/openaq"
	"github.com/cityaq/cityaq/internal/airquality/waqi"
	"github.com/cityaq/cityaq/internal/api"
	"github.com/cityaq/cityaq/internal/api/middleware"
	"github.com/cityaq/cityaq/internal/config"
	"github.com/cityaq/cityaq/internal/poller"
	"github.com/cityaq/cityaq/internal/provider/resilience"
	"github.com/cityaq/cityaq/internal/store"
	"github.com/cityaq/cityaq/internal/telemetry"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	const serviceName = "cityaq-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Int("cities", len(cfg.Cities)).
		Dur("poll_interval", cfg.PollInterval).
		Msg("starting cityaq API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		OTLPEndpoint:   cfg.OtelEndpoint,
		Enabled:        cfg.OtelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OtelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OtelEndpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Providers without credentials are skipped, not failed: the service
	// can run degraded on a single upstream.
	registry := resilience.NewRegistry()
	var adapters []airquality.Adapter

	if cfg.OpenAQAPIKey != "" {
		client := resilience.NewClient(resilience.ClientConfig{
			Name:    openaq.ProviderName,
			Timeout: cfg.RequestTimeout,
		})
		registry.Register(openaq.ProviderName, client)
		adapters = append(adapters, openaq.NewClient(openaq.ClientConfig{
			APIKey:     cfg.OpenAQAPIKey,
			BaseURL:    cfg.OpenAQBaseURL,
			HTTPClient: client,
		}))
		log.Info().Msg("openaq provider initialized")
	} else {
		log.Warn().Msg("OPENAQ_API_KEY not set, openaq provider disabled")
	}

	if cfg.WAQIToken != "" {
		client := resilience.NewClient(resilience.ClientConfig{
			Name:    waqi.ProviderName,
			Timeout: cfg.RequestTimeout,
		})
		registry.Register(waqi.ProviderName, client)
		adapters = append(adapters, waqi.NewClient(waqi.ClientConfig{
			Token:      cfg.WAQIToken,
			BaseURL:    cfg.WAQIBaseURL,
			HTTPClient: client,
			Logger:     log,
		}))
		log.Info().Msg("waqi provider initialized")
	} else {
		log.Warn().Msg("WAQI_TOKEN not set, waqi provider disabled")
	}

	if len(adapters) == 0 {
		log.Warn().Msg("no providers configured, every fetch will fail")
	}

	resolver := airquality.NewResolver(log, adapters...)

	historyStore := store.New(store.Config{Retention: cfg.Retention})

	service := airquality.NewService(airquality.ServiceConfig{
		Resolver:    resolver,
		Store:       historyStore,
		Cities:      cfg.Cities,
		Logger:      log,
		CityTTL:     cfg.CityCacheTTL,
		SnapshotTTL: cfg.SnapshotCacheTTL,
		RetryDelay:  cfg.ReadRetryDelay,
	})

	p := poller.New(resolver, historyStore, poller.Config{
		Cities:      cfg.Cities,
		Concurrency: cfg.FetchConcurrency,
		Interval:    cfg.PollInterval,
		Timeout:     cfg.RequestTimeout,
		Logger:      log,
	})
	p.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		Version:    Version,
		Logger:     log,
		Metrics:    metrics,
		AQIService: service,
		Registry:   registry,
		Cities:     cfg.Cities,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	p.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("server stopped")
}
