package airquality

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Adapter fetches and normalizes readings for a single city from one
// upstream provider. Implementations are stateless and safe for concurrent
// use across cities.
type Adapter interface {
	// Name identifies the provider for logging and health reporting.
	Name() string

	// FetchCity returns a normalized sample for the city, or an error
	// (ProviderError, transport failure, ErrMalformedResponse). An empty
	// measurement list with a nil error is a valid result.
	FetchCity(ctx context.Context, city string) (*CitySample, error)
}

// Resolver tries adapters in configured priority order and returns the
// first adapter's result that did not error. Priority is a configuration
// concern: the order of the adapter list, not code branching.
type Resolver struct {
	adapters []Adapter
	logger   zerolog.Logger
}

// NewResolver creates a Resolver over the given ordered adapters.
func NewResolver(logger zerolog.Logger, adapters ...Adapter) *Resolver {
	return &Resolver{
		adapters: adapters,
		logger:   logger,
	}
}

// ResolveCity resolves one city against the adapter chain. An adapter that
// returns without error short-circuits the chain, even when its measurement
// list is empty. When every adapter fails (or none is configured) the
// returned sample carries Error: "no-provider"; adapter errors never
// propagate to the caller.
func (r *Resolver) ResolveCity(ctx context.Context, city string) *CitySample {
	for _, a := range r.adapters {
		sample, err := a.FetchCity(ctx, city)
		if err != nil {
			r.logger.Warn().
				Str("city", city).
				Str("provider", a.Name()).
				Err(err).
				Msg("provider failed, trying next adapter")
			continue
		}
		return sample
	}

	return &CitySample{
		City:         city,
		Measurements: []Measurement{},
		Error:        ErrorNoProvider,
		CapturedAt:   time.Now(),
	}
}
