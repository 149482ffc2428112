// Package poller drives periodic refreshes of the configured cities,
// fanning fetches out over a bounded worker pool and pushing every outcome
// into the store.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/cityaq/cityaq/internal/airquality"
)

// Resolver fetches one city's sample, falling through configured providers.
type Resolver interface {
	ResolveCity(ctx context.Context, city string) *airquality.CitySample
}

// Sink receives every sample produced by a poll cycle.
type Sink interface {
	Push(city string, sample airquality.CitySample)
}

// Config holds configuration for the poller.
type Config struct {
	// Cities is the list of cities refreshed each cycle.
	Cities []string

	// Concurrency bounds the number of in-flight city fetches (default: 4).
	Concurrency int

	// Interval between poll cycles (default: 5m).
	Interval time.Duration

	// Timeout caps each city fetch (default: 12s).
	Timeout time.Duration

	// Logger for poller operations.
	Logger zerolog.Logger
}

// Poller refreshes all configured cities on a fixed schedule.
type Poller struct {
	resolver    Resolver
	sink        Sink
	cities      []string
	concurrency int
	interval    time.Duration
	timeout     time.Duration
	logger      zerolog.Logger

	polling   atomic.Bool
	scheduler *gocron.Scheduler
}

// New creates a poller.
func New(resolver Resolver, sink Sink, cfg Config) *Poller {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = 5 * time.Minute
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}

	return &Poller{
		resolver:    resolver,
		sink:        sink,
		cities:      cfg.Cities,
		concurrency: concurrency,
		interval:    interval,
		timeout:     timeout,
		logger:      cfg.Logger,
	}
}

// Start schedules recurring poll cycles, firing the first one immediately.
// The scheduler runs until Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.scheduler = gocron.NewScheduler(time.UTC)
	p.scheduler.SingletonModeAll()

	if _, err := p.scheduler.Every(p.interval).StartImmediately().Do(func() {
		p.RunOnce(ctx)
	}); err != nil {
		p.logger.Error().Err(err).Msg("failed to schedule poll cycles")
		return
	}

	p.scheduler.StartAsync()
	p.logger.Info().
		Dur("interval", p.interval).
		Int("cities", len(p.cities)).
		Int("concurrency", p.concurrency).
		Msg("poller started")
}

// Stop halts the schedule. A cycle already in flight finishes on its own.
func (p *Poller) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
	p.logger.Info().Msg("poller stopped")
}

// RunOnce runs one poll cycle, unless a previous cycle is still in flight.
// It reports whether the cycle ran.
func (p *Poller) RunOnce(ctx context.Context) bool {
	if !p.polling.CompareAndSwap(false, true) {
		p.logger.Warn().Msg("poll cycle still in flight, skipping")
		return false
	}
	defer p.polling.Store(false)

	started := time.Now()
	p.pollAll(ctx)
	p.logger.Info().
		Int("cities", len(p.cities)).
		Dur("elapsed", time.Since(started)).
		Msg("poll cycle complete")
	return true
}

// pollAll fans the city list out over the worker pool. Every sample is
// pushed, including error samples, so the latest state always reflects the
// most recent attempt.
func (p *Poller) pollAll(ctx context.Context) {
	jobs := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for city := range jobs {
				p.pollCity(ctx, city)
			}
		}()
	}

	for _, city := range p.cities {
		jobs <- city
	}
	close(jobs)
	wg.Wait()
}

func (p *Poller) pollCity(ctx context.Context, city string) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sample := p.resolver.ResolveCity(fetchCtx, city)
	p.sink.Push(city, *sample)

	if sample.Error != "" {
		p.logger.Warn().Str("city", city).Str("error", sample.Error).Msg("city refresh failed")
		return
	}
	p.logger.Debug().Str("city", city).Int("measurements", len(sample.Measurements)).Msg("city refreshed")
}
