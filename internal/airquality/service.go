package airquality

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// HistoryStore is the read side of the aggregation store consumed by the
// service.
type HistoryStore interface {
	GetLatest(city string) *CitySample
	GetHistory(city string) []HistoryPoint
	GetAllLatest(cities []string) map[string]*CitySample
}

// Snapshot is the aggregate read shape served to clients: each tracked
// city's latest sample (nil if never polled), stamped at build time.
type Snapshot struct {
	TS     time.Time              `json:"ts"`
	Cities map[string]*CitySample `json:"cities"`
}

// ServiceConfig holds configuration for the read service.
type ServiceConfig struct {
	// Resolver is the adapter chain used by the live single-city path.
	Resolver *Resolver

	// Store is the aggregation store backing history and snapshot reads.
	Store HistoryStore

	// Cities is the fixed city list covered by the snapshot read.
	Cities []string

	// Logger for service operations.
	Logger zerolog.Logger

	// CityTTL memoizes single-city reads (default: 60s).
	CityTTL time.Duration

	// SnapshotTTL memoizes the aggregate snapshot read (default: 2m).
	SnapshotTTL time.Duration

	// RetryDelay is the pause before the live path's single retry
	// (default: 1.5s).
	RetryDelay time.Duration
}

// Service serves client reads between poll cycles. Single-city and snapshot
// reads are memoized with short TTLs to absorb request bursts; failures are
// never cached.
type Service struct {
	resolver    *Resolver
	store       HistoryStore
	cities      []string
	logger      zerolog.Logger
	cityTTL     time.Duration
	snapshotTTL time.Duration
	retryDelay  time.Duration

	mu        sync.RWMutex
	cityCache map[string]*cachedSample
	snapshot  *cachedSnapshot
}

type cachedSample struct {
	sample   *CitySample
	cachedAt time.Time
}

type cachedSnapshot struct {
	snapshot *Snapshot
	cachedAt time.Time
}

// NewService creates a new read service.
func NewService(cfg ServiceConfig) *Service {
	cityTTL := cfg.CityTTL
	if cityTTL == 0 {
		cityTTL = 60 * time.Second
	}

	snapshotTTL := cfg.SnapshotTTL
	if snapshotTTL == 0 {
		snapshotTTL = 2 * time.Minute
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 1500 * time.Millisecond
	}

	return &Service{
		resolver:    cfg.Resolver,
		store:       cfg.Store,
		cities:      cfg.Cities,
		logger:      cfg.Logger,
		cityTTL:     cityTTL,
		snapshotTTL: snapshotTTL,
		retryDelay:  retryDelay,
		cityCache:   make(map[string]*cachedSample),
	}
}

// GetCity returns the current sample for a city. A fresh cached value is
// served directly; otherwise the adapter chain is resolved live, with one
// retry after a short delay. If the live path fails entirely, the last
// aggregated sample is served uncached; with no fallback available the
// caller gets ErrNoProvider.
func (s *Service) GetCity(ctx context.Context, city string) (*CitySample, error) {
	s.mu.RLock()
	if c, ok := s.cityCache[city]; ok && time.Since(c.cachedAt) < s.cityTTL {
		s.mu.RUnlock()
		return c.sample, nil
	}
	s.mu.RUnlock()

	return s.fetchCity(ctx, city)
}

// GetHistory returns the retained trend points for a city.
func (s *Service) GetHistory(city string) []HistoryPoint {
	return s.store.GetHistory(city)
}

// GetSnapshot returns the latest sample for every tracked city in one
// consistent store pass, memoized under the snapshot TTL.
func (s *Service) GetSnapshot() *Snapshot {
	s.mu.RLock()
	if c := s.snapshot; c != nil && time.Since(c.cachedAt) < s.snapshotTTL {
		s.mu.RUnlock()
		return c.snapshot
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another reader may have rebuilt while we waited for the lock.
	if c := s.snapshot; c != nil && time.Since(c.cachedAt) < s.snapshotTTL {
		return c.snapshot
	}

	snap := &Snapshot{
		TS:     time.Now(),
		Cities: s.store.GetAllLatest(s.cities),
	}
	s.snapshot = &cachedSnapshot{snapshot: snap, cachedAt: time.Now()}
	return snap
}

// InvalidateCache clears both read caches.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cityCache = make(map[string]*cachedSample)
	s.snapshot = nil
}

// fetchCity resolves a city live and caches the result on success. The lock
// is not held across the upstream calls so slow providers never serialize
// reads for other cities.
func (s *Service) fetchCity(ctx context.Context, city string) (*CitySample, error) {
	s.mu.RLock()
	if c, ok := s.cityCache[city]; ok && time.Since(c.cachedAt) < s.cityTTL {
		s.mu.RUnlock()
		return c.sample, nil
	}
	s.mu.RUnlock()

	var sample *CitySample
	resolve := func() error {
		sample = s.resolver.ResolveCity(ctx, city)
		if sample.Error != "" {
			return fmt.Errorf("resolve %s: %s", city, sample.Error)
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1),
		ctx,
	)

	if err := backoff.Retry(resolve, bo); err != nil {
		// Live path exhausted; fall back to the last aggregated sample.
		// The fallback is served uncached so the next read tries live again.
		if latest := s.store.GetLatest(city); latest != nil && latest.Error == "" {
			s.logger.Warn().
				Str("city", city).
				Time("captured_at", latest.CapturedAt).
				Msg("serving last aggregated sample after live fetch failure")
			return latest, nil
		}
		s.logger.Error().Str("city", city).Err(err).Msg("live fetch failed with no fallback data")
		return nil, ErrNoProvider
	}

	s.mu.Lock()
	s.cityCache[city] = &cachedSample{sample: sample, cachedAt: time.Now()}
	s.mu.Unlock()

	return sample, nil
}
