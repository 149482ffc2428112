// Package store holds the in-memory per-city time series maintained by the
// poller. State lives for the process lifetime and is never persisted.
package store

import (
	"sync"
	"time"

	"github.com/cityaq/cityaq/internal/airquality"
)

// Config holds configuration for the store.
type Config struct {
	// Retention is how long history points are kept (default: 24h).
	Retention time.Duration

	// Clock overrides the time source (used by tests).
	Clock func() time.Time
}

// Store maps city names to their latest sample and retention-bounded
// history. Entries are created lazily on first push and never deleted;
// history is pruned from the front on every push.
type Store struct {
	retention time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*cityEntry
}

type cityEntry struct {
	latest  *airquality.CitySample
	history []airquality.HistoryPoint
}

// New creates a new store.
func New(cfg Config) *Store {
	retention := cfg.Retention
	if retention == 0 {
		retention = 24 * time.Hour
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Store{
		retention: retention,
		now:       now,
		entries:   make(map[string]*cityEntry),
	}
}

// Push records a sample as the city's latest, stamped at push time. Samples
// without an error are also appended to the history; error samples update
// latest only. Points older than the retention window are pruned on every
// push, so pruning cost is amortized across poll cycles.
func (s *Store) Push(city string, sample airquality.CitySample) {
	now := s.now()
	sample.CapturedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[city]
	if !ok {
		e = &cityEntry{}
		s.entries[city] = e
	}

	e.latest = &sample
	if sample.Error == "" {
		e.history = append(e.history, airquality.HistoryPoint{
			T:            now,
			ComputedAQI:  sample.ComputedAQI,
			Measurements: sample.Measurements,
		})
	}

	// History is ordered by insertion time, so expired points form a
	// prefix. Copy the survivors so the old backing array is released.
	cutoff := now.Add(-s.retention)
	drop := 0
	for drop < len(e.history) && e.history[drop].T.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		e.history = append([]airquality.HistoryPoint(nil), e.history[drop:]...)
	}
}

// GetLatest returns the city's most recent sample, or nil if the city has
// never been pushed.
func (s *Store) GetLatest(city string) *airquality.CitySample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[city]
	if !ok || e.latest == nil {
		return nil
	}
	cp := *e.latest
	return &cp
}

// GetHistory returns a copy of the city's ordered history. Callers never
// observe later mutation of the backing list.
func (s *Store) GetHistory(city string) []airquality.HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[city]
	if !ok {
		return []airquality.HistoryPoint{}
	}
	return append([]airquality.HistoryPoint(nil), e.history...)
}

// GetAllLatest returns each city's latest sample (nil for cities never
// pushed) in a single consistent pass over the store.
func (s *Store) GetAllLatest(cities []string) map[string]*airquality.CitySample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*airquality.CitySample, len(cities))
	for _, city := range cities {
		if e, ok := s.entries[city]; ok && e.latest != nil {
			cp := *e.latest
			out[city] = &cp
		} else {
			out[city] = nil
		}
	}
	return out
}
