package resilience

import (
	"sort"
	"sync"
)

// ProviderHealth is the per-provider health surface served by the status
// endpoint, derived from circuit breaker state.
type ProviderHealth struct {
	Provider             string `json:"provider"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalFailures        uint32 `json:"failures"`
	ConsecutiveFailures  uint32 `json:"consecutiveFailures"`
	ConsecutiveSuccesses uint32 `json:"consecutiveSuccesses"`
}

// Healthy reports whether the provider's circuit is closed.
func (h ProviderHealth) Healthy() bool {
	return h.State == "closed"
}

// Registry tracks the resilient clients of configured providers so their
// health can be reported without reaching into adapter internals.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register adds a provider's client under its name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Health returns the health of every registered provider, ordered by name.
func (r *Registry) Health() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]ProviderHealth, 0, len(r.clients))
	for name, client := range r.clients {
		counts := client.Counts()
		health = append(health, ProviderHealth{
			Provider:             name,
			State:                client.State().String(),
			Requests:             counts.Requests,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		})
	}

	sort.Slice(health, func(i, j int) bool { return health[i].Provider < health[j].Provider })
	return health
}
