// Package resilience wraps upstream HTTP calls with a fixed timeout, retry
// with exponential backoff, and a per-provider circuit breaker.
package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without touching the network while a
// provider's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for a resilient HTTP client.
type ClientConfig struct {
	// Name identifies the provider for circuit breaker naming.
	Name string

	// Timeout caps each HTTP call. A call past the timeout is a transport
	// failure. Default: 12s.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts on transient failures
	// (network errors and 5xx). Default: 2.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval. Default: 200ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval. Default: 3s.
	MaxInterval time.Duration

	// BreakerTimeout is how long the circuit stays open before a probe.
	// Default: 60s.
	BreakerTimeout time.Duration
}

// Client is an HTTP client with retry and circuit breaker protection.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        ClientConfig
}

// NewClient creates a resilient client for one provider.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 3 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: readyToTrip,
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		cfg:        cfg,
	}
}

// readyToTrip opens the circuit after at least 5 requests with a failure
// rate of 50% or higher.
func readyToTrip(counts gobreaker.Counts) bool {
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return counts.Requests >= 5 && ratio >= 0.5
}

// Do executes the request, retrying transient failures with exponential
// backoff. 5xx responses count against the circuit breaker; the last
// response is returned once retries are exhausted so callers can inspect
// the status. 4xx responses are returned immediately.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by MaxRetries, not wall clock

	var lastResp *http.Response

	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &serverError{status: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}
		lastResp = resp
		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
	if err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the circuit breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// serverError marks a 5xx response as a failure for retry and breaker
// accounting.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.status, http.StatusText(e.status))
}
