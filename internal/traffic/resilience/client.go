// Package resilience provides the circuit-breaker HTTP client shared by the
// provider adapters, plus a health registry surfaced on the ops endpoint.
//
// The client deliberately does not retry: per the optimizer's error contract,
// adapter failures surface immediately and retry policy belongs to the
// integration layer.
package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker is open and the
// request was not attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming and health.
	Name string

	// Timeout is the per-request timeout. Default: 30 seconds.
	Timeout time.Duration

	// CircuitBreaker overrides the breaker configuration.
	// If nil, DefaultBreakerConfig(Name) is used.
	CircuitBreaker *BreakerConfig

	// Registry receives success/failure health updates (optional).
	Registry *HealthRegistry
}

// Client wraps http.Client with a circuit breaker and per-request timeout.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	registry   *HealthRegistry
}

// NewClient creates a resilient HTTP client for one provider.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	breakerCfg := cfg.CircuitBreaker
	if breakerCfg == nil {
		def := DefaultBreakerConfig(cfg.Name)
		breakerCfg = &def
	}

	c := &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker:  NewBreaker[*http.Response](*breakerCfg),
		registry: cfg.Registry,
	}

	if c.registry != nil {
		c.registry.register(cfg.Name, c)
	}
	return c
}

// Do executes the request through the circuit breaker. Responses with status
// >= 500 count as failures so a flapping provider trips the breaker; they are
// still returned to the caller for error mapping. When the breaker is open
// the request is not attempted and ErrCircuitOpen is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
		r, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if r.StatusCode >= 500 {
			return r, fmt.Errorf("provider returned status %d", r.StatusCode)
		}
		return r, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.recordFailure(err)
		return nil, ErrCircuitOpen
	case err != nil && resp == nil:
		c.recordFailure(err)
		return nil, err
	case err != nil:
		// 5xx: counted against the breaker, response handed back.
		c.recordFailure(err)
		return resp, nil
	default:
		c.recordSuccess()
		return resp, nil
	}
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the circuit breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.recordSuccess(c.name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.recordFailure(c.name, err)
	}
}
