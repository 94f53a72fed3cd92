package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a snapshot of one provider client's health.
type ProviderHealth struct {
	// Name is the provider identifier.
	Name string `json:"name"`

	// CircuitState is the current circuit breaker state.
	CircuitState string `json:"circuitState"`

	// Requests, Failures mirror the breaker counters.
	Requests uint32 `json:"requests"`
	Failures uint32 `json:"failures"`

	// LastSuccessAt is the time of the most recent successful request.
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`

	// LastFailureAt is the time of the most recent failed request.
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`

	// LastError is the most recent error message, if any.
	LastError string `json:"lastError,omitempty"`
}

// Healthy reports whether the provider circuit is closed.
func (h *ProviderHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed.String()
}

// HealthRegistry tracks the health of registered provider clients.
type HealthRegistry struct {
	mu      sync.RWMutex
	clients map[string]*trackedClient
}

type trackedClient struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewHealthRegistry creates an empty health registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{clients: make(map[string]*trackedClient)}
}

func (r *HealthRegistry) register(name string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = &trackedClient{client: c}
}

func (r *HealthRegistry) recordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		now := time.Now()
		t.lastSuccessAt = &now
	}
}

func (r *HealthRegistry) recordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.clients[name]; ok {
		now := time.Now()
		t.lastFailureAt = &now
		if err != nil {
			t.lastError = err.Error()
		}
	}
}

// Health returns the health snapshot for one provider, or nil if unknown.
func (r *HealthRegistry) Health(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.clients[name]
	if !ok {
		return nil
	}
	return snapshot(name, t)
}

// AllHealth returns health snapshots for every registered provider.
func (r *HealthRegistry) AllHealth() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ProviderHealth, 0, len(r.clients))
	for name, t := range r.clients {
		out = append(out, snapshot(name, t))
	}
	return out
}

func snapshot(name string, t *trackedClient) *ProviderHealth {
	counts := t.client.Counts()
	return &ProviderHealth{
		Name:          name,
		CircuitState:  t.client.State().String(),
		Requests:      counts.Requests,
		Failures:      counts.TotalFailures,
		LastSuccessAt: t.lastSuccessAt,
		LastFailureAt: t.lastFailureAt,
		LastError:     t.lastError,
	}
}
