// Package registry selects and lazily constructs provider adapters by
// identifier. Instances are cached for the process lifetime and the registry
// is dependency-injected into the optimizer, never an ambient global.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/respcache"
	"github.com/depotroute/depotroute/internal/telemetry"
	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/googlemaps"
	"github.com/depotroute/depotroute/internal/traffic/here"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
	"github.com/depotroute/depotroute/internal/traffic/tomtom"
)

// priority is the fixed order used for the first-available default policy.
var priority = []string{tomtom.ProviderName, here.ProviderName, googlemaps.ProviderName}

// Config holds configuration for the provider registry.
type Config struct {
	// API keys per provider. A provider without a key is disabled.
	TomTomAPIKey     string
	HEREAPIKey       string
	GoogleMapsAPIKey string

	// DefaultProvider overrides the first-available-wins default policy.
	DefaultProvider string

	// Region is the allowed country for all adapters (default "US").
	Region string

	// Timeout is the per-request timeout passed to adapters.
	Timeout time.Duration

	// MinRequestInterval is the outbound request spacing passed to adapters.
	MinRequestInterval time.Duration

	// Cache is the shared response cache (optional).
	Cache respcache.Cache

	// Health receives circuit health updates from adapter clients (optional).
	Health *resilience.HealthRegistry

	// Metrics receives call and cache counters from adapters (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for adapter operations.
	Logger zerolog.Logger
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	timeout, _ := time.ParseDuration(getEnvOrDefault("PROVIDER_TIMEOUT", "30s"))
	interval, _ := time.ParseDuration(getEnvOrDefault("PROVIDER_MIN_INTERVAL", "250ms"))

	return Config{
		TomTomAPIKey:       os.Getenv("TOMTOM_API_KEY"),
		HEREAPIKey:         os.Getenv("HERE_API_KEY"),
		GoogleMapsAPIKey:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		DefaultProvider:    os.Getenv("DEFAULT_PROVIDER"),
		Region:             getEnvOrDefault("PROVIDER_REGION", "US"),
		Timeout:            timeout,
		MinRequestInterval: interval,
	}
}

// Registry maps provider identifiers to live adapter instances.
type Registry struct {
	cfg Config

	mu        sync.Mutex
	instances map[string]traffic.Provider
}

// New creates a provider registry. It fails when an explicit default
// provider is requested without credentials, or when no provider has
// credentials at all.
func New(cfg Config) (*Registry, error) {
	r := &Registry{
		cfg:       cfg,
		instances: make(map[string]traffic.Provider),
	}

	if len(r.Enabled()) == 0 {
		return nil, traffic.ErrNoProviders
	}
	if cfg.DefaultProvider != "" && !r.enabled(cfg.DefaultProvider) {
		return nil, fmt.Errorf("default provider %q: %w", cfg.DefaultProvider, traffic.ErrNotConfigured)
	}
	return r, nil
}

// Enabled returns the providers with credentials configured, in priority
// order.
func (r *Registry) Enabled() []string {
	enabled := make([]string, 0, len(priority))
	for _, id := range priority {
		if r.enabled(id) {
			enabled = append(enabled, id)
		}
	}
	return enabled
}

// DefaultProviderID returns the configured default, or the first enabled
// provider in priority order.
func (r *Registry) DefaultProviderID() string {
	if r.cfg.DefaultProvider != "" {
		return r.cfg.DefaultProvider
	}
	if enabled := r.Enabled(); len(enabled) > 0 {
		return enabled[0]
	}
	return ""
}

// Provider returns the adapter for the given identifier, constructing it on
// first use. An empty id selects the default provider.
func (r *Registry) Provider(id string) (traffic.Provider, error) {
	if id == "" {
		id = r.DefaultProviderID()
		if id == "" {
			return nil, traffic.ErrNoProviders
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[id]; ok {
		return p, nil
	}

	p, err := r.build(id)
	if err != nil {
		return nil, err
	}
	r.instances[id] = p
	return p, nil
}

func (r *Registry) build(id string) (traffic.Provider, error) {
	key, ok := r.apiKey(id)
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", id, traffic.ErrUnknownProvider)
	}
	if key == "" {
		return nil, fmt.Errorf("provider %q: %w", id, traffic.ErrNotConfigured)
	}

	logger := r.cfg.Logger.With().Str("provider", id).Logger()

	switch id {
	case tomtom.ProviderName:
		return tomtom.NewClient(tomtom.ClientConfig{
			APIKey:             key,
			Timeout:            r.cfg.Timeout,
			MinRequestInterval: r.cfg.MinRequestInterval,
			Region:             r.cfg.Region,
			Cache:              r.cfg.Cache,
			HealthRegistry:     r.cfg.Health,
			Metrics:            r.cfg.Metrics,
			Logger:             logger,
		}), nil
	case here.ProviderName:
		return here.NewClient(here.ClientConfig{
			APIKey:             key,
			Timeout:            r.cfg.Timeout,
			MinRequestInterval: r.cfg.MinRequestInterval,
			Region:             r.cfg.Region,
			Cache:              r.cfg.Cache,
			HealthRegistry:     r.cfg.Health,
			Metrics:            r.cfg.Metrics,
			Logger:             logger,
		}), nil
	case googlemaps.ProviderName:
		return googlemaps.NewClient(googlemaps.ClientConfig{
			APIKey:             key,
			Timeout:            r.cfg.Timeout,
			MinRequestInterval: r.cfg.MinRequestInterval,
			Region:             r.cfg.Region,
			Cache:              r.cfg.Cache,
			HealthRegistry:     r.cfg.Health,
			Metrics:            r.cfg.Metrics,
			Logger:             logger,
		}), nil
	default:
		return nil, fmt.Errorf("provider %q: %w", id, traffic.ErrUnknownProvider)
	}
}

func (r *Registry) enabled(id string) bool {
	key, ok := r.apiKey(id)
	return ok && key != ""
}

func (r *Registry) apiKey(id string) (string, bool) {
	switch id {
	case tomtom.ProviderName:
		return r.cfg.TomTomAPIKey, true
	case here.ProviderName:
		return r.cfg.HEREAPIKey, true
	case googlemaps.ProviderName:
		return r.cfg.GoogleMapsAPIKey, true
	default:
		return "", false
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
