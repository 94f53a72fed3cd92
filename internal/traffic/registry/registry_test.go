package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/registry"
)

func TestNew_RequiresAtLeastOneProvider(t *testing.T) {
	_, err := registry.New(registry.Config{})
	assert.ErrorIs(t, err, traffic.ErrNoProviders)
}

func TestNew_RejectsUnconfiguredDefault(t *testing.T) {
	_, err := registry.New(registry.Config{
		TomTomAPIKey:    "tt-key",
		DefaultProvider: "googlemaps",
	})
	assert.ErrorIs(t, err, traffic.ErrNotConfigured)
}

func TestEnabled_PriorityOrder(t *testing.T) {
	r, err := registry.New(registry.Config{
		TomTomAPIKey:     "tt-key",
		HEREAPIKey:       "here-key",
		GoogleMapsAPIKey: "gm-key",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tomtom", "here", "googlemaps"}, r.Enabled())
	assert.Equal(t, "tomtom", r.DefaultProviderID())
}

func TestDefaultProviderID_FirstAvailableWins(t *testing.T) {
	r, err := registry.New(registry.Config{
		HEREAPIKey:       "here-key",
		GoogleMapsAPIKey: "gm-key",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"here", "googlemaps"}, r.Enabled())
	assert.Equal(t, "here", r.DefaultProviderID())
}

func TestDefaultProviderID_ExplicitOverride(t *testing.T) {
	r, err := registry.New(registry.Config{
		TomTomAPIKey:     "tt-key",
		GoogleMapsAPIKey: "gm-key",
		DefaultProvider:  "googlemaps",
	})
	require.NoError(t, err)

	assert.Equal(t, "googlemaps", r.DefaultProviderID())
}

func TestProvider_EmptyIDSelectsDefault(t *testing.T) {
	r, err := registry.New(registry.Config{HEREAPIKey: "here-key"})
	require.NoError(t, err)

	p, err := r.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "here", p.Name())
}

func TestProvider_CachesInstances(t *testing.T) {
	r, err := registry.New(registry.Config{TomTomAPIKey: "tt-key"})
	require.NoError(t, err)

	first, err := r.Provider("tomtom")
	require.NoError(t, err)
	second, err := r.Provider("tomtom")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestProvider_UnknownID(t *testing.T) {
	r, err := registry.New(registry.Config{TomTomAPIKey: "tt-key"})
	require.NoError(t, err)

	_, err = r.Provider("waze")
	assert.ErrorIs(t, err, traffic.ErrUnknownProvider)
}

func TestProvider_NotConfigured(t *testing.T) {
	r, err := registry.New(registry.Config{TomTomAPIKey: "tt-key"})
	require.NoError(t, err)

	_, err = r.Provider("here")
	assert.ErrorIs(t, err, traffic.ErrNotConfigured)
}
