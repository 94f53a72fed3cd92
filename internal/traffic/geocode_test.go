package traffic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depotroute/depotroute/internal/traffic"
)

type countingProvider struct {
	calls map[string]int
	fail  map[string]error
}

func newCountingProvider() *countingProvider {
	return &countingProvider{calls: map[string]int{}, fail: map[string]error{}}
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Geocode(_ context.Context, input traffic.AddressInput) (*traffic.GeocodedAddress, error) {
	p.calls[input.Address]++
	if err := p.fail[input.Address]; err != nil {
		return nil, err
	}
	return &traffic.GeocodedAddress{
		Input:      input,
		Coordinate: traffic.Coordinate{Lat: 40.7, Lon: -74.0},
		Provider:   "counting",
	}, nil
}

func (p *countingProvider) ReverseGeocode(context.Context, traffic.Coordinate, string) (*traffic.GeocodedAddress, error) {
	return nil, errors.New("not implemented")
}

func (p *countingProvider) SearchLocations(context.Context, string, traffic.SearchOptions) ([]traffic.LocationSearchResult, error) {
	return nil, errors.New("not implemented")
}

func (p *countingProvider) CalculateRoute(context.Context, traffic.RouteRequest) (*traffic.RouteSegment, error) {
	return nil, errors.New("not implemented")
}

func TestGeocodeMany_ResolvesDuplicatesOnce(t *testing.T) {
	provider := newCountingProvider()

	out, err := traffic.GeocodeMany(context.Background(), provider, []traffic.AddressInput{
		{Address: "100 Depot Way", Label: "depot"},
		{Address: "1 Delivery Lane"},
		{Address: "100 Depot Way", Label: "depot again"},
	})
	require.NoError(t, err)

	assert.Len(t, out, 2)
	assert.Equal(t, 1, provider.calls["100 Depot Way"])
	assert.Equal(t, 1, provider.calls["1 Delivery Lane"])
	// First occurrence wins for duplicate address text.
	assert.Equal(t, "depot", out["100 Depot Way"].Input.Label)
}

func TestGeocodeMany_FirstFailureAborts(t *testing.T) {
	provider := newCountingProvider()
	provider.fail["2 Delivery Lane"] = traffic.ErrNoResults

	out, err := traffic.GeocodeMany(context.Background(), provider, []traffic.AddressInput{
		{Address: "1 Delivery Lane"},
		{Address: "2 Delivery Lane"},
		{Address: "3 Delivery Lane"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, traffic.ErrNoResults)
	assert.Contains(t, err.Error(), `"2 Delivery Lane"`)
	assert.Nil(t, out)
	// The failure short-circuits before the third address.
	assert.Equal(t, 0, provider.calls["3 Delivery Lane"])
}

func TestGeocodeMany_Empty(t *testing.T) {
	provider := newCountingProvider()

	out, err := traffic.GeocodeMany(context.Background(), provider, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
