// Package traffic defines the uniform contract for traffic-aware routing and
// geocoding providers, and the density math shared by all adapters.
package traffic

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for provider operations.
var (
	// ErrNoResults indicates the provider returned zero results for a query.
	ErrNoResults = errors.New("no results found")
	// ErrUnsupportedRegion indicates a resolved address is outside the allowed region.
	ErrUnsupportedRegion = errors.New("address is outside the supported region")
	// ErrNoRouteFound indicates no drivable route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrProviderUnavailable indicates the provider is down, timing out, or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrBadResponse indicates the provider returned a payload that failed shape validation.
	ErrBadResponse = errors.New("malformed provider response")
	// ErrInvalidCoordinates indicates coordinates outside the valid lat/lon ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnknownProvider indicates a provider id that is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNotConfigured indicates a registered provider with no credentials configured.
	ErrNotConfigured = errors.New("provider credentials not configured")
	// ErrNoProviders indicates no provider has credentials configured.
	ErrNoProviders = errors.New("no providers configured")
)

// Provider is the uniform contract every routing back-end adapter implements.
// All operations are blocking network calls (possibly short-circuited by the
// response cache) and honor context cancellation.
type Provider interface {
	// Name returns the provider identifier for logging, caching and metrics.
	Name() string

	// Geocode resolves a free-text address to coordinates.
	Geocode(ctx context.Context, input AddressInput) (*GeocodedAddress, error)

	// ReverseGeocode resolves coordinates back to an address. The optional
	// label is carried through onto the result.
	ReverseGeocode(ctx context.Context, coord Coordinate, label string) (*GeocodedAddress, error)

	// SearchLocations performs an autocomplete/typeahead search, optionally
	// biased around a center point. Result ordering is provider-defined.
	SearchLocations(ctx context.Context, query string, opts SearchOptions) ([]LocationSearchResult, error)

	// CalculateRoute computes a single traffic-aware leg between two geocoded
	// addresses at an explicit departure time.
	CalculateRoute(ctx context.Context, req RouteRequest) (*RouteSegment, error)
}

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is within the valid lat/lon ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// AddressInput is a caller-supplied free-text address with an optional
// display label. Never mutated.
type AddressInput struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// GeocodedAddress is an AddressInput resolved by a specific provider.
// Providers are not guaranteed to agree on coordinates for the same text.
type GeocodedAddress struct {
	Input            AddressInput `json:"input"`
	Coordinate       Coordinate   `json:"coordinate"`
	FormattedAddress string       `json:"formattedAddress"`
	CountryCode      string       `json:"countryCode"`
	Confidence       float64      `json:"confidence"` // [0,1]
	Provider         string       `json:"provider"`
}

// SearchOptions holds optional parameters for SearchLocations.
type SearchOptions struct {
	// Center biases results toward a point when set.
	Center *Coordinate
	// Limit caps the number of results (default 5).
	Limit int
}

// LocationSearchResult is one typeahead match.
type LocationSearchResult struct {
	Name             string     `json:"name"`
	FormattedAddress string     `json:"formattedAddress"`
	Coordinate       Coordinate `json:"coordinate"`
	CountryCode      string     `json:"countryCode"`
}

// TrafficModel selects the traffic-prediction mode for providers that expose
// one. Adapters without such a concept ignore it.
type TrafficModel string

const (
	// TrafficBestGuess is the provider's default prediction.
	TrafficBestGuess TrafficModel = "best_guess"
	// TrafficOptimistic assumes lighter-than-typical conditions.
	TrafficOptimistic TrafficModel = "optimistic"
	// TrafficPessimistic assumes heavier-than-typical conditions.
	TrafficPessimistic TrafficModel = "pessimistic"
)

// RouteRequest asks for one directed leg at a specific departure time.
type RouteRequest struct {
	Origin        GeocodedAddress
	Destination   GeocodedAddress
	DepartureTime time.Time
	TrafficModel  TrafficModel
}

// RouteSegment is one directed leg between two geocoded addresses at a
// specific departure time. Never mutated after creation; recomputation
// produces a new segment.
type RouteSegment struct {
	Origin                     Coordinate `json:"origin"`
	Destination                Coordinate `json:"destination"`
	DistanceMeters             float64    `json:"distanceMeters"`
	TravelTimeSeconds          int        `json:"travelTimeSeconds"`
	NoTrafficTravelTimeSeconds int        `json:"noTrafficTravelTimeSeconds"`
	TrafficDensity             float64    `json:"trafficDensity"` // >= 1.0
	DepartureTime              time.Time  `json:"departureTime"`
	ArrivalTime                time.Time  `json:"arrivalTime"`
	Provider                   string     `json:"provider"`
}

// Error provides detailed error information from a provider adapter.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code or HTTP status from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying sentinel error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
