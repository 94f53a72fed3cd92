package traffic

import "time"

// Response cache namespaces shared by all adapters.
const (
	CacheNamespaceGeocode = "geocode"
	CacheNamespaceReverse = "revgeocode"
	CacheNamespaceRoute   = "route"
)

// GeocodeCacheKey derives the response-cache key data for a geocode lookup.
// Results are cached per provider because providers are not guaranteed to
// agree on coordinates for the same text.
type GeocodeCacheKey struct {
	Provider string `json:"provider"`
	Address  string `json:"address"`
}

// ReverseCacheKey derives the response-cache key data for a reverse geocode.
type ReverseCacheKey struct {
	Provider string  `json:"provider"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// RouteCacheKey derives the response-cache key data for one leg calculation.
// The departure timestamp and traffic model are part of the identity: a leg
// recomputed at a different time is a different cache entry.
type RouteCacheKey struct {
	Provider     string  `json:"provider"`
	OriginLat    float64 `json:"originLat"`
	OriginLon    float64 `json:"originLon"`
	DestLat      float64 `json:"destLat"`
	DestLon      float64 `json:"destLon"`
	DepartureUTC int64   `json:"departureUtc"`
	TrafficModel string  `json:"trafficModel,omitempty"`
}

// NewRouteCacheKey builds the route cache key for a request.
func NewRouteCacheKey(provider string, req RouteRequest) RouteCacheKey {
	return RouteCacheKey{
		Provider:     provider,
		OriginLat:    req.Origin.Coordinate.Lat,
		OriginLon:    req.Origin.Coordinate.Lon,
		DestLat:      req.Destination.Coordinate.Lat,
		DestLon:      req.Destination.Coordinate.Lon,
		DepartureUTC: req.DepartureTime.In(time.UTC).Unix(),
		TrafficModel: string(req.TrafficModel),
	}
}
