// Package googlemaps provides the Google Maps Platform adapter (Geocoding,
// Places and Directions APIs).
//
// Google is a historical-average-baseline provider: the Directions duration
// field is a typical time, not free-flow, so under lighter-than-typical
// conditions the raw traffic ratio can fall below 1.0. The clamp applied in
// traffic.Density is load-bearing for this adapter.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/respcache"
	"github.com/depotroute/depotroute/internal/telemetry"
	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps Platform base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Google Maps Platform API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional). If nil, a
	// circuit-breaker client with the configured timeout is used.
	HTTPClient HTTPDoer

	// Timeout is the per-request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// MinRequestInterval is the minimum spacing between outbound requests
	// (optional, defaults to 250ms).
	MinRequestInterval time.Duration

	// Region is the country code addresses must resolve to (optional,
	// defaults to "US").
	Region string

	// Cache is the response cache (optional, defaults to no caching).
	Cache respcache.Cache

	// HealthRegistry receives circuit health updates (optional).
	HealthRegistry *resilience.HealthRegistry

	// Metrics receives call and cache counters (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Maps adapter implementing traffic.Provider.
type Client struct {
	apiKey     string
	baseURL    string
	region     string
	httpClient HTTPDoer
	pacer      *traffic.Pacer
	cache      respcache.Cache
	metrics    *telemetry.ProviderMetrics
	logger     zerolog.Logger
}

// NewClient creates a new Google Maps adapter.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	region := cfg.Region
	if region == "" {
		region = "US"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:     ProviderName,
			Timeout:  timeout,
			Registry: cfg.HealthRegistry,
		})
	}

	cache := cfg.Cache
	if cache == nil {
		cache = respcache.Nop{}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		region:     region,
		httpClient: httpClient,
		pacer:      traffic.NewPacer(cfg.MinRequestInterval),
		cache:      cache,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode resolves a free-text address to coordinates.
func (c *Client) Geocode(ctx context.Context, input traffic.AddressInput) (*traffic.GeocodedAddress, error) {
	key := traffic.GeocodeCacheKey{Provider: ProviderName, Address: input.Address}

	var cached traffic.GeocodedAddress
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceGeocode, key, &cached); hit {
		return &cached, nil
	}

	query := url.Values{}
	query.Set("address", input.Address)
	query.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.do(ctx, "/maps/api/geocode/json", query, &resp); err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage, fmt.Sprintf("no geocoding results for %q", input.Address)); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, c.noResults(fmt.Sprintf("no geocoding results for %q", input.Address))
	}

	result := resp.Results[0]
	country := result.countryCode()
	if err := c.checkRegion(country, input.Address); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input: input,
		Coordinate: traffic.Coordinate{
			Lat: result.Geometry.Location.Lat,
			Lon: result.Geometry.Location.Lng,
		},
		FormattedAddress: result.FormattedAddress,
		CountryCode:      country,
		Confidence:       confidenceFromLocationType(result.Geometry.LocationType),
		Provider:         ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceGeocode, key, geocoded)
	return &geocoded, nil
}

// ReverseGeocode resolves coordinates to an address.
func (c *Client) ReverseGeocode(ctx context.Context, coord traffic.Coordinate, label string) (*traffic.GeocodedAddress, error) {
	if !coord.Valid() {
		return nil, c.invalidCoordinates()
	}

	key := traffic.ReverseCacheKey{Provider: ProviderName, Lat: coord.Lat, Lon: coord.Lon}

	var cached traffic.GeocodedAddress
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceReverse, key, &cached); hit {
		cached.Input.Label = label
		return &cached, nil
	}

	latlng := formatLatLng(coord)
	query := url.Values{}
	query.Set("latlng", latlng)
	query.Set("key", c.apiKey)

	var resp geocodeResponse
	if err := c.do(ctx, "/maps/api/geocode/json", query, &resp); err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage, "no address found at "+latlng); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, c.noResults("no address found at " + latlng)
	}

	result := resp.Results[0]
	country := result.countryCode()
	if err := c.checkRegion(country, latlng); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input:            traffic.AddressInput{Address: result.FormattedAddress, Label: label},
		Coordinate:       coord,
		FormattedAddress: result.FormattedAddress,
		CountryCode:      country,
		Confidence:       confidenceFromLocationType(result.Geometry.LocationType),
		Provider:         ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceReverse, key, geocoded)
	geocoded.Input.Label = label
	return &geocoded, nil
}

// SearchLocations performs a Places text search biased to the configured
// region. Ordering is Google's relevance order.
func (c *Client) SearchLocations(ctx context.Context, q string, opts traffic.SearchOptions) ([]traffic.LocationSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	query := url.Values{}
	query.Set("query", q)
	query.Set("region", c.region)
	query.Set("key", c.apiKey)
	if opts.Center != nil {
		query.Set("location", formatLatLng(*opts.Center))
		query.Set("radius", "50000")
	}

	var resp placesResponse
	if err := c.do(ctx, "/maps/api/place/textsearch/json", query, &resp); err != nil {
		return nil, err
	}
	if resp.Status == statusZeroResults {
		return []traffic.LocationSearchResult{}, nil
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage, ""); err != nil {
		return nil, err
	}

	results := make([]traffic.LocationSearchResult, 0, limit)
	for _, r := range resp.Results {
		if len(results) == limit {
			break
		}
		// region is only a bias on text search, so results from other
		// countries can come back. Text search omits address components;
		// the trailing country name on the formatted address is the only
		// country signal.
		if !strings.HasSuffix(r.FormattedAddress, countrySuffix(c.region)) {
			continue
		}
		results = append(results, traffic.LocationSearchResult{
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Coordinate: traffic.Coordinate{
				Lat: r.Geometry.Location.Lat,
				Lon: r.Geometry.Location.Lng,
			},
			CountryCode: c.region,
		})
	}
	return results, nil
}

// countrySuffix returns the country name Google appends to formatted
// addresses in the given region.
func countrySuffix(region string) string {
	if name, ok := placesCountryNames[region]; ok {
		return name
	}
	return region
}

var placesCountryNames = map[string]string{
	"US": "USA",
}

// CalculateRoute computes one traffic-aware leg using the Directions API.
// The traffic model (best_guess, optimistic, pessimistic) is passed through;
// best_guess is used when none is set.
func (c *Client) CalculateRoute(ctx context.Context, req traffic.RouteRequest) (*traffic.RouteSegment, error) {
	if !req.Origin.Coordinate.Valid() || !req.Destination.Coordinate.Valid() {
		return nil, c.invalidCoordinates()
	}

	key := traffic.NewRouteCacheKey(ProviderName, req)

	var cached traffic.RouteSegment
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceRoute, key, &cached); hit {
		return &cached, nil
	}

	model := req.TrafficModel
	if model == "" {
		model = traffic.TrafficBestGuess
	}

	query := url.Values{}
	query.Set("origin", formatLatLng(req.Origin.Coordinate))
	query.Set("destination", formatLatLng(req.Destination.Coordinate))
	query.Set("mode", "driving")
	query.Set("departure_time", strconv.FormatInt(req.DepartureTime.Unix(), 10))
	query.Set("traffic_model", string(model))
	query.Set("key", c.apiKey)

	var resp directionsResponse
	if err := c.do(ctx, "/maps/api/directions/json", query, &resp); err != nil {
		return nil, err
	}
	if resp.Status == statusZeroResults || resp.Status == "NOT_FOUND" {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     resp.Status,
			Message:  "no route found between the given points",
			Err:      traffic.ErrNoRouteFound,
		}
	}
	if err := c.checkStatus(resp.Status, resp.ErrorMessage, ""); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "EMPTY_ROUTE",
			Message:  "directions response contained no legs",
			Err:      traffic.ErrBadResponse,
		}
	}

	leg := resp.Routes[0].Legs[0]
	if leg.Duration.Value <= 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "BAD_LEG",
			Message:  "directions leg is missing a duration",
			Err:      traffic.ErrBadResponse,
		}
	}

	// duration is the historical typical time; duration_in_traffic is the
	// prediction for the requested departure. When the prediction is absent
	// the leg is treated as typical conditions.
	withTraffic := leg.DurationInTraffic.Value
	if withTraffic <= 0 {
		withTraffic = leg.Duration.Value
	}

	segment := traffic.RouteSegment{
		Origin:                     req.Origin.Coordinate,
		Destination:                req.Destination.Coordinate,
		DistanceMeters:             float64(leg.Distance.Value),
		TravelTimeSeconds:          withTraffic,
		NoTrafficTravelTimeSeconds: leg.Duration.Value,
		TrafficDensity:             traffic.Density(float64(withTraffic), float64(leg.Duration.Value)),
		DepartureTime:              req.DepartureTime,
		ArrivalTime:                req.DepartureTime.Add(time.Duration(withTraffic) * time.Second),
		Provider:                   ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceRoute, key, segment)
	return &segment, nil
}

// do executes a GET against the Google Maps API.
func (c *Client) do(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Str("provider", ProviderName).
		Str("endpoint", path).
		Msg("requesting from provider")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.RecordRequest(ProviderName, time.Since(start), err)
	if err != nil {
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach provider",
			Err:      traffic.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &traffic.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("provider returned status %d", resp.StatusCode),
			Err:      traffic.ErrProviderUnavailable,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "failed to decode provider response",
			Err:      traffic.ErrBadResponse,
		}
	}
	return nil
}

// checkStatus maps the Google status field, which travels inside an HTTP 200
// body, to domain errors. zeroDetail is the message for ZERO_RESULTS.
func (c *Client) checkStatus(status, errorMessage, zeroDetail string) error {
	switch status {
	case statusOK:
		return nil
	case statusZeroResults:
		return c.noResults(zeroDetail)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return &traffic.Error{
			Provider: ProviderName,
			Code:     status,
			Message:  "provider quota exceeded",
			Err:      traffic.ErrProviderUnavailable,
		}
	case "REQUEST_DENIED":
		return &traffic.Error{
			Provider: ProviderName,
			Code:     status,
			Message:  "API access denied - check API key configuration",
			Err:      traffic.ErrProviderUnavailable,
		}
	default:
		message := errorMessage
		if message == "" {
			message = "provider reported status " + status
		}
		return &traffic.Error{
			Provider: ProviderName,
			Code:     status,
			Message:  message,
			Err:      traffic.ErrProviderUnavailable,
		}
	}
}

// checkRegion rejects addresses resolving outside the configured country.
func (c *Client) checkRegion(countryCode, subject string) error {
	if countryCode == c.region {
		return nil
	}
	return &traffic.Error{
		Provider: ProviderName,
		Code:     "UNSUPPORTED_REGION",
		Message:  fmt.Sprintf("%q resolved to country %s, outside supported region %s", subject, countryCode, c.region),
		Err:      traffic.ErrUnsupportedRegion,
	}
}

func (c *Client) noResults(message string) error {
	if message == "" {
		message = "no results found"
	}
	return &traffic.Error{
		Provider: ProviderName,
		Code:     statusZeroResults,
		Message:  message,
		Err:      traffic.ErrNoResults,
	}
}

func (c *Client) invalidCoordinates() error {
	return &traffic.Error{
		Provider: ProviderName,
		Code:     "INVALID_COORDINATES",
		Message:  "coordinates out of range",
		Err:      traffic.ErrInvalidCoordinates,
	}
}

// cacheGet consults the response cache; cache failures are silent misses.
func (c *Client) cacheGet(ctx context.Context, namespace string, key, out any) bool {
	hit, err := c.cache.Get(ctx, namespace, key, out)
	if err != nil {
		c.logger.Debug().Err(err).Str("namespace", namespace).Msg("response cache read failed")
		c.metrics.RecordCacheMiss(ProviderName, namespace)
		return false
	}
	if hit {
		c.metrics.RecordCacheHit(ProviderName, namespace)
	} else {
		c.metrics.RecordCacheMiss(ProviderName, namespace)
	}
	return hit
}

// cacheSet populates the response cache; failures are logged, never surfaced.
func (c *Client) cacheSet(ctx context.Context, namespace string, key, value any) {
	if err := c.cache.Set(ctx, namespace, key, value); err != nil {
		c.logger.Debug().Err(err).Str("namespace", namespace).Msg("response cache write failed")
	}
}

// confidenceFromLocationType maps geocoding precision to a [0,1] confidence.
func confidenceFromLocationType(locationType string) float64 {
	switch locationType {
	case "ROOFTOP":
		return 1.0
	case "RANGE_INTERPOLATED":
		return 0.9
	case "GEOMETRIC_CENTER":
		return 0.7
	case "APPROXIMATE":
		return 0.5
	default:
		return 0.5
	}
}

func formatLatLng(coord traffic.Coordinate) string {
	return strconv.FormatFloat(coord.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(coord.Lon, 'f', 6, 64)
}
