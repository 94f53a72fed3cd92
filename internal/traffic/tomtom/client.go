// Package tomtom provides the TomTom Search and Routing API adapter.
//
// TomTom is a free-flow-baseline provider: noTrafficTravelTimeInSeconds is
// the time achievable at posted speed limits, so the density clamp is a
// no-op safety net here.
package tomtom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/respcache"
	"github.com/depotroute/depotroute/internal/telemetry"
	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "tomtom"

	// DefaultBaseURL is the TomTom API base URL.
	DefaultBaseURL = "https://api.tomtom.com"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the TomTom client.
type ClientConfig struct {
	// APIKey is the TomTom API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to the TomTom API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional). If nil, a
	// circuit-breaker client with the configured timeout is used.
	HTTPClient HTTPDoer

	// Timeout is the per-request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// MinRequestInterval is the minimum spacing between outbound requests
	// (optional, defaults to 250ms).
	MinRequestInterval time.Duration

	// Region is the ISO-3166 alpha-2 country code addresses must resolve to
	// (optional, defaults to "US").
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

// Client is a TomTom API adapter implementing traffic.Provider.
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

// NewClient creates a new TomTom adapter.
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

	endpoint := fmt.Sprintf("%s/search/2/geocode/%s.json", c.baseURL, url.PathEscape(input.Address))
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("limit", "1")

	var resp geocodeResponse
	if err := c.do(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_RESULTS",
			Message:  fmt.Sprintf("no geocoding results for %q", input.Address),
			Err:      traffic.ErrNoResults,
		}
	}

	result := resp.Results[0]
	if err := c.checkRegion(result.Address.CountryCode, input.Address); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input: input,
		Coordinate: traffic.Coordinate{
			Lat: result.Position.Lat,
			Lon: result.Position.Lon,
		},
		FormattedAddress: result.Address.FreeformAddress,
		CountryCode:      result.Address.CountryCode,
		Confidence:       result.MatchConfidence.Score,
		Provider:         ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceGeocode, key, geocoded)
	return &geocoded, nil
}

// ReverseGeocode resolves coordinates to an address.
func (c *Client) ReverseGeocode(ctx context.Context, coord traffic.Coordinate, label string) (*traffic.GeocodedAddress, error) {
	if !coord.Valid() {
		return nil, c.invalidCoordinates("INVALID_POSITION")
	}

	key := traffic.ReverseCacheKey{Provider: ProviderName, Lat: coord.Lat, Lon: coord.Lon}

	var cached traffic.GeocodedAddress
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceReverse, key, &cached); hit {
		cached.Input.Label = label
		return &cached, nil
	}

	endpoint := fmt.Sprintf("%s/search/2/reverseGeocode/%s.json", c.baseURL, formatPosition(coord))
	query := url.Values{}
	query.Set("key", c.apiKey)

	var resp reverseGeocodeResponse
	if err := c.do(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	if len(resp.Addresses) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_RESULTS",
			Message:  fmt.Sprintf("no address found at %s", formatPosition(coord)),
			Err:      traffic.ErrNoResults,
		}
	}

	addr := resp.Addresses[0].Address
	if err := c.checkRegion(addr.CountryCode, formatPosition(coord)); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input:            traffic.AddressInput{Address: addr.FreeformAddress, Label: label},
		Coordinate:       coord,
		FormattedAddress: addr.FreeformAddress,
		CountryCode:      addr.CountryCode,
		Confidence:       1.0,
		Provider:         ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceReverse, key, geocoded)
	geocoded.Input.Label = label
	return &geocoded, nil
}

// SearchLocations performs a fuzzy typeahead search restricted to the
// configured region. Ordering is TomTom's relevance order.
func (c *Client) SearchLocations(ctx context.Context, q string, opts traffic.SearchOptions) ([]traffic.LocationSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	endpoint := fmt.Sprintf("%s/search/2/search/%s.json", c.baseURL, url.PathEscape(q))
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("countrySet", c.region)
	query.Set("typeahead", "true")
	if opts.Center != nil {
		query.Set("lat", strconv.FormatFloat(opts.Center.Lat, 'f', 6, 64))
		query.Set("lon", strconv.FormatFloat(opts.Center.Lon, 'f', 6, 64))
	}

	var resp searchResponse
	if err := c.do(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	results := make([]traffic.LocationSearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		name := r.POI.Name
		if name == "" {
			name = r.Address.FreeformAddress
		}
		results = append(results, traffic.LocationSearchResult{
			Name:             name,
			FormattedAddress: r.Address.FreeformAddress,
			Coordinate:       traffic.Coordinate{Lat: r.Position.Lat, Lon: r.Position.Lon},
			CountryCode:      r.Address.CountryCode,
		})
	}
	return results, nil
}

// CalculateRoute computes one traffic-aware leg.
func (c *Client) CalculateRoute(ctx context.Context, req traffic.RouteRequest) (*traffic.RouteSegment, error) {
	if !req.Origin.Coordinate.Valid() || !req.Destination.Coordinate.Valid() {
		return nil, c.invalidCoordinates("INVALID_ROUTE_POINTS")
	}

	key := traffic.NewRouteCacheKey(ProviderName, req)

	var cached traffic.RouteSegment
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceRoute, key, &cached); hit {
		return &cached, nil
	}

	endpoint := fmt.Sprintf("%s/routing/1/calculateRoute/%s:%s/json",
		c.baseURL,
		formatPosition(req.Origin.Coordinate),
		formatPosition(req.Destination.Coordinate),
	)
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("traffic", "true")
	query.Set("computeTravelTimeFor", "all")
	query.Set("travelMode", "car")
	query.Set("departAt", req.DepartureTime.Format(time.RFC3339))

	var resp routeResponse
	if err := c.do(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}

	if len(resp.Routes) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      traffic.ErrNoRouteFound,
		}
	}

	summary := resp.Routes[0].Summary
	if summary.TravelTimeInSeconds <= 0 || summary.NoTrafficTravelTimeInSeconds <= 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "BAD_SUMMARY",
			Message:  "route summary is missing travel times",
			Err:      traffic.ErrBadResponse,
		}
	}

	departure := req.DepartureTime
	if t, err := time.Parse(time.RFC3339, summary.DepartureTime); err == nil {
		departure = t
	}
	arrival := departure.Add(time.Duration(summary.TravelTimeInSeconds) * time.Second)
	if t, err := time.Parse(time.RFC3339, summary.ArrivalTime); err == nil {
		arrival = t
	}

	segment := traffic.RouteSegment{
		Origin:                     req.Origin.Coordinate,
		Destination:                req.Destination.Coordinate,
		DistanceMeters:             summary.LengthInMeters,
		TravelTimeSeconds:          summary.TravelTimeInSeconds,
		NoTrafficTravelTimeSeconds: summary.NoTrafficTravelTimeInSeconds,
		TrafficDensity: traffic.Density(
			float64(summary.TravelTimeInSeconds),
			float64(summary.NoTrafficTravelTimeInSeconds),
		),
		DepartureTime: departure,
		ArrivalTime:   arrival,
		Provider:      ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceRoute, key, segment)
	return &segment, nil
}

// do executes a GET against the TomTom API: pacer first, then the network
// call, then error mapping and decoding.
func (c *Client) do(ctx context.Context, endpoint string, query url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("provider", ProviderName).
		Str("endpoint", httpReq.URL.Path).
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
		return c.handleErrorResponse(resp.StatusCode, body)
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

// handleErrorResponse maps TomTom error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	message := apiErr.DetailedError.Message
	if message == "" {
		message = apiErr.ErrorText
	}
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusBadRequest && apiErr.DetailedError.Code == "NO_ROUTE_FOUND":
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      traffic.ErrNoRouteFound,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      traffic.ErrProviderUnavailable,
		}
	case statusCode == http.StatusTooManyRequests:
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "provider rate limit exceeded",
			Err:      traffic.ErrProviderUnavailable,
		}
	case statusCode >= 500:
		return &traffic.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "provider is temporarily unavailable",
			Err:      traffic.ErrProviderUnavailable,
		}
	default:
		return &traffic.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
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

func (c *Client) invalidCoordinates(code string) error {
	return &traffic.Error{
		Provider: ProviderName,
		Code:     code,
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

func formatPosition(coord traffic.Coordinate) string {
	return strconv.FormatFloat(coord.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(coord.Lon, 'f', 6, 64)
}
