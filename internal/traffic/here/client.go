// Package here provides the HERE Geocoding & Search and Routing v8 adapter.
//
// HERE is a free-flow-baseline provider: baseDuration in the routing summary
// is the traffic-free time, so the density clamp is a no-op safety net here.
package here

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
	ProviderName = "here"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second
)

// Production service hosts. HERE splits its services across subdomains; a
// configured BaseURL (tests) overrides all of them.
const (
	defaultGeocodeURL     = "https://geocode.search.hereapi.com"
	defaultRevGeocodeURL  = "https://revgeocode.search.hereapi.com"
	defaultAutosuggestURL = "https://autosuggest.search.hereapi.com"
	defaultRouterURL      = "https://router.hereapi.com"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the HERE client.
type ClientConfig struct {
	// APIKey is the HERE API key (required).
	APIKey string

	// BaseURL overrides all HERE service hosts (optional; used by tests).
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

// Client is a HERE API adapter implementing traffic.Provider.
type Client struct {
	apiKey         string
	region         string // alpha-2, e.g. "US"
	regionISO3     string // HERE responses carry alpha-3 codes
	geocodeURL     string
	revGeocodeURL  string
	autosuggestURL string
	routerURL      string
	httpClient     HTTPDoer
	pacer          *traffic.Pacer
	cache          respcache.Cache
	metrics        *telemetry.ProviderMetrics
	logger         zerolog.Logger
}

// NewClient creates a new HERE adapter.
func NewClient(cfg ClientConfig) *Client {
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

	c := &Client{
		apiKey:         cfg.APIKey,
		region:         region,
		regionISO3:     iso3Code(region),
		geocodeURL:     defaultGeocodeURL,
		revGeocodeURL:  defaultRevGeocodeURL,
		autosuggestURL: defaultAutosuggestURL,
		routerURL:      defaultRouterURL,
		httpClient:     httpClient,
		pacer:          traffic.NewPacer(cfg.MinRequestInterval),
		cache:          cache,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
	if cfg.BaseURL != "" {
		c.geocodeURL = cfg.BaseURL
		c.revGeocodeURL = cfg.BaseURL
		c.autosuggestURL = cfg.BaseURL
		c.routerURL = cfg.BaseURL
	}
	return c
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
	query.Set("q", input.Address)
	query.Set("apiKey", c.apiKey)
	query.Set("limit", "1")

	var resp lookupResponse
	if err := c.do(ctx, c.geocodeURL+"/v1/geocode", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_RESULTS",
			Message:  fmt.Sprintf("no geocoding results for %q", input.Address),
			Err:      traffic.ErrNoResults,
		}
	}

	item := resp.Items[0]
	if err := c.checkRegion(item.Address.CountryCode, input.Address); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input: input,
		Coordinate: traffic.Coordinate{
			Lat: item.Position.Lat,
			Lon: item.Position.Lng,
		},
		FormattedAddress: item.Address.Label,
		CountryCode:      c.region,
		Confidence:       item.Scoring.QueryScore,
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

	at := formatAt(coord)
	query := url.Values{}
	query.Set("at", at)
	query.Set("apiKey", c.apiKey)
	query.Set("limit", "1")

	var resp lookupResponse
	if err := c.do(ctx, c.revGeocodeURL+"/v1/revgeocode", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_RESULTS",
			Message:  "no address found at " + at,
			Err:      traffic.ErrNoResults,
		}
	}

	item := resp.Items[0]
	if err := c.checkRegion(item.Address.CountryCode, at); err != nil {
		return nil, err
	}

	geocoded := traffic.GeocodedAddress{
		Input:            traffic.AddressInput{Address: item.Address.Label, Label: label},
		Coordinate:       coord,
		FormattedAddress: item.Address.Label,
		CountryCode:      c.region,
		Confidence:       1.0,
		Provider:         ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceReverse, key, geocoded)
	geocoded.Input.Label = label
	return &geocoded, nil
}

// SearchLocations performs an autosuggest query restricted to the configured
// region. Ordering is HERE's relevance order.
func (c *Client) SearchLocations(ctx context.Context, q string, opts traffic.SearchOptions) ([]traffic.LocationSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	query := url.Values{}
	query.Set("q", q)
	query.Set("apiKey", c.apiKey)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("in", "countryCode:"+c.regionISO3)
	if opts.Center != nil {
		query.Set("at", formatAt(*opts.Center))
	}

	var resp lookupResponse
	if err := c.do(ctx, c.autosuggestURL+"/v1/autosuggest", query, &resp); err != nil {
		return nil, err
	}

	results := make([]traffic.LocationSearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		// Autosuggest mixes in query refinements that carry no position.
		if item.Position.Lat == 0 && item.Position.Lng == 0 {
			continue
		}
		results = append(results, traffic.LocationSearchResult{
			Name:             item.Title,
			FormattedAddress: item.Address.Label,
			Coordinate:       traffic.Coordinate{Lat: item.Position.Lat, Lon: item.Position.Lng},
			CountryCode:      c.region,
		})
	}
	return results, nil
}

// CalculateRoute computes one traffic-aware leg using Routing v8.
// HERE has no per-request traffic-prediction mode; the model is ignored.
func (c *Client) CalculateRoute(ctx context.Context, req traffic.RouteRequest) (*traffic.RouteSegment, error) {
	if !req.Origin.Coordinate.Valid() || !req.Destination.Coordinate.Valid() {
		return nil, c.invalidCoordinates()
	}

	key := traffic.NewRouteCacheKey(ProviderName, req)

	var cached traffic.RouteSegment
	if hit := c.cacheGet(ctx, traffic.CacheNamespaceRoute, key, &cached); hit {
		return &cached, nil
	}

	query := url.Values{}
	query.Set("transportMode", "car")
	query.Set("origin", formatAt(req.Origin.Coordinate))
	query.Set("destination", formatAt(req.Destination.Coordinate))
	query.Set("departureTime", req.DepartureTime.Format(time.RFC3339))
	query.Set("return", "summary,typicalDuration")
	query.Set("apiKey", c.apiKey)

	var resp routesResponse
	if err := c.do(ctx, c.routerURL+"/v8/routes", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Sections) == 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      traffic.ErrNoRouteFound,
		}
	}

	var lengthMeters float64
	var duration, baseDuration int
	for _, section := range resp.Routes[0].Sections {
		lengthMeters += section.Summary.Length
		duration += section.Summary.Duration
		baseDuration += section.Summary.BaseDuration
	}
	if duration <= 0 || baseDuration <= 0 {
		return nil, &traffic.Error{
			Provider: ProviderName,
			Code:     "BAD_SUMMARY",
			Message:  "route summary is missing durations",
			Err:      traffic.ErrBadResponse,
		}
	}

	departure := req.DepartureTime
	if t, err := time.Parse(time.RFC3339, resp.Routes[0].Sections[0].Departure.Time); err == nil {
		departure = t
	}
	arrival := departure.Add(time.Duration(duration) * time.Second)
	last := resp.Routes[0].Sections[len(resp.Routes[0].Sections)-1]
	if t, err := time.Parse(time.RFC3339, last.Arrival.Time); err == nil {
		arrival = t
	}

	segment := traffic.RouteSegment{
		Origin:                     req.Origin.Coordinate,
		Destination:                req.Destination.Coordinate,
		DistanceMeters:             lengthMeters,
		TravelTimeSeconds:          duration,
		NoTrafficTravelTimeSeconds: baseDuration,
		TrafficDensity:             traffic.Density(float64(duration), float64(baseDuration)),
		DepartureTime:              departure,
		ArrivalTime:                arrival,
		Provider:                   ProviderName,
	}

	c.cacheSet(ctx, traffic.CacheNamespaceRoute, key, segment)
	return &segment, nil
}

// do executes a GET against a HERE service endpoint.
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

// handleErrorResponse maps HERE error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	message := apiErr.Title
	if apiErr.Cause != "" {
		message = apiErr.Title + ": " + apiErr.Cause
	}
	if message == "" {
		message = fmt.Sprintf("provider returned status %d", statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
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
	case statusCode == http.StatusBadRequest && apiErr.Code == "E605001":
		// Routing v8 "no route found" cause code.
		return &traffic.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  message,
			Err:      traffic.ErrNoRouteFound,
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
// HERE responses carry ISO-3166 alpha-3 codes.
func (c *Client) checkRegion(countryCode, subject string) error {
	if countryCode == c.regionISO3 {
		return nil
	}
	return &traffic.Error{
		Provider: ProviderName,
		Code:     "UNSUPPORTED_REGION",
		Message:  fmt.Sprintf("%q resolved to country %s, outside supported region %s", subject, countryCode, c.region),
		Err:      traffic.ErrUnsupportedRegion,
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

// iso3Code maps the configured alpha-2 region to the alpha-3 code HERE uses.
func iso3Code(alpha2 string) string {
	switch alpha2 {
	case "US":
		return "USA"
	case "CA":
		return "CAN"
	case "MX":
		return "MEX"
	default:
		return alpha2
	}
}

func formatAt(coord traffic.Coordinate) string {
	return strconv.FormatFloat(coord.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(coord.Lon, 'f', 6, 64)
}
