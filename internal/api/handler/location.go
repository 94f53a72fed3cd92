package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/api/models"
	"github.com/depotroute/depotroute/internal/api/response"
	"github.com/depotroute/depotroute/internal/traffic"
)

// ProviderSource resolves provider ids to traffic providers.
type ProviderSource interface {
	Provider(id string) (traffic.Provider, error)
	DefaultProviderID() string
}

// LocationHandler handles location search and geocoding endpoints.
type LocationHandler struct {
	providers ProviderSource
	logger    zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(providers ProviderSource, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{providers: providers, logger: logger}
}

// SearchLocations handles GET /v1/locations:search - typeahead search.
func (h *LocationHandler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, r, "query parameter q is required", []models.FieldError{
			{Field: "q", Message: "required"},
		})
		return
	}

	opts := traffic.SearchOptions{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		opts.Limit = limit
	}

	provider, err := h.providers.Provider(r.URL.Query().Get("provider"))
	if err != nil {
		h.writeProviderError(w, r, err)
		return
	}

	results, err := provider.SearchLocations(r.Context(), query, opts)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	resp := models.LocationSearchResponse{
		Query:    query,
		Provider: provider.Name(),
		Results:  make([]models.LocationResult, 0, len(results)),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, models.LocationResult{
			Name:             res.Name,
			FormattedAddress: res.FormattedAddress,
			Point:            models.Point{Lat: res.Coordinate.Lat, Lon: res.Coordinate.Lon},
			CountryCode:      res.CountryCode,
		})
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

// GeocodeLocations handles POST /v1/locations:geocode - batch geocoding.
func (h *LocationHandler) GeocodeLocations(w http.ResponseWriter, r *http.Request) {
	var input models.GeocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(input.Addresses) == 0 {
		response.BadRequest(w, r, "at least one address is required", []models.FieldError{
			{Field: "addresses", Message: "required"},
		})
		return
	}

	provider, err := h.providers.Provider(input.Provider)
	if err != nil {
		h.writeProviderError(w, r, err)
		return
	}

	inputs := make([]traffic.AddressInput, 0, len(input.Addresses))
	for _, a := range input.Addresses {
		inputs = append(inputs, traffic.AddressInput{Address: a.Address, Label: a.Label})
	}

	geocoded, err := traffic.GeocodeMany(r.Context(), provider, inputs)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}

	resp := models.GeocodeResponse{
		Provider: provider.Name(),
		Results:  make([]models.GeocodedResult, 0, len(inputs)),
	}
	for _, in := range inputs {
		addr, ok := geocoded[in.Address]
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, models.GeocodedResult{
			Input:    models.AddressInput{Address: in.Address, Label: in.Label},
			Provider: addr.Provider,
			Result: models.LocationResult{
				FormattedAddress: addr.FormattedAddress,
				Point:            models.Point{Lat: addr.Coordinate.Lat, Lon: addr.Coordinate.Lon},
				CountryCode:      addr.CountryCode,
				Confidence:       addr.Confidence,
			},
		})
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func (h *LocationHandler) writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, traffic.ErrUnknownProvider),
		errors.Is(err, traffic.ErrNotConfigured),
		errors.Is(err, traffic.ErrNoProviders):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "provider", Message: "unknown or unconfigured provider"},
		})
	default:
		h.logger.Error().Err(err).Msg("resolving routing provider")
		response.InternalError(w, r, "failed to resolve routing provider")
	}
}

func (h *LocationHandler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, traffic.ErrNoResults),
		errors.Is(err, traffic.ErrUnsupportedRegion),
		errors.Is(err, traffic.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, traffic.ErrProviderUnavailable):
		response.BadGateway(w, r, err.Error())
	default:
		h.logger.Error().Err(err).Msg("location lookup failed")
		response.InternalError(w, r, "location lookup failed")
	}
}
