package models

// LocationResult is one location search or geocode match.
type LocationResult struct {
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formattedAddress"`
	Point            Point   `json:"point"`
	CountryCode      string  `json:"countryCode,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// LocationSearchResponse is the response for the typeahead search endpoint.
type LocationSearchResponse struct {
	Query    string           `json:"query"`
	Provider string           `json:"provider"`
	Results  []LocationResult `json:"results"`
}

// GeocodeRequest is the request body for batch geocoding.
type GeocodeRequest struct {
	Addresses []AddressInput `json:"addresses" validate:"required,min=1,max=50"`
	Provider  string         `json:"provider,omitempty"`
}

// GeocodedResult pairs an input address with its resolved location.
type GeocodedResult struct {
	Input    AddressInput   `json:"input"`
	Result   LocationResult `json:"result"`
	Provider string         `json:"provider"`
}

// GeocodeResponse is the response for batch geocoding.
type GeocodeResponse struct {
	Provider string           `json:"provider"`
	Results  []GeocodedResult `json:"results"`
}
