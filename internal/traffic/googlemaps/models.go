package googlemaps

// Wire types for the Google Maps Platform web services. Only the fields this
// adapter reads are declared.

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []geocodeResult `json:"results"`
}

type geocodeResult struct {
	FormattedAddress  string `json:"formatted_address"`
	AddressComponents []struct {
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
	Geometry struct {
		Location     latLng `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
}

// countryCode extracts the ISO country short name from the address components.
func (r geocodeResult) countryCode() string {
	for _, component := range r.AddressComponents {
		for _, t := range component.Types {
			if t == "country" {
				return component.ShortName
			}
		}
	}
	return ""
}

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location latLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []directionsLeg `json:"legs"`
	} `json:"routes"`
}

type directionsLeg struct {
	Distance struct {
		Value int `json:"value"`
	} `json:"distance"`
	Duration struct {
		Value int `json:"value"`
	} `json:"duration"`
	DurationInTraffic struct {
		Value int `json:"value"`
	} `json:"duration_in_traffic"`
}
