package tomtom

// Wire types for the TomTom Search and Routing APIs. Only the fields this
// adapter reads are declared.

type position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type address struct {
	FreeformAddress string `json:"freeformAddress"`
	CountryCode     string `json:"countryCode"`
}

type geocodeResponse struct {
	Results []struct {
		Position        position `json:"position"`
		Address         address  `json:"address"`
		MatchConfidence struct {
			Score float64 `json:"score"`
		} `json:"matchConfidence"`
	} `json:"results"`
}

type reverseGeocodeResponse struct {
	Addresses []struct {
		Address address `json:"address"`
	} `json:"addresses"`
}

type searchResponse struct {
	Results []struct {
		Position position `json:"position"`
		Address  address  `json:"address"`
		POI      struct {
			Name string `json:"name"`
		} `json:"poi"`
	} `json:"results"`
}

type routeResponse struct {
	Routes []struct {
		Summary routeSummary `json:"summary"`
	} `json:"routes"`
}

type routeSummary struct {
	LengthInMeters               float64 `json:"lengthInMeters"`
	TravelTimeInSeconds          int     `json:"travelTimeInSeconds"`
	NoTrafficTravelTimeInSeconds int     `json:"noTrafficTravelTimeInSeconds"`
	DepartureTime                string  `json:"departureTime"`
	ArrivalTime                  string  `json:"arrivalTime"`
}

type errorResponse struct {
	ErrorText     string `json:"error"`
	DetailedError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"detailedError"`
}
