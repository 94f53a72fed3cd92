package here

// Wire types for the HERE Geocoding & Search and Routing v8 APIs. Only the
// fields this adapter reads are declared.

// lookupResponse covers geocode, revgeocode and autosuggest, which share the
// items shape.
type lookupResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Address struct {
			Label       string `json:"label"`
			CountryCode string `json:"countryCode"` // alpha-3
		} `json:"address"`
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
		Scoring struct {
			QueryScore float64 `json:"queryScore"`
		} `json:"scoring"`
	} `json:"items"`
}

type routesResponse struct {
	Routes []struct {
		Sections []struct {
			Summary struct {
				Duration     int     `json:"duration"`
				BaseDuration int     `json:"baseDuration"`
				Length       float64 `json:"length"`
			} `json:"summary"`
			Departure struct {
				Time string `json:"time"`
			} `json:"departure"`
			Arrival struct {
				Time string `json:"time"`
			} `json:"arrival"`
		} `json:"sections"`
	} `json:"routes"`
}

type errorResponse struct {
	Title string `json:"title"`
	Cause string `json:"cause"`
	Code  string `json:"code"`
}
