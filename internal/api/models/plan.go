package models

// AddressInput is a free-form address to geocode.
type AddressInput struct {
	Address string `json:"address" validate:"required"`
	Label   string `json:"label,omitempty"`
}

// PlanOptimizeRequest is the request body for computing a delivery plan.
type PlanOptimizeRequest struct {
	Depot   AddressInput   `json:"depot" validate:"required"`
	Targets []AddressInput `json:"targets" validate:"required,min=1,max=50"`

	// FirstDeparture is when the first van leaves the depot (RFC3339).
	FirstDeparture Timestamp `json:"firstDeparture" validate:"required"`

	// ServiceDurationSeconds is the per-stop unloading time. Zero means
	// the server default.
	ServiceDurationSeconds int `json:"serviceDurationSeconds,omitempty" validate:"omitempty,gte=0"`

	// Provider selects the routing back-end; empty means the default.
	Provider string `json:"provider,omitempty"`

	// Mode is "ordered" or "density-greedy" (default "ordered").
	Mode string `json:"mode,omitempty"`

	// TrafficModel is passed through to providers with prediction modes
	// ("best_guess", "optimistic", "pessimistic").
	TrafficModel string `json:"trafficModel,omitempty"`
}

// PlanSummary is the list-view projection of a delivery plan.
type PlanSummary struct {
	ID                    string    `json:"id"`
	CreatedAt             Timestamp `json:"createdAt"`
	Provider              string    `json:"provider"`
	Mode                  string    `json:"mode"`
	DepotAddress          string    `json:"depotAddress"`
	Deliveries            int       `json:"deliveries"`
	AverageTrafficDensity float64   `json:"averageTrafficDensity"`
}

// PlanListResponse is the response for listing delivery plans.
type PlanListResponse struct {
	Plans []PlanSummary `json:"plans"`
}
