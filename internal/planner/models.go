// Package planner computes optimized visitation orders for hub-and-spoke
// delivery round trips using traffic-aware travel-time predictions.
package planner

import (
	"errors"
	"time"

	"github.com/depotroute/depotroute/internal/daytype"
	"github.com/depotroute/depotroute/internal/traffic"
)

// Sentinel errors for optimize input validation.
var (
	// ErrNoTargets indicates an empty target list.
	ErrNoTargets = errors.New("at least one delivery target is required")
	// ErrTooManyTargets indicates the target list exceeds MaxTargets.
	ErrTooManyTargets = errors.New("too many delivery targets")
	// ErrInvalidServiceDuration indicates a non-positive service duration.
	ErrInvalidServiceDuration = errors.New("service duration must be positive")
	// ErrInvalidDepartureTime indicates a missing first departure time.
	ErrInvalidDepartureTime = errors.New("first departure time is required")
	// ErrInvalidMode indicates an unrecognized optimization mode.
	ErrInvalidMode = errors.New("invalid optimization mode")
	// ErrPlanNotFound indicates an unknown plan id.
	ErrPlanNotFound = errors.New("plan not found")
)

// MaxTargets bounds the number of targets per plan. The greedy mode issues
// N(N+1)/2 round trips, so the bound keeps the worst case affordable.
const MaxTargets = 50

// DefaultServiceDuration is the per-stop unloading time when none is given.
const DefaultServiceDuration = 15 * time.Minute

// Mode selects the visitation-order algorithm.
type Mode string

const (
	// ModeOrdered processes targets in the caller-supplied order.
	ModeOrdered Mode = "ordered"
	// ModeDensityGreedy re-optimizes each round, selecting the remaining
	// target with the smallest round-trip travel time at the current clock.
	ModeDensityGreedy Mode = "density-greedy"
)

// Valid reports whether the mode is recognized.
func (m Mode) Valid() bool {
	return m == ModeOrdered || m == ModeDensityGreedy
}

// OptimizeRequest is the input to Optimize.
type OptimizeRequest struct {
	// Depot is the hub every round trip starts and ends at.
	Depot traffic.AddressInput

	// Targets are the delivery destinations, each visited via an
	// independent round trip. 1..MaxTargets entries.
	Targets []traffic.AddressInput

	// FirstDeparture is when the first outbound leg leaves the depot.
	FirstDeparture time.Time

	// ServiceDuration is the per-stop unloading time
	// (default DefaultServiceDuration).
	ServiceDuration time.Duration

	// Provider selects the routing back-end; empty means the registry
	// default.
	Provider string

	// Mode selects the algorithm (default ModeOrdered).
	Mode Mode

	// TrafficModel is passed through to providers that support prediction
	// modes.
	TrafficModel traffic.TrafficModel
}

// DeliveryTarget is a geocoded destination plus its service duration.
// Immutable once created.
type DeliveryTarget struct {
	Address         traffic.GeocodedAddress `json:"address"`
	ServiceDuration time.Duration           `json:"serviceDuration"`
}

// roundTripRoute is the optimizer-internal candidate: one target with a
// fully computed round trip at a specific clock. Discarded once the final
// order is fixed.
type roundTripRoute struct {
	target   DeliveryTarget
	outbound *traffic.RouteSegment
	ret      *traffic.RouteSegment
}

// travelTimeSeconds is the greedy selection key: the round-trip sum of
// travel time with traffic. Selection is by time, not by density.
func (r *roundTripRoute) travelTimeSeconds() int {
	return r.outbound.TravelTimeSeconds + r.ret.TravelTimeSeconds
}

// OptimizedDelivery is one entry of the final plan, in visitation order.
type OptimizedDelivery struct {
	// Order is the 1-based position in the visitation sequence.
	Order int `json:"order"`

	Target   DeliveryTarget       `json:"target"`
	Outbound traffic.RouteSegment `json:"outbound"`
	Return   traffic.RouteSegment `json:"return"`

	// RoundTripDensity is the mean of the two leg densities, rounded.
	RoundTripDensity float64 `json:"roundTripDensity"`

	EstimatedDeparture time.Time `json:"estimatedDeparture"`
	EstimatedArrival   time.Time `json:"estimatedArrival"`
	EstimatedReturn    time.Time `json:"estimatedReturn"`
}

// DeliveryPlan is the immutable result of one Optimize call.
type DeliveryPlan struct {
	ID             string                  `json:"id"`
	CreatedAt      time.Time               `json:"createdAt"`
	Provider       string                  `json:"provider"`
	Mode           Mode                    `json:"mode"`
	Depot          traffic.GeocodedAddress `json:"depot"`
	FirstDeparture time.Time               `json:"firstDeparture"`
	DayType        daytype.DayInfo         `json:"dayType"`
	Deliveries     []OptimizedDelivery     `json:"deliveries"`

	TotalDistanceMeters             float64 `json:"totalDistanceMeters"`
	TotalTravelTimeSeconds          int     `json:"totalTravelTimeSeconds"`
	TotalNoTrafficTravelTimeSeconds int     `json:"totalNoTrafficTravelTimeSeconds"`

	// CumulativeTrafficDensity is the plain sum of per-delivery round-trip
	// densities. A diagnostic total, not used for ranking.
	CumulativeTrafficDensity float64 `json:"cumulativeTrafficDensity"`

	// AverageTrafficDensity is time-weighted: total traffic time over total
	// baseline time, clamped to a minimum of 1.0.
	AverageTrafficDensity float64 `json:"averageTrafficDensity"`
}
