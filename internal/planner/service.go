package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/daytype"
	"github.com/depotroute/depotroute/internal/traffic"
)

// ProviderSource resolves provider identifiers to live adapters. Implemented
// by registry.Registry; tests inject stubs.
type ProviderSource interface {
	Provider(id string) (traffic.Provider, error)
	DefaultProviderID() string
}

// ServiceConfig holds configuration for the optimizer service.
type ServiceConfig struct {
	// Providers resolves provider ids to adapters (required).
	Providers ProviderSource

	// Classify maps a date to its day type (default daytype.Classify).
	Classify func(time.Time) daytype.DayInfo

	// Logger for service operations.
	Logger zerolog.Logger

	// NewID generates plan ids (default uuid).
	NewID func() string

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Service is the delivery optimizer.
type Service struct {
	providers ProviderSource
	classify  func(time.Time) daytype.DayInfo
	logger    zerolog.Logger
	newID     func() string
	now       func() time.Time
}

// NewService creates a new optimizer service.
func NewService(cfg ServiceConfig) *Service {
	classify := cfg.Classify
	if classify == nil {
		classify = daytype.Classify
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		providers: cfg.Providers,
		classify:  classify,
		logger:    cfg.Logger,
		newID:     newID,
		now:       now,
	}
}

// Optimize geocodes the depot and all targets, computes the visitation order
// and per-delivery timing under the requested mode, and returns the
// assembled plan. Any geocoding or leg-calculation failure aborts the whole
// call; no partial plan is ever returned.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (*DeliveryPlan, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	provider, err := s.providers.Provider(req.Provider)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("provider", provider.Name()).
		Str("mode", string(req.Mode)).
		Int("targets", len(req.Targets)).
		Time("first_departure", req.FirstDeparture).
		Msg("optimizing delivery plan")

	// Geocode the depot first, then all targets, strictly sequentially.
	depot, err := provider.Geocode(ctx, req.Depot)
	if err != nil {
		return nil, fmt.Errorf("geocode depot %q: %w", req.Depot.Address, err)
	}

	resolved, err := traffic.GeocodeMany(ctx, provider, req.Targets)
	if err != nil {
		return nil, err
	}

	targets := make([]DeliveryTarget, 0, len(req.Targets))
	for _, input := range req.Targets {
		targets = append(targets, DeliveryTarget{
			Address:         *resolved[input.Address],
			ServiceDuration: req.ServiceDuration,
		})
	}

	var deliveries []OptimizedDelivery
	switch req.Mode {
	case ModeOrdered:
		deliveries, err = s.planOrdered(ctx, provider, *depot, targets, req)
	case ModeDensityGreedy:
		deliveries, err = s.planDensityGreedy(ctx, provider, *depot, targets, req)
	}
	if err != nil {
		return nil, err
	}

	plan := s.assemble(provider.Name(), *depot, deliveries, req)

	s.logger.Info().
		Str("plan_id", plan.ID).
		Int("deliveries", len(plan.Deliveries)).
		Float64("avg_density", plan.AverageTrafficDensity).
		Msg("delivery plan computed")

	return plan, nil
}

// planOrdered processes targets in the caller-supplied order: exactly two
// leg calculations per target.
func (s *Service) planOrdered(ctx context.Context, provider traffic.Provider, depot traffic.GeocodedAddress, targets []DeliveryTarget, req OptimizeRequest) ([]OptimizedDelivery, error) {
	deliveries := make([]OptimizedDelivery, 0, len(targets))
	clock := req.FirstDeparture

	for _, target := range targets {
		trip, err := s.roundTrip(ctx, provider, depot, target, clock, req.TrafficModel)
		if err != nil {
			return nil, err
		}

		deliveries = append(deliveries, newDelivery(len(deliveries)+1, trip))
		clock = trip.ret.ArrivalTime
	}
	return deliveries, nil
}

// planDensityGreedy re-optimizes each round: every remaining target's round
// trip is recomputed fresh at the current simulated clock, because traffic
// predictions shift through the day, and the candidate with the smallest
// round-trip travel time is selected. N(N+1)/2 round trips total, a
// deliberate accuracy/cost trade-off.
func (s *Service) planDensityGreedy(ctx context.Context, provider traffic.Provider, depot traffic.GeocodedAddress, targets []DeliveryTarget, req OptimizeRequest) ([]OptimizedDelivery, error) {
	deliveries := make([]OptimizedDelivery, 0, len(targets))
	remaining := make([]DeliveryTarget, len(targets))
	copy(remaining, targets)
	clock := req.FirstDeparture

	for len(remaining) > 0 {
		var best *roundTripRoute
		bestIdx := -1

		for i, target := range remaining {
			trip, err := s.roundTrip(ctx, provider, depot, target, clock, req.TrafficModel)
			if err != nil {
				return nil, err
			}
			// Selection key is time savings, not density: first computed
			// wins ties so the input order breaks them deterministically.
			if best == nil || trip.travelTimeSeconds() < best.travelTimeSeconds() {
				best = trip
				bestIdx = i
			}
		}

		deliveries = append(deliveries, newDelivery(len(deliveries)+1, best))
		clock = best.ret.ArrivalTime
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return deliveries, nil
}

// roundTrip computes the outbound and return legs for one target departing
// the depot at departAt, with the service gap between them.
func (s *Service) roundTrip(ctx context.Context, provider traffic.Provider, depot traffic.GeocodedAddress, target DeliveryTarget, departAt time.Time, model traffic.TrafficModel) (*roundTripRoute, error) {
	outbound, err := provider.CalculateRoute(ctx, traffic.RouteRequest{
		Origin:        depot,
		Destination:   target.Address,
		DepartureTime: departAt,
		TrafficModel:  model,
	})
	if err != nil {
		return nil, fmt.Errorf("route %q -> %q: %w", depot.Input.Address, target.Address.Input.Address, err)
	}

	ret, err := provider.CalculateRoute(ctx, traffic.RouteRequest{
		Origin:        target.Address,
		Destination:   depot,
		DepartureTime: outbound.ArrivalTime.Add(target.ServiceDuration),
		TrafficModel:  model,
	})
	if err != nil {
		return nil, fmt.Errorf("route %q -> %q: %w", target.Address.Input.Address, depot.Input.Address, err)
	}

	return &roundTripRoute{target: target, outbound: outbound, ret: ret}, nil
}

// assemble aggregates the plan metrics and tags the day type.
func (s *Service) assemble(providerName string, depot traffic.GeocodedAddress, deliveries []OptimizedDelivery, req OptimizeRequest) *DeliveryPlan {
	var totalDistance float64
	var totalTravel, totalBaseline int
	var cumulativeDensity float64

	for _, d := range deliveries {
		totalDistance += d.Outbound.DistanceMeters + d.Return.DistanceMeters
		totalTravel += d.Outbound.TravelTimeSeconds + d.Return.TravelTimeSeconds
		totalBaseline += d.Outbound.NoTrafficTravelTimeSeconds + d.Return.NoTrafficTravelTimeSeconds
		cumulativeDensity += d.RoundTripDensity
	}

	// The time-weighted average is clamped again: aggregate arithmetic can
	// dip below 1.0 even when every leg was clamped.
	averageDensity := traffic.Density(float64(totalTravel), float64(totalBaseline))

	return &DeliveryPlan{
		ID:                              s.newID(),
		CreatedAt:                       s.now(),
		Provider:                        providerName,
		Mode:                            req.Mode,
		Depot:                           depot,
		FirstDeparture:                  req.FirstDeparture,
		DayType:                         s.classify(req.FirstDeparture),
		Deliveries:                      deliveries,
		TotalDistanceMeters:             totalDistance,
		TotalTravelTimeSeconds:          totalTravel,
		TotalNoTrafficTravelTimeSeconds: totalBaseline,
		CumulativeTrafficDensity:        traffic.Round(cumulativeDensity),
		AverageTrafficDensity:           averageDensity,
	}
}

func newDelivery(order int, trip *roundTripRoute) OptimizedDelivery {
	return OptimizedDelivery{
		Order:              order,
		Target:             trip.target,
		Outbound:           *trip.outbound,
		Return:             *trip.ret,
		RoundTripDensity:   traffic.RoundTripDensity(trip.outbound.TrafficDensity, trip.ret.TrafficDensity),
		EstimatedDeparture: trip.outbound.DepartureTime,
		EstimatedArrival:   trip.outbound.ArrivalTime,
		EstimatedReturn:    trip.ret.ArrivalTime,
	}
}

// validate checks the optimize input and applies defaults in place.
func validate(req *OptimizeRequest) error {
	if len(req.Targets) == 0 {
		return ErrNoTargets
	}
	if len(req.Targets) > MaxTargets {
		return fmt.Errorf("%w: %d targets, maximum is %d", ErrTooManyTargets, len(req.Targets), MaxTargets)
	}
	if req.FirstDeparture.IsZero() {
		return ErrInvalidDepartureTime
	}
	if req.ServiceDuration == 0 {
		req.ServiceDuration = DefaultServiceDuration
	}
	if req.ServiceDuration < 0 {
		return ErrInvalidServiceDuration
	}
	if req.Mode == "" {
		req.Mode = ModeOrdered
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	return nil
}
