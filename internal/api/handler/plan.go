// Package handler provides HTTP handlers for the DepotRoute API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/api/models"
	"github.com/depotroute/depotroute/internal/api/response"
	"github.com/depotroute/depotroute/internal/planner"
	"github.com/depotroute/depotroute/internal/traffic"
)

// defaultPlanListLimit caps list responses when no limit is given.
const defaultPlanListLimit = 20

// maxPlanListLimit is the hard ceiling for list responses.
const maxPlanListLimit = 100

// PlanHandler handles delivery plan endpoints.
type PlanHandler struct {
	service *planner.Service
	repo    planner.PlanRepository
	logger  zerolog.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(service *planner.Service, repo planner.PlanRepository, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{service: service, repo: repo, logger: logger}
}

// OptimizePlan handles POST /v1/plans:optimize - compute a delivery plan.
func (h *PlanHandler) OptimizePlan(w http.ResponseWriter, r *http.Request) {
	var input models.PlanOptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if input.Depot.Address == "" {
		response.BadRequest(w, r, "depot address is required", []models.FieldError{
			{Field: "depot.address", Message: "required"},
		})
		return
	}
	if len(input.Targets) == 0 {
		response.BadRequest(w, r, "at least one target is required", []models.FieldError{
			{Field: "targets", Message: "required"},
		})
		return
	}

	req := planner.OptimizeRequest{
		Depot:           traffic.AddressInput{Address: input.Depot.Address, Label: input.Depot.Label},
		FirstDeparture:  input.FirstDeparture.Time(),
		ServiceDuration: time.Duration(input.ServiceDurationSeconds) * time.Second,
		Provider:        input.Provider,
		Mode:            planner.Mode(input.Mode),
		TrafficModel:    traffic.TrafficModel(input.TrafficModel),
	}
	for _, t := range input.Targets {
		req.Targets = append(req.Targets, traffic.AddressInput{Address: t.Address, Label: t.Label})
	}

	plan, err := h.service.Optimize(r.Context(), req)
	if err != nil {
		h.writeOptimizeError(w, r, err)
		return
	}

	if err := h.repo.Create(r.Context(), plan); err != nil {
		h.logger.Error().Err(err).Str("plan_id", plan.ID).Msg("storing delivery plan")
		response.InternalError(w, r, "failed to store delivery plan")
		return
	}

	response.Created(w, r, "/v1/plans/"+plan.ID, plan)
}

// GetPlan handles GET /v1/plans/{planId} - retrieve a stored plan.
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planId")

	plan, err := h.repo.Get(r.Context(), planID)
	if err != nil {
		if errors.Is(err, planner.ErrPlanNotFound) {
			response.NotFound(w, r, "plan not found")
			return
		}
		h.logger.Error().Err(err).Str("plan_id", planID).Msg("loading delivery plan")
		response.InternalError(w, r, "failed to load delivery plan")
		return
	}

	response.JSON(w, r, http.StatusOK, plan)
}

// ListPlans handles GET /v1/plans - list recent plans, newest first.
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit := defaultPlanListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, r, "limit must be a positive integer", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer"},
			})
			return
		}
		limit = parsed
	}
	if limit > maxPlanListLimit {
		limit = maxPlanListLimit
	}

	plans, err := h.repo.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("listing delivery plans")
		response.InternalError(w, r, "failed to list delivery plans")
		return
	}

	resp := models.PlanListResponse{Plans: make([]models.PlanSummary, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, models.PlanSummary{
			ID:                    p.ID,
			CreatedAt:             models.Timestamp(p.CreatedAt),
			Provider:              p.Provider,
			Mode:                  string(p.Mode),
			DepotAddress:          p.Depot.FormattedAddress,
			Deliveries:            len(p.Deliveries),
			AverageTrafficDensity: p.AverageTrafficDensity,
		})
	}

	response.JSON(w, r, http.StatusOK, resp)
}

// writeOptimizeError maps optimizer errors to Problem responses.
func (h *PlanHandler) writeOptimizeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrNoTargets),
		errors.Is(err, planner.ErrTooManyTargets),
		errors.Is(err, planner.ErrInvalidServiceDuration),
		errors.Is(err, planner.ErrInvalidDepartureTime),
		errors.Is(err, planner.ErrInvalidMode),
		errors.Is(err, traffic.ErrInvalidCoordinates):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, traffic.ErrUnknownProvider),
		errors.Is(err, traffic.ErrNotConfigured):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "provider", Message: "unknown or unconfigured provider"},
		})
	case errors.Is(err, traffic.ErrNoResults),
		errors.Is(err, traffic.ErrNoRouteFound),
		errors.Is(err, traffic.ErrUnsupportedRegion):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, traffic.ErrProviderUnavailable):
		response.BadGateway(w, r, err.Error())
	default:
		h.logger.Error().Err(err).Msg("optimizing delivery plan")
		response.InternalError(w, r, "failed to compute delivery plan")
	}
}
