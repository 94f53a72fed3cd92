package handler

import (
	"net/http"
	"sort"

	"github.com/depotroute/depotroute/internal/api/models"
	"github.com/depotroute/depotroute/internal/api/response"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

// ProviderLister exposes the set of configured providers.
type ProviderLister interface {
	Enabled() []string
	DefaultProviderID() string
}

// ProviderHandler handles the provider listing endpoint.
type ProviderHandler struct {
	providers ProviderLister
	health    *resilience.HealthRegistry
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(providers ProviderLister, health *resilience.HealthRegistry) *ProviderHandler {
	return &ProviderHandler{providers: providers, health: health}
}

// ListProviders handles GET /v1/providers - list configured routing providers.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	defaultID := h.providers.DefaultProviderID()
	enabled := h.providers.Enabled()
	sort.Strings(enabled)

	resp := models.ProvidersResponse{
		Default:   defaultID,
		Providers: make([]models.ProviderInfo, 0, len(enabled)),
	}
	for _, id := range enabled {
		info := models.ProviderInfo{
			ID:      id,
			Default: id == defaultID,
			// A provider with no recorded traffic yet is assumed healthy.
			Healthy: true,
		}
		if ph := h.health.Health(id); ph != nil {
			info.Healthy = ph.Healthy()
			info.CircuitState = ph.CircuitState
			info.Requests = ph.Requests
			info.Failures = ph.Failures
			info.LastError = ph.LastError
			if ph.LastSuccessAt != nil {
				ts := models.Timestamp(*ph.LastSuccessAt)
				info.LastSuccessAt = &ts
			}
			if ph.LastFailureAt != nil {
				ts := models.Timestamp(*ph.LastFailureAt)
				info.LastFailureAt = &ts
			}
		}
		resp.Providers = append(resp.Providers, info)
	}

	response.JSON(w, r, http.StatusOK, resp)
}
