package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depotroute/depotroute/internal/api/models"
	"github.com/depotroute/depotroute/internal/api/response"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	pool      *pgxpool.Pool
	health    *resilience.HealthRegistry
	providers ProviderLister
}

// NewOpsHandler creates a new OpsHandler. pool may be nil when the service
// runs without Postgres.
func NewOpsHandler(version, buildTime string, pool *pgxpool.Pool, health *resilience.HealthRegistry, providers ProviderLister) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		pool:      pool,
		health:    health,
		providers: providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	code := http.StatusOK

	if h.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			status = models.HealthStatusFail
			code = http.StatusServiceUnavailable
		}
	}
	if len(h.providers.Enabled()) == 0 {
		status = models.HealthStatusFail
		code = http.StatusServiceUnavailable
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
	}

	if h.pool != nil {
		pgStatus := models.HealthStatusOK
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pool.Ping(ctx); err != nil {
			pgStatus = models.HealthStatusFail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "postgres",
			Status: pgStatus,
		})
	}

	defaultID := h.providers.DefaultProviderID()
	for _, ph := range h.health.AllHealth() {
		info := models.ProviderInfo{
			ID:           ph.Name,
			Default:      ph.Name == defaultID,
			Healthy:      ph.Healthy(),
			CircuitState: ph.CircuitState,
			Requests:     ph.Requests,
			Failures:     ph.Failures,
			LastError:    ph.LastError,
		}
		if ph.LastSuccessAt != nil {
			ts := models.Timestamp(*ph.LastSuccessAt)
			info.LastSuccessAt = &ts
		}
		if ph.LastFailureAt != nil {
			ts := models.Timestamp(*ph.LastFailureAt)
			info.LastFailureAt = &ts
		}
		if !info.Healthy {
			status.Status = models.HealthStatusDegraded
		}
		status.Providers = append(status.Providers, info)
	}

	response.JSON(w, r, http.StatusOK, status)
}
