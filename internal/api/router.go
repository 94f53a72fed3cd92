// Package api provides the HTTP API for DepotRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/api/handler"
	"github.com/depotroute/depotroute/internal/api/middleware"
	"github.com/depotroute/depotroute/internal/auth"
	"github.com/depotroute/depotroute/internal/planner"
	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

// ProviderRegistry is the provider surface the API needs. Satisfied by
// *registry.Registry.
type ProviderRegistry interface {
	Provider(id string) (traffic.Provider, error)
	DefaultProviderID() string
	Enabled() []string
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	JWTService  *auth.JWTService
	AuthClients map[string]string

	Providers      ProviderRegistry
	Health         *resilience.HealthRegistry
	PlannerService *planner.Service
	PlanRepository planner.PlanRepository

	// Pool is used for readiness checks; may be nil.
	Pool *pgxpool.Pool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "depotroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Pool, cfg.Health, cfg.Providers)
	authHandler := handler.NewAuthHandler(cfg.JWTService, cfg.AuthClients)
	planHandler := handler.NewPlanHandler(cfg.PlannerService, cfg.PlanRepository, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.Providers, cfg.Logger)
	providerHandler := handler.NewProviderHandler(cfg.Providers, cfg.Health)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.JWTService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)           // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/token", authHandler.IssueToken)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Plan endpoints (authenticated)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			// Optimization fans out one provider call per leg, so it gets
			// the strict limit.
			r.With(expensiveRateLimit).Post("/plans:optimize", planHandler.OptimizePlan)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByClient(middleware.StandardRateLimit))
				r.Get("/plans", planHandler.ListPlans)
				r.Get("/plans/{planId}", planHandler.GetPlan)
			})
		})

		// Location endpoints (authenticated) - client-based rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByClient(middleware.StandardRateLimit))
			r.Get("/locations:search", locationHandler.SearchLocations)
			r.Post("/locations:geocode", locationHandler.GeocodeLocations)
		})

		// Provider listing (authenticated) - standard rate limiting
		r.With(authMiddleware, standardRateLimit).Get("/providers", providerHandler.ListProviders)
	})

	return r
}
