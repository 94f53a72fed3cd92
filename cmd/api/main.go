// Package main provides the entrypoint for the DepotRoute API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/api"
	"github.com/depotroute/depotroute/internal/api/middleware"
	"github.com/depotroute/depotroute/internal/auth"
	"github.com/depotroute/depotroute/internal/database"
	"github.com/depotroute/depotroute/internal/planner"
	"github.com/depotroute/depotroute/internal/respcache"
	"github.com/depotroute/depotroute/internal/telemetry"
	"github.com/depotroute/depotroute/internal/traffic/registry"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "depotroute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting DepotRoute API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     getEnvOrDefault("JWT_ISSUER", "https://api.depotroute.io"),
		Audience:   getEnvOrDefault("JWT_AUDIENCE", "depotroute-api"),
	})

	authClients := parseAuthClients(os.Getenv("API_CLIENTS"))
	if len(authClients) == 0 {
		log.Warn().Msg("no API clients configured - token endpoint will reject all requests")
	}

	// Response cache shared by all provider adapters
	cacheTTL := respcache.DefaultTTL
	if raw := os.Getenv("RESPONSE_CACHE_TTL"); raw != "" {
		if parsed, parseErr := time.ParseDuration(raw); parseErr == nil && parsed > 0 {
			cacheTTL = parsed
		}
	}

	var cache respcache.Cache
	if os.Getenv("RESPONSE_CACHE_BACKEND") == "memory" {
		cache = respcache.NewMemory(respcache.MemoryConfig{TTL: cacheTTL})
		log.Info().Msg("using in-memory response cache")
	} else {
		cache = respcache.NewPostgres(pool, cacheTTL)
		log.Info().Dur("ttl", cacheTTL).Msg("using postgres response cache")
	}

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Provider registry
	health := resilience.NewHealthRegistry()
	registryConfig := registry.ConfigFromEnv()
	registryConfig.Cache = cache
	registryConfig.Health = health
	registryConfig.Metrics = providerMetrics
	registryConfig.Logger = log

	providers, err := registry.New(registryConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider registry")
	}
	log.Info().
		Strs("providers", providers.Enabled()).
		Str("default", providers.DefaultProviderID()).
		Msg("provider registry initialized")

	// Planner service and plan storage
	plannerService := planner.NewService(planner.ServiceConfig{
		Providers: providers,
		Logger:    log,
	})
	planRepo := planner.NewPostgresRepository(pool)
	log.Info().Msg("planner service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		JWTService:     jwtService,
		AuthClients:    authClients,
		Providers:      providers,
		Health:         health,
		PlannerService: plannerService,
		PlanRepository: planRepo,
		Pool:           pool,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// Optimize requests make one provider call per leg and can run long.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// parseAuthClients parses API_CLIENTS ("id:secret,id2:secret2") into a map.
func parseAuthClients(raw string) map[string]string {
	clients := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || id == "" || secret == "" {
			continue
		}
		clients[id] = secret
	}
	return clients
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
