// Package worker provides background job processing for DepotRoute.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the optimize job processor.
type Config struct {
	// Concurrency is the number of plans computed in parallel for batch
	// jobs. Default: 3.
	Concurrency int

	// JobTimeout bounds a single plan computation. Default: 5 minutes.
	JobTimeout time.Duration

	// RetryInitialInterval is the first retry delay for transient provider
	// failures. Default: 2 seconds.
	RetryInitialInterval time.Duration

	// RetryMaxElapsed caps the total time spent retrying one plan.
	// Default: 1 minute.
	RetryMaxElapsed time.Duration
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:          3,
		JobTimeout:           5 * time.Minute,
		RetryInitialInterval: 2 * time.Second,
		RetryMaxElapsed:      time.Minute,
	}
}

// ConfigFromEnv creates a Config from environment variables, falling back
// to defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if raw := os.Getenv("WORKER_CONCURRENCY"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.Concurrency = v
		}
	}
	if raw := os.Getenv("WORKER_JOB_TIMEOUT"); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.JobTimeout = v
		}
	}
	if raw := os.Getenv("WORKER_RETRY_MAX_ELAPSED"); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			cfg.RetryMaxElapsed = v
		}
	}

	return cfg
}
