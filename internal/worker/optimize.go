package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/planner"
	"github.com/depotroute/depotroute/internal/traffic"
	"github.com/depotroute/depotroute/internal/traffic/resilience"
)

// PlanRequest is the wire form of an asynchronous optimize job.
type PlanRequest struct {
	Depot   AddressInput   `json:"depot"`
	Targets []AddressInput `json:"targets"`

	FirstDeparture         time.Time `json:"firstDeparture"`
	ServiceDurationSeconds int       `json:"serviceDurationSeconds,omitempty"`
	Provider               string    `json:"provider,omitempty"`
	Mode                   string    `json:"mode,omitempty"`
	TrafficModel           string    `json:"trafficModel,omitempty"`
}

// AddressInput is a free-form address in a job message.
type AddressInput struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// toOptimizeRequest converts the wire form to the planner request.
func (r PlanRequest) toOptimizeRequest() planner.OptimizeRequest {
	req := planner.OptimizeRequest{
		Depot:           traffic.AddressInput{Address: r.Depot.Address, Label: r.Depot.Label},
		FirstDeparture:  r.FirstDeparture,
		ServiceDuration: time.Duration(r.ServiceDurationSeconds) * time.Second,
		Provider:        r.Provider,
		Mode:            planner.Mode(r.Mode),
		TrafficModel:    traffic.TrafficModel(r.TrafficModel),
	}
	for _, t := range r.Targets {
		req.Targets = append(req.Targets, traffic.AddressInput{Address: t.Address, Label: t.Label})
	}
	return req
}

// OptimizeJob computes delivery plans from queued requests and persists them.
type OptimizeJob struct {
	config  Config
	service *planner.Service
	repo    planner.PlanRepository
	logger  zerolog.Logger
	metrics *JobMetrics
}

// JobMetrics tracks optimize job statistics.
type JobMetrics struct {
	PlansComputed int64
	PlansFailed   int64
	Retries       int64
}

// OptimizeJobConfig holds configuration for creating an OptimizeJob.
type OptimizeJobConfig struct {
	Config  Config
	Service *planner.Service
	Repo    planner.PlanRepository
	Logger  zerolog.Logger
}

// NewOptimizeJob creates a new optimize job processor.
func NewOptimizeJob(cfg OptimizeJobConfig) *OptimizeJob {
	config := cfg.Config
	if config.Concurrency <= 0 {
		config = DefaultConfig()
	}

	return &OptimizeJob{
		config:  config,
		service: cfg.Service,
		repo:    cfg.Repo,
		logger:  cfg.Logger,
		metrics: &JobMetrics{},
	}
}

// Metrics returns a snapshot of the job counters.
func (j *OptimizeJob) Metrics() JobMetrics {
	return JobMetrics{
		PlansComputed: atomic.LoadInt64(&j.metrics.PlansComputed),
		PlansFailed:   atomic.LoadInt64(&j.metrics.PlansFailed),
		Retries:       atomic.LoadInt64(&j.metrics.Retries),
	}
}

// Run computes one plan and persists it. Transient provider failures are
// retried with exponential backoff; validation and data errors are not.
func (j *OptimizeJob) Run(ctx context.Context, req PlanRequest) (*planner.DeliveryPlan, error) {
	jobCtx, cancel := context.WithTimeout(ctx, j.config.JobTimeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = j.config.RetryInitialInterval
	bo.MaxElapsedTime = j.config.RetryMaxElapsed

	var plan *planner.DeliveryPlan
	operation := func() error {
		var err error
		plan, err = j.service.Optimize(jobCtx, req.toOptimizeRequest())
		if err == nil {
			return nil
		}
		if retryable(err) {
			atomic.AddInt64(&j.metrics.Retries, 1)
			j.logger.Warn().Err(err).Msg("transient optimize failure, retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, jobCtx)); err != nil {
		atomic.AddInt64(&j.metrics.PlansFailed, 1)
		return nil, err
	}

	if err := j.repo.Create(jobCtx, plan); err != nil {
		atomic.AddInt64(&j.metrics.PlansFailed, 1)
		return nil, err
	}

	atomic.AddInt64(&j.metrics.PlansComputed, 1)
	j.logger.Info().
		Str("plan_id", plan.ID).
		Str("provider", plan.Provider).
		Int("deliveries", len(plan.Deliveries)).
		Msg("plan computed")

	return plan, nil
}

// retryable reports whether the optimizer error is worth retrying. Provider
// outages and open circuits clear up; bad input does not.
func retryable(err error) bool {
	return errors.Is(err, traffic.ErrProviderUnavailable) ||
		errors.Is(err, resilience.ErrCircuitOpen)
}

// BatchResult contains the outcome of a batch job.
type BatchResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Errors     []BatchError
	PlanIDs    []string
}

// BatchError records one failed request in a batch.
type BatchError struct {
	Index int
	Error string
}

type batchItem struct {
	index int
	req   PlanRequest
}

type batchOutcome struct {
	index  int
	planID string
	err    error
}

// RunBatch computes a batch of plans with a bounded worker pool.
func (j *OptimizeJob) RunBatch(ctx context.Context, reqs []PlanRequest) *BatchResult {
	startTime := time.Now()
	result := &BatchResult{
		StartTime: startTime,
		Total:     len(reqs),
	}

	j.logger.Info().
		Int("total", len(reqs)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting plan batch job")

	items := make(chan batchItem, len(reqs))
	outcomes := make(chan batchOutcome, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				select {
				case <-ctx.Done():
					outcomes <- batchOutcome{index: item.index, err: ctx.Err()}
				default:
					plan, err := j.Run(ctx, item.req)
					out := batchOutcome{index: item.index, err: err}
					if plan != nil {
						out.planID = plan.ID
					}
					outcomes <- out
				}
			}
		}()
	}

	for i, req := range reqs {
		items <- batchItem{index: i, req: req}
	}
	close(items)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		if out.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{Index: out.index, Error: out.err.Error()})
			continue
		}
		result.Successful++
		result.PlanIDs = append(result.PlanIDs, out.planID)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("plan batch job completed")

	return result
}
