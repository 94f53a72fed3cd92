package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/depotroute/depotroute/internal/planner"
	"github.com/depotroute/depotroute/internal/traffic"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	optimizeJob      *OptimizeJob
	providers        planner.ProviderSource
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	OptimizeJob      *OptimizeJob
	Providers        planner.ProviderSource
	Logger           zerolog.Logger
}

// JobMessage represents a queued worker job.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Plan is the request for a plan_optimize job.
	Plan *PlanRequest `json:"plan,omitempty"`

	// Plans are the requests for a plan_batch job.
	Plans []PlanRequest `json:"plans,omitempty"`
}

// healthCheckAddress is geocoded to verify provider connectivity.
const healthCheckAddress = "350 5th Ave, New York, NY"

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		optimizeJob:      cfg.OptimizeJob,
		providers:        cfg.Providers,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	// Parse message.
	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	// Handle based on job type.
	var err error
	switch job.JobType {
	case "plan_optimize":
		err = h.handlePlanOptimize(ctx, job)
	case "plan_batch":
		err = h.handlePlanBatch(ctx, job)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handlePlanOptimize(ctx context.Context, job JobMessage) error {
	if job.Plan == nil {
		return fmt.Errorf("plan_optimize message missing plan")
	}

	plan, err := h.optimizeJob.Run(ctx, *job.Plan)
	if err != nil {
		return fmt.Errorf("computing plan: %w", err)
	}

	h.logger.Info().Str("plan_id", plan.ID).Msg("queued plan stored")
	return nil
}

func (h *PubSubHandler) handlePlanBatch(ctx context.Context, job JobMessage) error {
	if len(job.Plans) == 0 {
		return fmt.Errorf("plan_batch message missing plans")
	}

	result := h.optimizeJob.RunBatch(ctx, job.Plans)

	// Consider the batch successful if at least half the plans computed.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many batch failures: %d/%d", result.Failed, result.Total)
	}

	return nil
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	provider, err := h.providers.Provider("")
	if err != nil {
		return fmt.Errorf("resolving default provider: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := provider.Geocode(checkCtx, traffic.AddressInput{Address: healthCheckAddress}); err != nil {
		return fmt.Errorf("health check geocode: %w", err)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
