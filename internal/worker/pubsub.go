package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// JobMessage represents a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
	// Target restricts an obstacle_refresh run to one named target.
	Target string `json:"target,omitempty"`
}

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
		refreshJob:       cfg.RefreshJob,
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

	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Data, &jobMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch jobMsg.JobType {
	case "obstacle_refresh":
		err = h.handleObstacleRefresh(ctx, jobMsg)
	case "health_check":
		err = h.handleHealthCheck(ctx)
	default:
		logger.Warn().Str("job_type", jobMsg.JobType).Msg("unknown job type")
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
		Str("job_type", jobMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleObstacleRefresh(ctx context.Context, msg JobMessage) error {
	h.logger.Info().
		Str("target", msg.Target).
		Msg("starting obstacle refresh")

	job := h.refreshJob
	if msg.Target != "" {
		narrowed, ok := h.jobForTarget(msg.Target)
		if !ok {
			// A misspelled target should not requeue forever.
			h.logger.Warn().Str("target", msg.Target).Msg("unknown refresh target, skipping")
			return nil
		}
		job = narrowed
	}

	result := job.Run(ctx)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("total_areas", result.TotalAreas).
		Msg("obstacle refresh completed")

	// Consider it successful if more than half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalAreas)
	}

	return nil
}

// jobForTarget builds a refresh job restricted to a single named target.
func (h *PubSubHandler) jobForTarget(name string) (*RefreshJob, bool) {
	for _, t := range h.refreshJob.config.Targets {
		if t.Name == name {
			cfg := h.refreshJob.config
			cfg.Targets = []RefreshTarget{t}
			return NewRefreshJob(RefreshJobConfig{
				Config:          cfg,
				Logger:          h.logger,
				ObstacleService: h.refreshJob.obstacles,
				RoutingService:  h.refreshJob.routes,
			}), true
		}
	}
	return nil, false
}

func (h *PubSubHandler) handleHealthCheck(ctx context.Context) error {
	h.logger.Debug().Msg("running health check")

	// Refresh a single central area to verify store connectivity.
	testCenter := orb.Point{4.9041, 52.3676} // Amsterdam

	singleAreaConfig := RefreshConfig{
		Targets: []RefreshTarget{
			{
				Name:         "health-check",
				Priority:     1,
				RadiusMeters: 500,
				Centers:      []orb.Point{testCenter},
			},
		},
		Concurrency:     1,
		Timeout:         10 * time.Second,
		SweepRouteCache: false,
	}

	healthCheckJob := NewRefreshJob(RefreshJobConfig{
		Config:          singleAreaConfig,
		Logger:          h.logger,
		ObstacleService: h.refreshJob.obstacles,
	})

	result := healthCheckJob.Run(ctx)

	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}

	h.logger.Debug().Msg("health check passed")
	return nil
}
