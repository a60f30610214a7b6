package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

// Job types accepted on the worker subscription.
const (
	JobSweep       = "sweep"
	JobCheckTarget = "check_target"
	JobHealthCheck = "health_check"
)

// Worker errors.
var (
	ErrUnknownJob   = errors.New("unknown job type")
	ErrInvalidJob   = errors.New("invalid job message")
	ErrSweepFailed  = errors.New("too many target checks failed")
	ErrProviderDown = errors.New("condition provider unavailable")
)

// JobMessage is the payload of a worker job.
type JobMessage struct {
	JobType  string   `json:"job_type"`
	TargetID string   `json:"target_id,omitempty"`
	Targets  []string `json:"targets,omitempty"`
}

// ProcessorConfig holds configuration for a job processor.
type ProcessorConfig struct {
	SweepJob *SweepJob

	// HealthCheck verifies provider connectivity.
	// Default: RegistryHealthCheck(resilience.GlobalRegistry)
	HealthCheck func(ctx context.Context) error

	Logger zerolog.Logger
}

// Processor executes worker jobs independently of the transport.
type Processor struct {
	sweep       *SweepJob
	healthCheck func(ctx context.Context) error
	logger      zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	hc := cfg.HealthCheck
	if hc == nil {
		hc = RegistryHealthCheck(resilience.GlobalRegistry)
	}
	return &Processor{sweep: cfg.SweepJob, healthCheck: hc, logger: cfg.Logger}
}

// Process decodes and runs one job.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	switch msg.JobType {
	case JobSweep:
		return p.handleSweep(ctx, msg.Targets)
	case JobCheckTarget:
		if msg.TargetID == "" {
			return fmt.Errorf("%w: check_target requires target_id", ErrInvalidJob)
		}
		return p.handleSweep(ctx, []string{msg.TargetID})
	case JobHealthCheck:
		return p.handleHealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (p *Processor) handleSweep(ctx context.Context, targets []string) error {
	var result *SweepResult
	if len(targets) == 0 {
		result = p.sweep.Run(ctx)
	} else {
		result = p.sweep.RunTargets(ctx, targets)
	}

	if !result.Healthy(p.sweep.config.MaxFailureRatio) {
		return fmt.Errorf("%w: %d/%d", ErrSweepFailed, result.Failed, result.TotalTargets)
	}
	return nil
}

func (p *Processor) handleHealthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")
	if err := p.healthCheck(ctx); err != nil {
		return err
	}
	p.logger.Debug().Msg("health check passed")
	return nil
}

// RegistryHealthCheck fails while some condition type has no provider with
// a closed or half-open circuit.
func RegistryHealthCheck(reg *resilience.Registry) func(ctx context.Context) error {
	return func(context.Context) error {
		down := reg.Unavailable()
		if len(down) == 0 {
			return nil
		}
		names := make([]string, len(down))
		for i, ct := range down {
			names[i] = string(ct)
		}
		return fmt.Errorf("%w: %s", ErrProviderDown, strings.Join(names, ", "))
	}
}

// PubSubHandler receives worker jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
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

	err := h.processor.Process(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrUnknownJob), errors.Is(err, ErrInvalidJob):
		// Redelivery cannot fix a malformed message.
		logger.Warn().Err(err).Msg("dropping job message")
		msg.Ack()
		return
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
