package notify

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// PubSubConfig holds configuration for the Pub/Sub notifier.
type PubSubConfig struct {
	ProjectID string
	// Topic is the topic name or ID change records are published to.
	Topic  string
	Logger zerolog.Logger
}

// PubSub publishes change records to a Google Cloud Pub/Sub topic.
type PubSub struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewPubSub creates a Pub/Sub notifier.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSub{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// Name returns "pubsub".
func (p *PubSub) Name() string { return "pubsub" }

// Notify publishes one message per record and waits for the server to
// acknowledge each.
func (p *PubSub) Notify(ctx context.Context, records []conditions.ChangeRecord) error {
	for _, rec := range records {
		msg, err := NewPubSubMessage(rec, p.now())
		if err != nil {
			return err
		}

		id, err := p.publisher.Publish(ctx, msg).Get(ctx)
		if err != nil {
			return fmt.Errorf("publishing change record %s to %s: %w", rec.ID, p.topic, err)
		}

		p.logger.Debug().
			Str("message_id", id).
			Str("change_id", rec.ID).
			Str("topic", p.topic).
			Msg("change record published")
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSub) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// NewPubSubMessage builds the Pub/Sub message for a record.
func NewPubSubMessage(rec conditions.ChangeRecord, now time.Time) (*pubsub.Message, error) {
	data, err := Encode(rec, now)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: Attributes(rec),
	}, nil
}
