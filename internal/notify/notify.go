// Package notify forwards condition change records to external transports.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// MessageVersion is the version of the change message schema.
const MessageVersion = 1

// Notifier delivers change records to a transport.
type Notifier interface {
	// Notify delivers every record. Delivery stops at the first error.
	Notify(ctx context.Context, records []conditions.ChangeRecord) error

	// Name returns the notifier name for logging.
	Name() string
}

// Message is the wire form of a single change record.
type Message struct {
	Version     int                     `json:"version"`
	PublishedAt time.Time               `json:"publishedAt"`
	Record      conditions.ChangeRecord `json:"record"`
}

// Encode serialises one change record as a Message.
func Encode(rec conditions.ChangeRecord, now time.Time) ([]byte, error) {
	data, err := json.Marshal(Message{Version: MessageVersion, PublishedAt: now.UTC(), Record: rec})
	if err != nil {
		return nil, fmt.Errorf("encoding change record %s: %w", rec.ID, err)
	}
	return data, nil
}

// Decode parses a Message produced by Encode.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding change message: %w", err)
	}
	if msg.Version != MessageVersion {
		return Message{}, fmt.Errorf("unsupported change message version %d", msg.Version)
	}
	return msg, nil
}

// Attributes returns routing metadata for a record.
func Attributes(rec conditions.ChangeRecord) map[string]string {
	routeAffecting := "false"
	if rec.RouteAffecting {
		routeAffecting = "true"
	}
	return map[string]string{
		"target_id":       rec.TargetID,
		"condition":       string(rec.Type),
		"significance":    rec.Significance.String(),
		"route_affecting": routeAffecting,
	}
}

// Callback adapts a notifier to a scheduler subscription. Each notification
// gets its own timeout; failures are logged, never retried.
func Callback(n Notifier, timeout time.Duration, logger zerolog.Logger) func([]conditions.ChangeRecord) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(records []conditions.ChangeRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := n.Notify(ctx, records); err != nil {
			logger.Error().Err(err).
				Str("notifier", n.Name()).
				Int("records", len(records)).
				Msg("failed to deliver change notification")
		}
	}
}

// Multi delivers to several notifiers and joins their errors.
type Multi []Notifier

// Notify calls every notifier even when an earlier one fails.
func (m Multi) Notify(ctx context.Context, records []conditions.ChangeRecord) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name returns "multi".
func (m Multi) Name() string { return "multi" }

// Log writes change records to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
}

// Notify logs each record at info level.
func (l Log) Notify(_ context.Context, records []conditions.ChangeRecord) error {
	for _, r := range records {
		l.Logger.Info().
			Str("change_id", r.ID).
			Str("target_id", r.TargetID).
			Str("condition", string(r.Type)).
			Str("significance", r.Significance.String()).
			Bool("route_affecting", r.RouteAffecting).
			Bool("reduced_confidence", r.ReducedConfidence).
			Msg(r.Description)
	}
	return nil
}

// Name returns "log".
func (Log) Name() string { return "log" }
