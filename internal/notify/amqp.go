package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

// DefaultExchange is the topic exchange change records are published to.
const DefaultExchange = "commute.conditions"

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPConfig holds configuration for the AMQP notifier.
type AMQPConfig struct {
	// Channel is an open channel (required).
	Channel Channel

	// Exchange is the topic exchange name.
	// Default: DefaultExchange
	Exchange string

	// PublishTimeout bounds one publish.
	// Default: 3 seconds
	PublishTimeout time.Duration

	// CircuitBreaker guards publishing. If nil, the breaker trips after more
	// than 3 consecutive failures and half-opens after 10 seconds.
	CircuitBreaker *resilience.CircuitBreakerConfig

	Logger zerolog.Logger
}

// AMQP publishes change records to a RabbitMQ topic exchange with routing
// keys of the form conditions.<type>.<significance>.
type AMQP struct {
	channel  Channel
	exchange string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAMQP creates an AMQP notifier.
func NewAMQP(cfg AMQPConfig) *AMQP {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}

	timeout := cfg.PublishTimeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	cbConfig := resilience.CircuitBreakerConfig{
		Name:        "amqp-notifier",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(3),
	}
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	if cbConfig.OnStateChange == nil {
		cbConfig.OnStateChange = resilience.LogStateChanges(cfg.Logger, "publisher circuit breaker changed state")
	}

	return &AMQP{
		channel:  cfg.Channel,
		exchange: exchange,
		timeout:  timeout,
		breaker:  resilience.NewCircuitBreaker[struct{}](cbConfig),
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Name returns "amqp".
func (a *AMQP) Name() string { return "amqp" }

// RoutingKey returns the routing key for a record.
func RoutingKey(rec conditions.ChangeRecord) string {
	return fmt.Sprintf("conditions.%s.%s", rec.Type, rec.Significance)
}

// Notify publishes one persistent message per record.
func (a *AMQP) Notify(ctx context.Context, records []conditions.ChangeRecord) error {
	for _, rec := range records {
		body, err := Encode(rec, a.now())
		if err != nil {
			return err
		}

		headers := amqp.Table{}
		for k, v := range Attributes(rec) {
			headers[k] = v
		}

		_, err = a.breaker.Execute(func() (struct{}, error) {
			pubCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			return struct{}{}, a.channel.PublishWithContext(pubCtx, a.exchange, RoutingKey(rec), false, false, amqp.Publishing{
				ContentType:  "application/json",
				MessageId:    rec.ID,
				Timestamp:    a.now(),
				Headers:      headers,
				Body:         body,
				DeliveryMode: amqp.Persistent,
			})
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				err = resilience.ErrCircuitOpen
			}
			return fmt.Errorf("publishing change record %s: %w", rec.ID, err)
		}

		a.logger.Debug().
			Str("change_id", rec.ID).
			Str("routing_key", RoutingKey(rec)).
			Msg("change record published")
	}
	return nil
}

// DialAMQP connects to RabbitMQ, retrying with exponential backoff, opens a
// channel and declares the durable topic exchange.
func DialAMQP(ctx context.Context, url, exchange string, logger zerolog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	var conn *amqp.Connection
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		c, err := amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("failed to connect to rabbitmq")
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 5), ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	logger.Info().Str("exchange", exchange).Msg("connected to rabbitmq")
	return conn, ch, nil
}
