package monitor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

const meterName = "github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"

// schedulerMetrics holds the scheduler's OpenTelemetry instruments.
type schedulerMetrics struct {
	polls        metric.Int64Counter
	failures     metric.Int64Counter
	changes      metric.Int64Counter
	dropped      metric.Int64Counter
	evalDuration metric.Float64Histogram
}

func newSchedulerMetrics(meter metric.Meter) (*schedulerMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	polls, err := meter.Int64Counter(
		"monitor.polls",
		metric.WithDescription("Condition polls performed"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"monitor.acquisition_failures",
		metric.WithDescription("Condition polls whose acquisition failed"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	changes, err := meter.Int64Counter(
		"monitor.changes",
		metric.WithDescription("Change records emitted"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	dropped, err := meter.Int64Counter(
		"monitor.notifications_dropped",
		metric.WithDescription("Notifications dropped because a subscriber queue was full or the scheduler stopped mid-evaluation"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	evalDuration, err := meter.Float64Histogram(
		"monitor.evaluation.duration",
		metric.WithDescription("Time to acquire and evaluate one snapshot in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &schedulerMetrics{
		polls:        polls,
		failures:     failures,
		changes:      changes,
		dropped:      dropped,
		evalDuration: evalDuration,
	}, nil
}

func conditionAttr(ct conditions.Type) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("condition", string(ct)))
}

func (m *schedulerMetrics) poll(ctx context.Context, ct conditions.Type, seconds float64) {
	m.polls.Add(ctx, 1, conditionAttr(ct))
	m.evalDuration.Record(ctx, seconds, conditionAttr(ct))
}

func (m *schedulerMetrics) failure(ctx context.Context, ct conditions.Type) {
	m.failures.Add(ctx, 1, conditionAttr(ct))
}

func (m *schedulerMetrics) change(ctx context.Context, rec conditions.ChangeRecord) {
	m.changes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("condition", string(rec.Type)),
		attribute.String("significance", rec.Significance.String()),
	))
}

func (m *schedulerMetrics) drop(ctx context.Context) {
	m.dropped.Add(ctx, 1)
}
