package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the bot's instruments.
type Metrics struct {
	actions       metric.Int64Counter
	sessions      metric.Int64Counter
	parseDuration metric.Float64Histogram
}

// NewMetrics registers the bot's instruments on meter.
// A nil meter uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	actions, err := meter.Int64Counter("splitly.actions",
		metric.WithDescription("Session actions dispatched, by action type"))
	if err != nil {
		return nil, fmt.Errorf("failed to create actions counter: %w", err)
	}

	sessions, err := meter.Int64Counter("splitly.sessions.created",
		metric.WithDescription("Receipt sessions created"))
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}

	parseDuration, err := meter.Float64Histogram("splitly.receipt.parse.duration",
		metric.WithDescription("Time spent parsing a receipt image"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create parse duration histogram: %w", err)
	}

	return &Metrics{actions: actions, sessions: sessions, parseDuration: parseDuration}, nil
}

// RecordAction counts one dispatched action.
func (m *Metrics) RecordAction(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.actions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordSessionCreated counts a new receipt session.
func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1)
}

// RecordParse records how long a receipt parse took and whether it succeeded.
func (m *Metrics) RecordParse(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.parseDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
