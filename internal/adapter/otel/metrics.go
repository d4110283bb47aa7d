package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "codebridge"

// Metrics holds the bridge's metric instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	SessionsOpened    metric.Int64Counter
	SessionsClosed    metric.Int64Counter
	SessionsActive    metric.Int64UpDownCounter
	MessagesReceived  metric.Int64Counter
	MessagesDropped   metric.Int64Counter
	DiagnosticsPushed metric.Int64Counter
	EngineDuration    metric.Float64Histogram
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.Meter(meterName))
}

// NewMetricsFrom creates the instruments on meter.
func NewMetricsFrom(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.SessionsOpened, err = meter.Int64Counter("codebridge.sessions.opened",
		metric.WithDescription("Number of editor sessions opened"))
	if err != nil {
		return nil, err
	}

	m.SessionsClosed, err = meter.Int64Counter("codebridge.sessions.closed",
		metric.WithDescription("Number of editor sessions closed"))
	if err != nil {
		return nil, err
	}

	m.SessionsActive, err = meter.Int64UpDownCounter("codebridge.sessions.active",
		metric.WithDescription("Number of open editor sessions"))
	if err != nil {
		return nil, err
	}

	m.MessagesReceived, err = meter.Int64Counter("codebridge.messages.received",
		metric.WithDescription("Inbound frames by request kind"))
	if err != nil {
		return nil, err
	}

	m.MessagesDropped, err = meter.Int64Counter("codebridge.messages.dropped",
		metric.WithDescription("Inbound frames dropped as unknown or malformed"))
	if err != nil {
		return nil, err
	}

	m.DiagnosticsPushed, err = meter.Int64Counter("codebridge.diagnostics.pushed",
		metric.WithDescription("Diagnostics pushes sent to editors"))
	if err != nil {
		return nil, err
	}

	m.EngineDuration, err = meter.Float64Histogram("codebridge.engine.duration_seconds",
		metric.WithDescription("Analysis engine call duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsOpened.Add(ctx, 1)
	m.SessionsActive.Add(ctx, 1)
}

// SessionClosed records a finished session.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsClosed.Add(ctx, 1)
	m.SessionsActive.Add(ctx, -1)
}

// MessageReceived records an inbound request by kind.
func (m *Metrics) MessageReceived(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.MessagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// MessageDropped records an inbound frame that was not dispatched.
func (m *Metrics) MessageDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.MessagesDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// DiagnosticsPush records one diagnostics push.
func (m *Metrics) DiagnosticsPush(ctx context.Context, cached bool) {
	if m == nil {
		return
	}
	m.DiagnosticsPushed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", cached)))
}

// EngineCall records the duration of one engine operation.
func (m *Metrics) EngineCall(ctx context.Context, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EngineDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
