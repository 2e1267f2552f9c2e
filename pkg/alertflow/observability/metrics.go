package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records alertflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEventProcessed records one event consumed by the rule engine.
	RecordEventProcessed(ctx context.Context, kind string)

	// RecordAlert records a fired alert.
	RecordAlert(ctx context.Context, rule, level string)

	// RecordHandlerDispatch records an alert handler invocation with its
	// duration and error status.
	RecordHandlerDispatch(ctx context.Context, handler string, duration time.Duration, err error)

	// RecordStoreWrite records an event store write attempt.
	RecordStoreWrite(ctx context.Context, ok bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	eventsProcessed metric.Int64Counter
	alertsFired     metric.Int64Counter
	handlerLatency  metric.Float64Histogram
	handlerErrors   metric.Int64Counter
	storeWrites     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("alertflow")

	eventsProcessed, err := meter.Int64Counter("alertflow.events.processed",
		metric.WithDescription("Number of events consumed by the rule engine"),
	)
	if err != nil {
		return nil, err
	}

	alertsFired, err := meter.Int64Counter("alertflow.alerts.fired",
		metric.WithDescription("Number of alerts produced by rule evaluation"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("alertflow.handler.latency_ms",
		metric.WithDescription("Alert handler dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("alertflow.handler.errors",
		metric.WithDescription("Number of alert handler failures"),
	)
	if err != nil {
		return nil, err
	}

	storeWrites, err := meter.Int64Counter("alertflow.store.writes",
		metric.WithDescription("Number of event store write attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		eventsProcessed: eventsProcessed,
		alertsFired:     alertsFired,
		handlerLatency:  handlerLatency,
		handlerErrors:   handlerErrors,
		storeWrites:     storeWrites,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEventProcessed records one consumed event.
func (m *otelMetrics) RecordEventProcessed(ctx context.Context, kind string) {
	m.eventsProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordAlert records a fired alert.
func (m *otelMetrics) RecordAlert(ctx context.Context, rule, level string) {
	m.alertsFired.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("level", level),
	))
}

// RecordHandlerDispatch records an alert handler invocation.
func (m *otelMetrics) RecordHandlerDispatch(ctx context.Context, handler string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("handler", handler),
	}

	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordStoreWrite records an event store write attempt.
func (m *otelMetrics) RecordStoreWrite(ctx context.Context, ok bool) {
	m.storeWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("ok", ok),
	))
}
