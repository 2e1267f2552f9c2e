// Package observability provides production-grade observability features
// for alertflow: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds rule-evaluation context to a logger.
// Returns a new logger with rule and source fields.
func EnrichLogger(logger *slog.Logger, rule, source string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("rule", rule),
		slog.String("source", source),
	)
}

// LogEngineStart logs rule engine startup.
func LogEngineStart(logger *slog.Logger, ruleCount, handlerCount int) {
	if logger == nil {
		return
	}
	logger.Info("alert rule engine started",
		slog.Int("rules", ruleCount),
		slog.Int("handlers", handlerCount),
	)
}

// LogEngineStop logs rule engine shutdown.
func LogEngineStop(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("alert rule engine stopped")
}

// LogAlert logs a fired alert with its fan-out duration.
func LogAlert(logger *slog.Logger, rule, level, source string, handlerCount int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("alert fired",
		slog.String("rule", rule),
		slog.String("level", level),
		slog.String("source", source),
		slog.Int("handlers", handlerCount),
		slog.Float64("fanout_ms", float64(duration.Microseconds())/1000),
	)
}
