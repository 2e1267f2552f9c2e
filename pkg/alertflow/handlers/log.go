// Package handlers provides alert notification handlers: structured log
// output, webhook POST delivery, and SMTP email.
//
// Handlers implement rule.Handler. The engine isolates handler failures, so
// implementations report errors honestly and leave recovery policy to the
// engine's fan-out.
package handlers

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

// LogHandler writes alerts to a structured logger at a level matching the
// alert severity.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a log handler. Falls back to slog.Default when
// logger is nil.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

// HandleAlert implements rule.Handler.
func (h *LogHandler) HandleAlert(ctx context.Context, alert *rule.Alert) error {
	h.logger.Log(ctx, logLevel(alert.Level), "alert",
		slog.String("rule", alert.RuleName),
		slog.String("level", alert.Level.String()),
		slog.String("source", alert.Source),
		slog.String("message", alert.Message),
		slog.Int("events", len(alert.Events)),
	)
	return nil
}

// logLevel maps alert severity onto slog levels. Critical logs above
// slog.LevelError so handlers filtering on level can distinguish it.
func logLevel(l rule.Level) slog.Level {
	switch l {
	case rule.LevelInfo:
		return slog.LevelInfo
	case rule.LevelWarning:
		return slog.LevelWarn
	case rule.LevelCritical:
		return slog.LevelError + 4
	default:
		return slog.LevelError
	}
}
