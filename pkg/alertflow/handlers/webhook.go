package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

// WebhookConfig configures webhook delivery.
type WebhookConfig struct {
	// URL is the JSON POST target.
	URL string

	// Timeout bounds one delivery attempt. Default: 10s.
	Timeout time.Duration

	// Retry controls redelivery on transient failure (network errors and
	// HTTP 5xx). Zero value uses the package default.
	Retry alerterrors.RetryConfig
}

// WebhookHandler POSTs alerts as JSON to a configured URL.
type WebhookHandler struct {
	url    string
	client *http.Client
	retry  alerterrors.RetryConfig
}

// webhookPayload is the wire form of a delivered alert.
type webhookPayload struct {
	ID        string         `json:"id"`
	Rule      string         `json:"rule"`
	Level     string         `json:"level"`
	Color     string         `json:"color"`
	Message   string         `json:"message"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Events    int            `json:"events"`
	Context   map[string]any `json:"context,omitempty"`
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = alerterrors.DefaultRetry
	}
	return &WebhookHandler{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		retry:  retry,
	}
}

// HandleAlert implements rule.Handler.
func (h *WebhookHandler) HandleAlert(ctx context.Context, alert *rule.Alert) error {
	body, err := json.Marshal(webhookPayload{
		ID:        alert.ID,
		Rule:      alert.RuleName,
		Level:     alert.Level.String(),
		Color:     alert.Level.Color(),
		Message:   alert.Message,
		Source:    alert.Source,
		Timestamp: alert.Timestamp,
		Events:    len(alert.Events),
		Context:   alert.Context,
	})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	return alerterrors.WithRetryContext(ctx, h.retry, func(ctx context.Context) error {
		return h.post(ctx, body)
	})
}

func (h *WebhookHandler) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return alerterrors.Transient(fmt.Errorf("http post: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return alerterrors.Transient(fmt.Errorf("webhook returned HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
