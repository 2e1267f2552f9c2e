package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

func testAlert() *rule.Alert {
	return &rule.Alert{
		ID:        "a1",
		RuleName:  "high-errors",
		Level:     rule.LevelCritical,
		Message:   "error rate exceeded",
		Source:    "node-1",
		Timestamp: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		Events:    []*event.Event{event.New("error", "node-1", nil)},
		Context:   map[string]any{"region": "eu"},
	}
}

func fastWebhookRetry() alerterrors.RetryConfig {
	return alerterrors.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestWebhookDelivery(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewWebhookHandler(WebhookConfig{URL: srv.URL, Retry: fastWebhookRetry()})
	require.NoError(t, h.HandleAlert(context.Background(), testAlert()))

	assert.Equal(t, "a1", received["id"])
	assert.Equal(t, "high-errors", received["rule"])
	assert.Equal(t, "critical", received["level"])
	assert.Equal(t, "#B71C1C", received["color"])
	assert.Equal(t, "node-1", received["source"])
	assert.Equal(t, float64(1), received["events"])
}

func TestWebhookClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	h := NewWebhookHandler(WebhookConfig{URL: srv.URL, Retry: fastWebhookRetry()})
	err := h.HandleAlert(context.Background(), testAlert())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewWebhookHandler(WebhookConfig{URL: srv.URL, Retry: fastWebhookRetry()})
	require.NoError(t, h.HandleAlert(context.Background(), testAlert()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNetworkErrorRetried(t *testing.T) {
	// A server that is already closed produces connection errors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	h := NewWebhookHandler(WebhookConfig{URL: srv.URL, Retry: fastWebhookRetry()})
	err := h.HandleAlert(context.Background(), testAlert())

	require.Error(t, err)
	assert.Equal(t, alerterrors.CategoryTransient, alerterrors.Categorize(err))
}
