package analytics

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
	"github.com/randalmurphal/alertflow/pkg/alertflow/store"
)

// logCapture is a slog handler that records messages.
type logCapture struct {
	mu       sync.Mutex
	messages []string
}

func (c *logCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *logCapture) Handle(_ context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, r.Message)
	return nil
}

func (c *logCapture) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *logCapture) WithGroup(string) slog.Handler      { return c }

func (c *logCapture) contains(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if strings.Contains(m, msg) {
			return true
		}
	}
	return false
}

func TestAnalysisTaskRunsImmediately(t *testing.T) {
	mem := store.NewMemoryStore()
	now := time.Now()
	// A tight regular group that clears the default pattern floors.
	for i := 0; i < 48; i++ {
		seedAlert(t, mem, "noisy", "node-1", rule.LevelError, now.Add(-time.Duration(i)*30*time.Minute))
	}

	capture := &logCapture{}
	logger := slog.New(capture)

	task := NewAnalysisTask(New(mem, Config{}), time.Hour, logger)
	task.Start(context.Background())
	defer task.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if capture.contains("alert stats") && capture.contains("alert pattern detected") {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.True(t, capture.contains("alert stats"), "expected a stats round on start")
	assert.True(t, capture.contains("alert pattern detected"), "expected pattern detection on start")
}

func TestAnalysisTaskStartStopIdempotent(t *testing.T) {
	task := NewAnalysisTask(New(store.NewMemoryStore(), Config{}), time.Hour, nil)

	task.Start(context.Background())
	task.Start(context.Background())
	task.Stop()
	task.Stop()
}

func TestAnalysisTaskDefaults(t *testing.T) {
	task := NewAnalysisTask(New(store.NewMemoryStore(), Config{}), 0, nil)
	require.NotNil(t, task)
	assert.Equal(t, 1.0, task.MinFrequency)
	assert.Equal(t, 0.5, task.MinCorrelation)
}
