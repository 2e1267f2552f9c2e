package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

// AnalysisTask periodically runs the full report set (stats for every range
// plus pattern detection) and logs the results for operational visibility.
type AnalysisTask struct {
	analytics *Analytics
	interval  time.Duration
	logger    *slog.Logger

	// MinFrequency and MinCorrelation are the pattern detection floors
	// used each round.
	MinFrequency   float64
	MinCorrelation float64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewAnalysisTask creates a periodic analysis driver. interval defaults to
// one hour when non-positive.
func NewAnalysisTask(a *Analytics, interval time.Duration, logger *slog.Logger) *AnalysisTask {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AnalysisTask{
		analytics:      a,
		interval:       interval,
		logger:         logger,
		MinFrequency:   1.0,
		MinCorrelation: 0.5,
	}
}

// Start begins the analysis loop. Calling Start on a running task is a
// no-op.
func (t *AnalysisTask) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.loop(loopCtx, t.done)

	if t.logger != nil {
		t.logger.Info("alert analysis task started",
			slog.Duration("interval", t.interval))
	}
}

// Stop cancels the loop and waits for it. The in-flight analysis round is
// allowed to finish. Idempotent.
func (t *AnalysisTask) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	cancel()
	<-done

	if t.logger != nil {
		t.logger.Info("alert analysis task stopped")
	}
}

func (t *AnalysisTask) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		t.analyze(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.interval):
		}
	}
}

// analyze runs one full report round.
func (t *AnalysisTask) analyze(ctx context.Context) {
	for _, r := range Ranges {
		stats, err := t.analytics.Stats(ctx, r)
		if err != nil {
			continue
		}
		if t.logger != nil {
			t.logger.Info("alert stats",
				slog.String("range", string(r)),
				slog.Int("total", stats.TotalCount),
				slog.Int("critical", stats.LevelCounts[rule.LevelCritical]),
				slog.Int("error", stats.LevelCounts[rule.LevelError]),
				slog.Int("warning", stats.LevelCounts[rule.LevelWarning]),
				slog.Int("info", stats.LevelCounts[rule.LevelInfo]),
			)
		}
	}

	patterns := t.analytics.Patterns(ctx, t.MinFrequency, t.MinCorrelation)
	for _, p := range patterns {
		if t.logger != nil {
			t.logger.Info("alert pattern detected",
				slog.String("rule", p.RuleName),
				slog.String("source", p.Source),
				slog.Float64("per_hour", p.Frequency),
				slog.Duration("avg_interval", p.AvgInterval),
				slog.Float64("correlation", p.CorrelationScore),
			)
		}
	}
}
