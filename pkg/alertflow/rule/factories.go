package rule

import (
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// NewErrorRateRule builds a rule that fires after threshold error events.
func NewErrorRateRule(name string, window time.Duration, threshold int, level Level) (*Rule, error) {
	return New(
		name,
		[]event.Kind{event.KindError},
		nil,
		level,
		fmt.Sprintf("high error rate: %d errors within %s", threshold, window),
		WithWindow(window),
		WithThreshold(threshold),
	)
}

// NewConnectionFailureRule builds a rule that fires after threshold
// connection-related error events from sources matching sourcePattern.
func NewConnectionFailureRule(name, sourcePattern string, window time.Duration, threshold int, level Level) (*Rule, error) {
	return New(
		name,
		[]event.Kind{event.KindError},
		func(evt *event.Event) bool {
			return strings.Contains(strings.ToLower(evt.String("error_code")), "connection")
		},
		level,
		fmt.Sprintf("connection failures: %d failures within %s", threshold, window),
		WithSourcePattern(sourcePattern),
		WithWindow(window),
		WithThreshold(threshold),
	)
}

// NewPerformanceRule builds a rule that fires when the named metric exceeds
// a numeric threshold.
func NewPerformanceRule(name, metric string, limit float64, window time.Duration, level Level) (*Rule, error) {
	return New(
		name,
		[]event.Kind{event.KindPerformance},
		func(evt *event.Event) bool {
			return evt.Name == metric && evt.Float("value") > limit
		},
		level,
		fmt.Sprintf("%s exceeded threshold %g", metric, limit),
		WithWindow(window),
	)
}
