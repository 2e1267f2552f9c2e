package rule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

func TestErrorRateRule(t *testing.T) {
	r, err := NewErrorRateRule("high-errors", 5*time.Minute, 10, LevelError)
	require.NoError(t, err)

	assert.Equal(t, []event.Kind{event.KindError}, r.Kinds)
	assert.Equal(t, 10, r.Threshold)
	assert.Equal(t, 5*time.Minute, r.Window)
	assert.Nil(t, r.Condition)
	assert.Contains(t, r.Description, "10 errors")
}

func TestConnectionFailureRuleCondition(t *testing.T) {
	r, err := NewConnectionFailureRule("conn-fail", "^node-", time.Minute, 5, LevelWarning)
	require.NoError(t, err)

	connErr := event.NewErrorEvent("error", "node-1", errors.New("refused"), "CONNECTION_REFUSED")
	assert.True(t, r.Condition(connErr))

	// Match is case-insensitive on the error code.
	lower := event.NewErrorEvent("error", "node-1", errors.New("reset"), "connection_reset")
	assert.True(t, r.Condition(lower))

	other := event.NewErrorEvent("error", "node-1", errors.New("bad"), "PARSE_ERROR")
	assert.False(t, r.Condition(other))

	assert.True(t, r.MatchesSource("node-3"))
	assert.False(t, r.MatchesSource("gateway"))
}

func TestPerformanceRuleCondition(t *testing.T) {
	r, err := NewPerformanceRule("slow-queries", "query_latency_ms", 500, time.Minute, LevelWarning)
	require.NoError(t, err)

	assert.True(t, r.Condition(event.NewPerformanceEvent("query_latency_ms", "db", 750)))
	assert.False(t, r.Condition(event.NewPerformanceEvent("query_latency_ms", "db", 500)))
	// A different metric never matches, regardless of value.
	assert.False(t, r.Condition(event.NewPerformanceEvent("write_latency_ms", "db", 9000)))
}

func TestErrorRateRuleEndToEnd(t *testing.T) {
	bus, eng := startEngine(t, EngineConfig{})

	r, err := NewErrorRateRule("burst", time.Minute, 3, LevelError)
	require.NoError(t, err)
	require.NoError(t, eng.AddRule(r))

	sink := &collector{}
	eng.AddHandler(sink)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		bus.Publish(ctx, event.NewErrorEvent("error", "node-1", errors.New("boom"), "E1"))
	}
	// A non-error event never counts toward the rule.
	bus.Publish(ctx, event.NewConnectionEvent(event.NameConnect, "node-1", "c1", "up", "addr"))

	waitForAlerts(t, sink, 1, time.Second)
	settle()

	alerts := sink.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, "burst", alerts[0].RuleName)
	assert.Equal(t, LevelError, alerts[0].Level)
}
