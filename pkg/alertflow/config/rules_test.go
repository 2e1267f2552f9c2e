package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

func TestBuildRulesFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
rules:
  - name: error-burst
    kind: error_rate
    window: 5m
    threshold: 3
    level: critical
    cooldown: 30s
  - name: node-conn
    kind: connection_failure
    source_pattern: "^node-"
  - name: slow-send
    kind: performance
    metric: send_latency_ms
    limit: 250
`))
	require.NoError(t, err)

	rules, err := BuildRules(cfg)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	burst := rules[0]
	assert.Equal(t, "error-burst", burst.Name)
	assert.Equal(t, 3, burst.Threshold)
	assert.Equal(t, 5*time.Minute, burst.Window)
	assert.Equal(t, rule.LevelCritical, burst.Level)
	assert.Equal(t, 30*time.Second, burst.Cooldown)

	conn := rules[1]
	assert.Equal(t, "node-conn", conn.Name)
	assert.Equal(t, "^node-", conn.SourcePattern())
	assert.Equal(t, 5, conn.Threshold)
	assert.Equal(t, rule.LevelWarning, conn.Level)

	perf := rules[2]
	assert.Equal(t, "slow-send", perf.Name)
	require.NotNil(t, perf.Condition)
}

func TestBuildRulesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
rules:
  - name: plain
    kind: error_rate
`))
	require.NoError(t, err)

	rules, err := BuildRules(cfg)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Equal(t, 10, r.Threshold)
	assert.Equal(t, 5*time.Minute, r.Window)
	assert.Equal(t, rule.LevelError, r.Level)
	assert.Equal(t, 60*time.Second, r.Cooldown)
}

func TestBuildRulesAbsentSection(t *testing.T) {
	rules, err := BuildRules(New(nil))
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestBuildRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"rules not a list", "rules: yes\n"},
		{"entry not a mapping", "rules:\n  - just-a-string\n"},
		{"missing name", "rules:\n  - kind: error_rate\n"},
		{"unknown kind", "rules:\n  - name: r\n    kind: teapot\n"},
		{"unknown level", "rules:\n  - name: r\n    kind: error_rate\n    level: fatal\n"},
		{"bad source pattern", "rules:\n  - name: r\n    kind: connection_failure\n    source_pattern: \"[unclosed\"\n"},
		{"performance without metric", "rules:\n  - name: r\n    kind: performance\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromYAML([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = BuildRules(cfg)
			require.Error(t, err)

			var cfgErr *alerterrors.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
