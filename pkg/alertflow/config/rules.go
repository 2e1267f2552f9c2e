package config

import (
	"fmt"
	"time"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
)

// BuildRules constructs alert rules from the "rules" section of a config:
//
//	rules:
//	  - name: error-burst
//	    kind: error_rate
//	    window: 5m
//	    threshold: 3
//	    level: error
//	    cooldown: 60s
//	  - name: node-conn
//	    kind: connection_failure
//	    source_pattern: "^node-"
//	  - name: slow-send
//	    kind: performance
//	    metric: send_latency_ms
//	    limit: 250
//
// Unknown rule kinds, unknown levels, and invalid source patterns fail
// here, before the engine ever sees the rules.
func BuildRules(cfg Config) ([]*rule.Rule, error) {
	raw, ok := cfg.Any("rules", nil).([]any)
	if !ok {
		if cfg.Has("rules") {
			return nil, &alerterrors.ConfigError{Field: "rules", Message: "rules must be a list"}
		}
		return nil, nil
	}

	rules := make([]*rule.Rule, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &alerterrors.ConfigError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: "rule entry must be a mapping",
			}
		}

		r, err := buildRule(New(m))
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}

	return rules, nil
}

func buildRule(rc Config) (*rule.Rule, error) {
	name := rc.String("name", "")
	if name == "" {
		return nil, &alerterrors.ConfigError{Field: "name", Message: "rule name is required"}
	}

	kind := rc.String("kind", "")
	window := rc.Duration("window", 5*time.Minute)

	var (
		r   *rule.Rule
		err error
	)
	switch kind {
	case "error_rate":
		level, lerr := parseLevel(rc, rule.LevelError)
		if lerr != nil {
			return nil, lerr
		}
		r, err = rule.NewErrorRateRule(name, window, rc.Int("threshold", 10), level)

	case "connection_failure":
		level, lerr := parseLevel(rc, rule.LevelWarning)
		if lerr != nil {
			return nil, lerr
		}
		r, err = rule.NewConnectionFailureRule(name, rc.String("source_pattern", ".*"),
			window, rc.Int("threshold", 5), level)

	case "performance":
		metric := rc.String("metric", "")
		if metric == "" {
			return nil, &alerterrors.ConfigError{Field: "metric", Message: "performance rule requires a metric"}
		}
		level, lerr := parseLevel(rc, rule.LevelWarning)
		if lerr != nil {
			return nil, lerr
		}
		r, err = rule.NewPerformanceRule(name, metric, rc.Float("limit", 0), window, level)

	default:
		return nil, &alerterrors.ConfigError{
			Field:   "kind",
			Message: "unknown rule kind: " + kind,
		}
	}
	if err != nil {
		return nil, err
	}

	if rc.Has("cooldown") {
		r.Cooldown = rc.Duration("cooldown", r.Cooldown)
	}

	return r, nil
}

func parseLevel(rc Config, defaultLevel rule.Level) (rule.Level, error) {
	if !rc.Has("level") {
		return defaultLevel, nil
	}
	return rule.ParseLevel(rc.String("level", ""))
}
