package rule

import (
	"regexp"
	"time"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// Level is the severity of an alert.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelCritical
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Color returns the hex color downstream reporting uses for the level.
func (l Level) Color() string {
	switch l {
	case LevelInfo:
		return "#1E88E5"
	case LevelWarning:
		return "#FFC107"
	case LevelError:
		return "#E53935"
	case LevelCritical:
		return "#B71C1C"
	default:
		return "#9E9E9E"
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "info":
		return LevelInfo, nil
	case "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return LevelInfo, &alerterrors.ConfigError{
			Field:   "level",
			Message: "unknown alert level: " + s,
		}
	}
}

// Condition tests whether an event contributes to a rule's aggregation.
type Condition func(evt *event.Event) bool

// Rule describes when an alert fires. Rules are immutable after New; the
// engine owns the per-rule mutable counter and cooldown state.
type Rule struct {
	// Name uniquely identifies the rule within an engine.
	Name string

	// Kinds is the set of event kinds the rule applies to.
	Kinds []event.Kind

	// Condition is the per-event predicate. A nil condition matches every
	// event of a matching kind.
	Condition Condition

	// Level is the severity of alerts this rule produces.
	Level Level

	// Description becomes the alert message.
	Description string

	// Cooldown is the minimum time between firings.
	Cooldown time.Duration

	// Window is the nominal aggregation window. It is carried for
	// configuration compatibility but not enforced; see the package doc.
	Window time.Duration

	// Threshold is the number of matching events required to fire.
	Threshold int

	sourceExpr    string
	sourcePattern *regexp.Regexp
}

// Option configures a Rule.
type Option func(*Rule)

// WithCooldown sets the minimum time between firings. Default 60s.
func WithCooldown(d time.Duration) Option {
	return func(r *Rule) { r.Cooldown = d }
}

// WithWindow sets the nominal aggregation window. Default 60s.
func WithWindow(d time.Duration) Option {
	return func(r *Rule) { r.Window = d }
}

// WithThreshold sets the number of matching events required to fire.
// Default 1.
func WithThreshold(n int) Option {
	return func(r *Rule) { r.Threshold = n }
}

// WithSourcePattern restricts the rule to events whose source matches the
// regular expression. The pattern is compiled by New; an invalid pattern is
// a ConfigError.
func WithSourcePattern(pattern string) Option {
	return func(r *Rule) { r.sourceExpr = pattern }
}

// New creates a rule. Invalid options (e.g. an unparsable source pattern)
// fail here, at registration time, never at evaluation time.
func New(name string, kinds []event.Kind, condition Condition, level Level, description string, opts ...Option) (*Rule, error) {
	if name == "" {
		return nil, &alerterrors.ConfigError{Field: "name", Message: "rule name is required"}
	}

	r := &Rule{
		Name:        name,
		Kinds:       kinds,
		Condition:   condition,
		Level:       level,
		Description: description,
		Cooldown:    60 * time.Second,
		Window:      60 * time.Second,
		Threshold:   1,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.Threshold < 1 {
		return nil, &alerterrors.ConfigError{Field: "threshold", Message: "threshold must be at least 1"}
	}

	if r.sourceExpr != "" {
		compiled, err := regexp.Compile(r.sourceExpr)
		if err != nil {
			return nil, &alerterrors.ConfigError{
				Field:   "source_pattern",
				Message: "invalid source pattern: " + err.Error(),
			}
		}
		r.sourcePattern = compiled
	}

	return r, nil
}

// MatchesKind reports whether the rule applies to events of kind k.
// A rule with no kinds applies to every kind.
func (r *Rule) MatchesKind(k event.Kind) bool {
	if len(r.Kinds) == 0 {
		return true
	}
	for _, kind := range r.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// MatchesSource reports whether the rule applies to events from source.
// A rule with no source pattern applies to every source.
func (r *Rule) MatchesSource(source string) bool {
	if r.sourcePattern == nil {
		return true
	}
	return r.sourcePattern.MatchString(source)
}

// SourcePattern returns the configured source pattern, or "" if unset.
func (r *Rule) SourcePattern() string {
	return r.sourceExpr
}
