// Package config provides configuration loading for alertflow.
//
// Config wraps a plain map with type-safe accessors so callers never deal
// with YAML/JSON decoding details. BuildRules turns the declarative rules
// section into alert rules via the rule factories, failing fast on unknown
// rule kinds or invalid patterns. Watch reloads a config file on change.
package config
