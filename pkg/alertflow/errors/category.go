// Package errors provides error classification and retry helpers for
// alertflow.
//
// Failures in the hot path (event -> rule -> alert -> handler) are recovered
// locally and logged; this package supplies the types those paths use to
// describe what failed:
//   - ListenerError: a bus listener raised
//   - PersistenceError: an event store read or write failed
//   - HandlerError: an alert notification handler failed
//   - ConfigError: a malformed rule or config value, surfaced at
//     registration time
package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: HTTP 5xx from a webhook target, a busy database.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: a closed store, a listener panic.
	CategoryPermanent

	// CategoryConfig indicates a configuration problem that must fail
	// fast. Examples: an unparsable source pattern, an unknown rule kind.
	CategoryConfig
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ListenerError describes a bus listener failure. The dispatcher isolates
// it: the original event continues to subsequent listeners.
type ListenerError struct {
	Event string // name of the event being dispatched
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener failed on %s: %v", e.Event, e.Err)
}

func (e *ListenerError) Unwrap() error { return e.Err }

// PersistenceError describes an event store failure. Writes are best-effort
// and never retried; reads degrade to empty results.
type PersistenceError struct {
	Op  string // "store", "query", "clear"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("event store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// HandlerError describes an alert handler failure during fan-out. Collected
// and logged, never re-raised to the engine.
type HandlerError struct {
	Handler string
	Rule    string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for rule %s: %v", e.Handler, e.Rule, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// ConfigError describes invalid configuration, detected at registration or
// load time rather than at evaluation time.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// TransientError marks an error as worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Categorize classifies an error for handling.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return CategoryTransient
	}

	var cfg *ConfigError
	if errors.As(err, &cfg) {
		return CategoryConfig
	}

	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		return CategoryTransient
	}

	return CategoryPermanent
}
