package event

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders listener invocation within a single dispatch.
// Lower values run first. Priority never causes an event to be dropped.
type Priority int

const (
	PriorityHighest Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityLowest
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	default:
		return "unknown"
	}
}

// Kind identifies the event subtype. Rules filter on kind, not on Go types.
type Kind string

const (
	KindGeneric     Kind = "generic"
	KindConnection  Kind = "connection"
	KindMessage     Kind = "message"
	KindStateChange Kind = "state_change"
	KindError       Kind = "error"
	KindPerformance Kind = "performance"

	// KindAlert marks a persisted alert in the event store.
	KindAlert Kind = "alert"
)

// Well-known event names published by producers.
const (
	NameConnect        = "connection.connect"
	NameDisconnect     = "connection.disconnect"
	NameReconnect      = "connection.reconnect"
	NameMessageSent    = "message.sent"
	NameMessageQueued  = "message.queued"
	NameMessageArrived = "message.received"
	NameStateChanged   = "state.changed"
	NameError          = "error"

	// TopicListenerError carries synthesized events for failed listeners.
	TopicListenerError = "error.listener"
)

// Event is a timestamped, named fact published onto the bus.
//
// Events are immutable after construction except for the propagation flag,
// which a listener may set to halt delivery of the current dispatch.
type Event struct {
	ID        string
	Name      string
	Kind      Kind
	Source    string
	Timestamp time.Time
	Data      map[string]any

	stopped bool
}

// New creates a generic event. Data may be nil.
func New(name, source string, data map[string]any) *Event {
	if data == nil {
		data = make(map[string]any)
	}
	return &Event{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      KindGeneric,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewConnectionEvent creates a connection state event.
func NewConnectionEvent(name, source, connectionID, status, address string) *Event {
	evt := New(name, source, map[string]any{
		"connection_id": connectionID,
		"status":        status,
		"address":       address,
	})
	evt.Kind = KindConnection
	return evt
}

// NewMessageEvent creates a message traffic event.
func NewMessageEvent(name, source, messageID, content, sender, receiver string) *Event {
	evt := New(name, source, map[string]any{
		"message_id": messageID,
		"content":    content,
		"sender":     sender,
		"receiver":   receiver,
	})
	evt.Kind = KindMessage
	return evt
}

// NewStateChangeEvent creates a state transition event.
func NewStateChangeEvent(name, source string, oldState, newState any, reason string) *Event {
	evt := New(name, source, map[string]any{
		"old_state": oldState,
		"new_state": newState,
		"reason":    reason,
	})
	evt.Kind = KindStateChange
	return evt
}

// NewErrorEvent creates an error event. err may be nil when only a code is
// known.
func NewErrorEvent(name, source string, err error, errorCode string) *Event {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	evt := New(name, source, map[string]any{
		"error_message": msg,
		"error_code":    errorCode,
	})
	evt.Kind = KindError
	return evt
}

// NewPerformanceEvent creates a metric sample event. The event name is the
// metric name.
func NewPerformanceEvent(metric, source string, value float64) *Event {
	evt := New(metric, source, map[string]any{
		"value": value,
	})
	evt.Kind = KindPerformance
	return evt
}

// StopPropagation halts delivery of the current dispatch to any listener
// that has not yet been invoked.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PropagationStopped reports whether a listener has halted this dispatch.
func (e *Event) PropagationStopped() bool {
	return e.stopped
}

// String returns the string value stored under key, or "" if missing or not
// a string.
func (e *Event) String(key string) string {
	if s, ok := e.Data[key].(string); ok {
		return s
	}
	return ""
}

// Float returns the numeric value stored under key, or 0 if missing or not
// numeric.
func (e *Event) Float(key string) float64 {
	switch v := e.Data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
