// Package store provides durable event persistence for alertflow.
//
// The rule engine writes every consumed event best-effort; the analytics
// layer reads alert history back out. Two implementations ship: SQLiteStore
// for single-process production use and MemoryStore for testing.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// Query filters a GetEvents call. Zero values mean "no filter"; set filters
// combine with AND.
type Query struct {
	// Start and End bound the event timestamp (inclusive).
	Start time.Time
	End   time.Time

	// Kinds restricts to the given event kinds.
	Kinds []event.Kind

	// Source restricts to an exact source identifier.
	Source string
}

// EventStore persists events and serves timestamp-ordered reads.
// Implementations must be safe for concurrent use.
type EventStore interface {
	// StoreEvent writes one event. Callers treat failures as best-effort:
	// they are logged, not retried.
	StoreEvent(ctx context.Context, evt *event.Event) error

	// GetEvents returns events matching q, ordered by timestamp ascending.
	// Returns an empty slice (not an error) when nothing matches.
	GetEvents(ctx context.Context, q Query) ([]*event.Event, error)

	// ClearEvents removes events with timestamp before the cutoff.
	// A zero cutoff removes everything.
	ClearEvents(ctx context.Context, before time.Time) error

	// Close releases any resources.
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("event store closed")

// matches reports whether evt passes every set filter in q.
func (q Query) matches(evt *event.Event) bool {
	if !q.Start.IsZero() && evt.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && evt.Timestamp.After(q.End) {
		return false
	}
	if len(q.Kinds) > 0 {
		found := false
		for _, k := range q.Kinds {
			if evt.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Source != "" && evt.Source != q.Source {
		return false
	}
	return true
}
