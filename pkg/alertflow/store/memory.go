package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// MemoryStore is an in-memory event store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*event.Event
	closed bool
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make([]*event.Event, 0),
	}
}

// StoreEvent implements EventStore.
func (m *MemoryStore) StoreEvent(_ context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.events = append(m.events, evt)
	return nil
}

// GetEvents implements EventStore.
func (m *MemoryStore) GetEvents(_ context.Context, q Query) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	matched := make([]*event.Event, 0)
	for _, evt := range m.events {
		if q.matches(evt) {
			matched = append(matched, evt)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	return matched, nil
}

// ClearEvents implements EventStore.
func (m *MemoryStore) ClearEvents(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if before.IsZero() {
		m.events = m.events[:0]
		return nil
	}

	kept := m.events[:0]
	for _, evt := range m.events {
		if !evt.Timestamp.Before(before) {
			kept = append(kept, evt)
		}
	}
	m.events = kept
	return nil
}

// Close implements EventStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.events = nil
	return nil
}

// Len returns the number of stored events. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
