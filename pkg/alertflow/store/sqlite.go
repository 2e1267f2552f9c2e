package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
)

// SQLiteStore persists events to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite event store.
// The path should be a file path (e.g., "./events.db") or ":memory:" for
// testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			timestamp REAL NOT NULL,
			data TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_timestamp
		ON events(timestamp)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_kind
		ON events(kind, timestamp)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// StoreEvent implements EventStore.
func (s *SQLiteStore) StoreEvent(ctx context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	data, err := json.Marshal(evt.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, name, kind, source, timestamp, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, evt.ID, evt.Name, string(evt.Kind), evt.Source, toSeconds(evt.Timestamp), string(data))

	if err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

// GetEvents implements EventStore.
func (s *SQLiteStore) GetEvents(ctx context.Context, q Query) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var conditions []string
	var args []any

	if !q.Start.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, toSeconds(q.Start))
	}
	if !q.End.IsZero() {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, toSeconds(q.End))
	}
	if len(q.Kinds) > 0 {
		placeholders := strings.Repeat("?,", len(q.Kinds))
		conditions = append(conditions, fmt.Sprintf("kind IN (%s)", placeholders[:len(placeholders)-1]))
		for _, k := range q.Kinds {
			args = append(args, string(k))
		}
	}
	if q.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, q.Source)
	}

	query := "SELECT id, name, kind, source, timestamp, data FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]*event.Event, 0)
	for rows.Next() {
		var (
			evt     event.Event
			kind    string
			seconds float64
			data    string
		)
		if err := rows.Scan(&evt.ID, &evt.Name, &kind, &evt.Source, &seconds, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Kind = event.Kind(kind)
		evt.Timestamp = fromSeconds(seconds)
		if err := json.Unmarshal([]byte(data), &evt.Data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
		events = append(events, &evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// ClearEvents implements EventStore.
func (s *SQLiteStore) ClearEvents(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var err error
	if before.IsZero() {
		_, err = s.db.ExecContext(ctx, "DELETE FROM events")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp < ?", toSeconds(before))
	}
	if err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}

// Close implements EventStore.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Timestamps are stored as float seconds since the epoch, the store's wire
// format.

func toSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}
