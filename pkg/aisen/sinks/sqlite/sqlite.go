// Package sqlite provides a sink that stores error events in a local SQLite
// database, for development servers and single-node deployments that want to
// inspect recent failures without running cxdb.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/strongdm/http-observe/pkg/aisen"
)

// Sink persists events to the error_events table.
type Sink struct {
	db *sql.DB
}

var _ aisen.Sink = (*Sink)(nil)

// New opens (or creates) the database at dsn and prepares the schema.
// Use "file:name?mode=memory&cache=shared" for an in-memory database.
func New(dsn string) (*Sink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Sink{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Sink) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS error_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			severity TEXT NOT NULL,
			error_type TEXT NOT NULL,
			message TEXT,
			fingerprint TEXT,
			transaction_name TEXT,
			request_method TEXT,
			request_url TEXT,
			event TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_error_events_timestamp ON error_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_error_events_fingerprint ON error_events(fingerprint)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Write stores event. Writing an event ID that already exists is a no-op.
func (s *Sink) Write(ctx context.Context, event aisen.ErrorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var method, url string
	if event.Request != nil {
		method, url = event.Request.Method, event.Request.URL
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO error_events
			(id, timestamp, severity, error_type, message, fingerprint, transaction_name, request_method, request_url, event)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID.String(), event.Timestamp.UTC(), string(event.Severity), event.ErrorType,
		event.Message, event.Fingerprint, event.Transaction, method, url, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]aisen.ErrorEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT event FROM error_events ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []aisen.ErrorEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event aisen.ErrorEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountByFingerprint returns how many stored events share fingerprint.
func (s *Sink) CountByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM error_events WHERE fingerprint = ?`, fingerprint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Flush is a no-op; writes are synchronous.
func (s *Sink) Flush(ctx context.Context) error {
	return nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
