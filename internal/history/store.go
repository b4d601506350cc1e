// SPDX-License-Identifier: MIT

// Package history keeps an append-only journal of playback and transfer
// events, so operators can see what a wall node did after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/videowall/internal/log"
	"github.com/ManuGH/videowall/internal/persistence/sqlite"
	"github.com/rs/zerolog"
)

const schemaVersion = 1

// Event is one journal entry.
type Event struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"` // command, transfer or decoder
	Detail  string    `json:"detail"`
	Outcome string    `json:"outcome"`
}

// Store persists events in SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore opens (and migrates) the journal at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: log.WithComponent("history")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	var current int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordEvent appends an event. Journal failures are logged, never
// propagated: losing an audit row must not disturb playback or transfers.
func (s *Store) RecordEvent(ctx context.Context, kind, detail, outcome string) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (at, kind, detail, outcome) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), kind, detail, outcome,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("record event")
	}
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, kind, detail, outcome FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			e  Event
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.Detail, &e.Outcome); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
