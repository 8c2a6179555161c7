/*
Package sqlite provides a SQLite-backed implementation of the campus stores.

PURPOSE:
  Implements campus.EventStore, campus.RegistrationStore and
  campus.AuditLog on a single SQLite database. It is the default backend
  for the server.

INTERFACES IMPLEMENTED:
  campus.EventStore:        whole-list replace, ordered by position
  campus.RegistrationStore: append-only registrations
  campus.AuditLog:          audit run history
  campus.Resetter:          wipe for demo scenarios

WHOLE-LIST REPLACE:
  ReplaceAll deletes every event row and re-inserts the new list inside one
  SQL transaction. Readers either see the old list or the new one. The
  position column preserves insertion order, which analytics depends on.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the registrations table (except Reset)
  - idx_unique_registration rejects a second registration for the same
    (email, event) even if a caller skips the service-level check

KEY TABLES:
  events:        one row per event, keyed by position
  registrations: surrogate UUID plus insertion sequence
  audit_runs:    audit scheduler history

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The connection pool is limited to
  one connection so ":memory:" databases are shared by every query.

USAGE:
  store, err := sqlite.New("./data/campus.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  sched := campus.NewSchedulingService(store.Events(), logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - campus/store.go:        interface definitions
  - campus/store/memory.go: in-memory implementation for testing
  - store/postgres:         PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/campus-scheduler/campus"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the campus storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Events (whole list rewritten on every mutation)
	CREATE TABLE IF NOT EXISTS events (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		venue TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_events_slot
		ON events(date, time, venue);

	-- Registrations (append-only)
	CREATE TABLE IF NOT EXISTS registrations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		id_name TEXT NOT NULL,
		id_date TEXT NOT NULL,
		id_time TEXT NOT NULL,
		id_venue TEXT NOT NULL,
		event_name TEXT NOT NULL,
		date TEXT NOT NULL,
		time TEXT NOT NULL,
		venue TEXT NOT NULL,
		user_name TEXT NOT NULL DEFAULT '',
		user_email TEXT NOT NULL,
		student_id TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		registered_at TEXT NOT NULL
	);

	-- One registration per user and event
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_registration
		ON registrations(user_email, id_name, id_date, id_time, id_venue);

	-- Slot clash lookups
	CREATE INDEX IF NOT EXISTS idx_registrations_user_slot
		ON registrations(user_email, date, time);

	-- Audit runs
	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		events_checked INTEGER NOT NULL DEFAULT 0,
		at_risk INTEGER NOT NULL DEFAULT 0,
		collisions_json TEXT NOT NULL DEFAULT '[]',
		clash_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_started
		ON audit_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Events returns the EventStore view of the database.
func (s *Store) Events() campus.EventStore { return eventStore{s} }

// Registrations returns the RegistrationStore view of the database.
func (s *Store) Registrations() campus.RegistrationStore { return registrationStore{s} }

// =============================================================================
// EVENT STORE (campus.EventStore interface)
// =============================================================================

type eventStore struct{ s *Store }

func (es eventStore) List(ctx context.Context) ([]campus.Event, error) {
	return es.s.ListEvents(ctx)
}

func (es eventStore) ReplaceAll(ctx context.Context, events []campus.Event) error {
	return es.s.ReplaceEvents(ctx, events)
}

func (es eventStore) Reset(ctx context.Context) error { return es.s.Reset(ctx) }

// ListEvents returns all events in position order.
func (s *Store) ListEvents(ctx context.Context) ([]campus.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, date, time, venue, status, description
		FROM events
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []campus.Event
	for rows.Next() {
		var e campus.Event
		var status string
		if err := rows.Scan(&e.Name, &e.Date, &e.Time, &e.Venue, &status, &e.Description); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Status = campus.Status(status)
		events = append(events, e)
	}
	return events, rows.Err()
}

// ReplaceEvents atomically overwrites the event list.
func (s *Store) ReplaceEvents(ctx context.Context, events []campus.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO events (position, name, date, time, venue, status, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, i, e.Name, e.Date, e.Time, e.Venue, string(e.Status), e.Description); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// REGISTRATION STORE (campus.RegistrationStore interface)
// =============================================================================

type registrationStore struct{ s *Store }

func (rs registrationStore) List(ctx context.Context) ([]campus.Registration, error) {
	return rs.s.ListRegistrations(ctx)
}

func (rs registrationStore) Append(ctx context.Context, r campus.Registration) error {
	return rs.s.AppendRegistration(ctx, r)
}

func (rs registrationStore) Reset(ctx context.Context) error { return rs.s.Reset(ctx) }

// AppendRegistration inserts one registration under a fresh surrogate ID.
func (s *Store) AppendRegistration(ctx context.Context, r campus.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO registrations
		(id, id_name, id_date, id_time, id_venue, event_name, date, time, venue,
		 user_name, user_email, student_id, department, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		r.EventID.Name, r.EventID.Date, r.EventID.Time, r.EventID.Venue,
		r.EventName, r.Date, r.Time, r.Venue,
		r.UserName, r.UserEmail, r.StudentID, r.Department,
		r.RegisteredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &campus.RegistrationConflictError{
				Reason:    campus.ErrDuplicateRegistration,
				UserEmail: r.UserEmail,
				Existing:  r.EventID,
			}
		}
		return fmt.Errorf("failed to append registration: %w", err)
	}
	return nil
}

// ListRegistrations returns all registrations in insertion order.
func (s *Store) ListRegistrations(ctx context.Context) ([]campus.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id_name, id_date, id_time, id_venue, event_name, date, time, venue,
			user_name, user_email, student_id, department, registered_at
		FROM registrations
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations: %w", err)
	}
	defer rows.Close()

	var regs []campus.Registration
	for rows.Next() {
		var r campus.Registration
		var registeredAt string
		if err := rows.Scan(
			&r.EventID.Name, &r.EventID.Date, &r.EventID.Time, &r.EventID.Venue,
			&r.EventName, &r.Date, &r.Time, &r.Venue,
			&r.UserName, &r.UserEmail, &r.StudentID, &r.Department, &registeredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		r.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registeredAt)
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// =============================================================================
// AUDIT LOG (campus.AuditLog interface)
// =============================================================================

// SaveAuditRun inserts or updates an audit run.
func (s *Store) SaveAuditRun(ctx context.Context, r campus.AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_runs (id, status, events_checked, at_risk, collisions_json,
			clash_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			events_checked = excluded.events_checked,
			at_risk = excluded.at_risk,
			collisions_json = excluded.collisions_json,
			clash_count = excluded.clash_count,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	collisions, err := json.Marshal(collisionsOrEmpty(r.Collisions))
	if err != nil {
		return fmt.Errorf("failed to encode collisions: %w", err)
	}

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(timeLayout)
		completedAt = &c
	}

	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Status, r.EventsChecked, r.AtRisk, string(collisions),
		r.ClashCount, r.Error, r.StartedAt.UTC().Format(timeLayout), completedAt,
	)
	return err
}

// ListAuditRuns returns audit runs, newest first.
func (s *Store) ListAuditRuns(ctx context.Context, limit int) ([]campus.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, status, events_checked, at_risk, collisions_json, clash_count,
			error, started_at, completed_at
		FROM audit_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []campus.AuditRun
	for rows.Next() {
		var r campus.AuditRun
		var collisions, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Status, &r.EventsChecked, &r.AtRisk, &collisions, &r.ClashCount,
			&r.Error, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(collisions), &r.Collisions); err != nil {
			return nil, fmt.Errorf("failed to decode collisions for run %s: %w", r.ID, err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, completedAt.String)
			r.CompletedAt = &t
		}

		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"events", "registrations", "audit_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func collisionsOrEmpty(ids []campus.EventID) []campus.EventID {
	if ids == nil {
		return []campus.EventID{}
	}
	return ids
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
