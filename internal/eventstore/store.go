// Package eventstore provides the durable, append-only log of session
// events backing every session's state. A session's state is nothing but
// the fold of its events in Seq order; this package owns the only code
// path allowed to assign that sequence.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

var (
	// ErrNotFound is returned by GetSessionMeta when no session row exists.
	ErrNotFound = errors.New("eventstore: session not found")
	// ErrSeqConflict is returned when Append's expectedSeq does not match
	// the store's current head, meaning a concurrent writer raced us.
	ErrSeqConflict = errors.New("eventstore: sequence conflict")
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	last_model TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	session_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload_blob BLOB NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Store is the SQLite-backed event store. One Store is shared by every
// session actor in the process; all methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new, empty session row. Returns an error if the
// id already exists.
func (s *Store) CreateSession(ctx context.Context, id types.SessionID, now int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		string(id), now, now)
	if err != nil {
		return fmt.Errorf("eventstore: create session %s: %w", id, err)
	}
	return nil
}

// SessionExists reports whether a session row exists.
func (s *Store) SessionExists(ctx context.Context, id types.SessionID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, string(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("eventstore: check session %s: %w", id, err)
	}
	return n > 0, nil
}

// SessionMeta is the row-level metadata the store maintains about a
// session, independent of the event log itself.
type SessionMeta struct {
	ID           types.SessionID
	CreatedAt    int64
	UpdatedAt    int64
	Title        string
	LastModel    string
	MessageCount int
}

// GetSessionMeta loads a session's metadata row.
func (s *Store) GetSessionMeta(ctx context.Context, id types.SessionID) (SessionMeta, error) {
	var m SessionMeta
	m.ID = id
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at, title, last_model, message_count FROM sessions WHERE id = ?`,
		string(id),
	).Scan(&m.CreatedAt, &m.UpdatedAt, &m.Title, &m.LastModel, &m.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionMeta{}, ErrNotFound
	}
	if err != nil {
		return SessionMeta{}, fmt.Errorf("eventstore: get session meta %s: %w", id, err)
	}
	return m, nil
}

// ListSessions returns every session's metadata, most recently updated
// first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, title, last_model, message_count FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var m SessionMeta
		var id string
		if err := rows.Scan(&id, &m.CreatedAt, &m.UpdatedAt, &m.Title, &m.LastModel, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("eventstore: scan session row: %w", err)
		}
		m.ID = types.SessionID(id)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and all of its events.
func (s *Store) DeleteSession(ctx context.Context, id types.SessionID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("eventstore: delete session %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE session_id = ?`, string(id)); err != nil {
		return fmt.Errorf("eventstore: delete events for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("eventstore: delete session row %s: %w", id, err)
	}
	return tx.Commit()
}

// UpdateTitle sets a session's display title.
func (s *Store) UpdateTitle(ctx context.Context, id types.SessionID, title string, now int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`, title, now, string(id))
	if err != nil {
		return fmt.Errorf("eventstore: update title %s: %w", id, err)
	}
	return nil
}

// Append persists one or more events for a session in a single
// transaction, assigning each a strictly increasing Seq starting from
// the session's current head + 1. expectedSeq, when non-nil, must match
// the current head or ErrSeqConflict is returned (optimistic concurrency
// guard for the rare case two writers touch one session at once; in
// normal operation only the session's own actor goroutine ever appends,
// so this never fires).
func (s *Store) Append(ctx context.Context, id types.SessionID, now int64, expectedSeq *types.EventSeq, events []types.Event) ([]types.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("eventstore: append: begin: %w", err)
	}
	defer tx.Rollback()

	var head types.EventSeq
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, string(id)).Scan(&head)
	if err != nil {
		return nil, fmt.Errorf("eventstore: append: read head: %w", err)
	}

	if expectedSeq != nil && *expectedSeq != head {
		return nil, ErrSeqConflict
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (session_id, seq, ts, kind, payload_blob) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("eventstore: append: prepare: %w", err)
	}
	defer stmt.Close()

	out := make([]types.Event, len(events))
	for i, ev := range events {
		head++
		ev.SessionID = id
		ev.Seq = head
		ev.Timestamp = now
		if _, err := stmt.ExecContext(ctx, string(id), int64(head), now, string(ev.Kind), []byte(ev.Payload)); err != nil {
			return nil, fmt.Errorf("eventstore: append event seq %d: %w", head, err)
		}
		out[i] = ev
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, string(id)); err != nil {
		return nil, fmt.Errorf("eventstore: append: touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("eventstore: append: commit: %w", err)
	}
	return out, nil
}

// Load replays every event for a session in Seq order, starting after
// afterSeq (pass 0 to load the whole log).
func (s *Store) Load(ctx context.Context, id types.SessionID, afterSeq types.EventSeq) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, ts, kind, payload_blob FROM events WHERE session_id = ? AND seq > ? ORDER BY seq ASC`,
		string(id), int64(afterSeq))
	if err != nil {
		return nil, fmt.Errorf("eventstore: load %s: %w", id, err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var ev types.Event
		var seq int64
		var kind string
		var payload []byte
		if err := rows.Scan(&seq, &ev.Timestamp, &kind, &payload); err != nil {
			return nil, fmt.Errorf("eventstore: scan event row: %w", err)
		}
		ev.SessionID = id
		ev.Seq = types.EventSeq(seq)
		ev.Kind = types.EventKind(kind)
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// HeadSeq returns the current highest Seq for a session, or 0 if it has
// no events yet.
func (s *Store) HeadSeq(ctx context.Context, id types.SessionID) (types.EventSeq, error) {
	var head int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, string(id)).Scan(&head)
	if err != nil {
		return 0, fmt.Errorf("eventstore: head seq %s: %w", id, err)
	}
	return types.EventSeq(head), nil
}
