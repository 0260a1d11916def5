// CLAUDE:SUMMARY SQLite archive of finished sessions and their actions.
// Package store archives finished recording sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/actrec/action"
	"github.com/hazyhaar/actrec/dbopen"
)

// ErrNotFound is returned when no session has the requested ID.
var ErrNotFound = errors.New("store: session not found")

// Schema is the DDL for the session archive.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id           TEXT PRIMARY KEY,
    page_url     TEXT NOT NULL,
    started_at   INTEGER NOT NULL,
    stopped_at   INTEGER NOT NULL,
    action_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);

CREATE TABLE IF NOT EXISTS actions (
    session_id TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    type       TEXT NOT NULL,
    timestamp  INTEGER NOT NULL,
    selector   TEXT NOT NULL,
    url        TEXT NOT NULL,
    data       TEXT NOT NULL,
    PRIMARY KEY (session_id, seq),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_actions_type ON actions(type);
`

// Store is the archive database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the archive at path and applies Schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Save writes a session and its actions, replacing any session already
// stored under the same ID.
func (s *Store) Save(ctx context.Context, sess action.Session) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE session_id = ?`, sess.ID); err != nil {
			return fmt.Errorf("store: clear actions: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, page_url, started_at, stopped_at, action_count)
			VALUES (?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				page_url = excluded.page_url,
				started_at = excluded.started_at,
				stopped_at = excluded.stopped_at,
				action_count = excluded.action_count`,
			sess.ID, sess.PageURL, sess.StartedAt, sess.StoppedAt, len(sess.Actions))
		if err != nil {
			return fmt.Errorf("store: upsert session: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO actions (session_id, seq, type, timestamp, selector, url, data)
			VALUES (?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("store: prepare: %w", err)
		}
		defer stmt.Close()

		for i, a := range sess.Actions {
			data, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("store: encode action %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, sess.ID, i, string(a.Type), a.Timestamp, a.Selector, a.URL, string(data)); err != nil {
				return fmt.Errorf("store: insert action %d: %w", i, err)
			}
		}
		return nil
	})
}

// Get returns the session with its actions in capture order.
func (s *Store) Get(ctx context.Context, id string) (*action.Session, error) {
	var sess action.Session
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, page_url, started_at, stopped_at
		FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &sess.PageURL, &sess.StartedAt, &sess.StoppedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT data FROM actions WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("store: query actions: %w", err)
	}
	defer rows.Close()

	var actions []action.Action
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan action: %w", err)
		}
		var a action.Action
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("store: decode action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read actions: %w", err)
	}

	out := action.NewSession(sess.ID, sess.PageURL, sess.StartedAt, sess.StoppedAt, actions)
	return &out, nil
}

// List returns session headers, newest first. Actions are not loaded;
// ActionCount carries the size of each log. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]action.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, page_url, started_at, stopped_at, action_count
		FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	out := []action.Session{}
	for rows.Next() {
		var sess action.Session
		if err := rows.Scan(&sess.ID, &sess.PageURL, &sess.StartedAt, &sess.StoppedAt, &sess.ActionCount); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Delete removes a session and its actions.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByType tallies the archived actions of a session per event type.
func (s *Store) CountByType(ctx context.Context, id string) (map[action.Type]int, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM actions WHERE session_id = ? GROUP BY type`, id)
	if err != nil {
		return nil, fmt.Errorf("store: count actions: %w", err)
	}
	defer rows.Close()

	out := make(map[action.Type]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("store: scan count: %w", err)
		}
		out[action.Type(typ)] = n
	}
	return out, rows.Err()
}
