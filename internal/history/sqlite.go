package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB implements Recorder on SQLite (modernc.org/sqlite, CGO-free).
// Path is a filesystem path; use ":memory:" for tests.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty history db path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if p == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		d.SetMaxOpenConns(1)
	}
	// busy timeout covers short concurrent writes from monitor and CLI
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	h := &DB{db: d}
	if err := h.EnsureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return h, nil
}

func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lifecycle_events(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			kind TEXT NOT NULL,
			savefile TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_name ON lifecycle_events(name);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_occurred ON lifecycle_events(occurred_at);`,
	}
	for _, q := range stmts {
		if _, err := d.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Record(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events(name, pid, kind, savefile, detail, occurred_at)
		VALUES(?, ?, ?, ?, ?, ?);`,
		ev.Name, ev.PID, ev.Kind, ev.SaveFile, ev.Detail, ev.OccurredAt.UTC())
	return err
}

// ByName returns the most recent events for one configuration name.
func (d *DB) ByName(ctx context.Context, name string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, pid, kind, savefile, detail, occurred_at
		FROM lifecycle_events
		WHERE name=?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// Recent returns the most recent events across all configurations.
func (d *DB) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, pid, kind, savefile, detail, occurred_at
		FROM lifecycle_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// PurgeOlderThan deletes events older than the cutoff and reports how many
// rows went away.
func (d *DB) PurgeOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM lifecycle_events WHERE occurred_at < ?;`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	out := make([]Event, 0)
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.PID, &ev.Kind, &ev.SaveFile, &ev.Detail, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
