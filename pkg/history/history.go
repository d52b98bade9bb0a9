// Package history keeps a local execution log in SQLite. Every request
// the runner sends gets one row, so past responses can be reviewed with
// `hornet history` after the TUI exits.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CollectionKey derives the log key for a collection from its directory
// path or name: the base path element. Keying by the directory keeps
// history findable after the collection's display name is renamed.
func CollectionKey(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}

// Entry is one recorded execution.
type Entry struct {
	ID          int64
	Collection  string
	RequestPath string // slash-joined path below the collection root
	Method      string
	URL         string
	StatusCode  int
	Size        int64
	Duration    time.Duration
	ExecutedAt  time.Time
}

// Log is an append-only execution log backed by one SQLite file.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the log at path.
func Open(ctx context.Context, path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	// WAL enables one writer + many readers; busy_timeout avoids
	// "database is locked" flakiness when two hornet processes share a
	// log.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Log{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			request_path TEXT NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			size_bytes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			executed_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_executions_request ON executions(collection, request_path, executed_at_unixms);`,
		`CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(executed_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Append records one execution.
func (l *Log) Append(ctx context.Context, e Entry) error {
	at := e.ExecutedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO executions(collection, request_path, method, url, status_code, size_bytes, duration_ms, executed_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Collection, e.RequestPath, e.Method, e.URL, e.StatusCode, e.Size,
		e.Duration.Milliseconds(), at.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Recent returns the newest entries first, at most limit of them; a
// non-empty requestPath narrows the query to one request.
func (l *Log) Recent(ctx context.Context, collection, requestPath string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, collection, request_path, method, url, status_code, size_bytes, duration_ms, executed_at_unixms
	      FROM executions WHERE collection = ?`
	args := []any{collection}
	if requestPath != "" {
		q += ` AND request_path = ?`
		args = append(args, requestPath)
	}
	q += ` ORDER BY executed_at_unixms DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durMs, atMs int64
		if err := rows.Scan(&e.ID, &e.Collection, &e.RequestPath, &e.Method, &e.URL,
			&e.StatusCode, &e.Size, &durMs, &atMs); err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.ExecutedAt = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return out, nil
}

// Prune deletes entries older than the cutoff and reports how many rows
// went away.
func (l *Log) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM executions WHERE executed_at_unixms < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

// Close releases the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
