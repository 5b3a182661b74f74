// Package cache maintains a local sqlite index of the tasks file.
//
// The tasks file on the sync branch is the source of truth; the index is a
// disposable query cache rebuilt from it, kept under .cub/ for fast status
// and list queries. The database is embedded SQLite with WAL mode so
// concurrent readers never block a rebuild.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lavallee/cub/internal/task"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the sqlite connection holding the task index.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the task index at path.
//
// The caller must call Close when done.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping index: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	db.conn = nil
	return nil
}

// initSchema creates the index tables. Idempotent.
func (db *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		raw TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_updated ON tasks(updated_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}
	return nil
}

// ReplaceAll rebuilds the index from the given tasks in one transaction,
// recording the commit the tasks came from.
func (db *DB) ReplaceAll(ctx context.Context, tasks []task.Task, commitSHA string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, title, status, updated_at, raw)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		_, err := stmt.ExecContext(ctx,
			t.ID,
			t.Title,
			t.Status,
			t.UpdatedAt.Format(time.RFC3339),
			string(t.Raw),
		)
		if err != nil {
			return fmt.Errorf("failed to index task %s: %w", t.ID, err)
		}
	}

	upsert := `
	INSERT INTO meta (key, value) VALUES ('commit_sha', ?), ('indexed_at', ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := tx.ExecContext(ctx, upsert, commitSHA, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record index metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index rebuild: %w", err)
	}
	return nil
}

// IndexedCommit returns the commit the index was last rebuilt from,
// or "" when the index has never been built.
func (db *DB) IndexedCommit(ctx context.Context) (string, error) {
	var sha string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'commit_sha'").Scan(&sha)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read index metadata: %w", err)
	}
	return sha, nil
}

// Count returns the number of indexed tasks.
func (db *DB) Count(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// CountByStatus returns indexed task counts grouped by status.
func (db *DB) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

// ListTasks returns indexed tasks, optionally filtered by status,
// ordered by updated_at descending then ID.
func (db *DB) ListTasks(ctx context.Context, status string) ([]task.Task, error) {
	query := `
	SELECT id, title, status, updated_at, raw
	FROM tasks
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC, id ASC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		var updatedAt, raw string
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &updatedAt, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			t.UpdatedAt = ts
		}
		t.Raw = []byte(raw)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
