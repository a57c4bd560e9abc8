// Package journal keeps a SQLite history of batch runs and the notes each
// run touched.
package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at       DATETIME NOT NULL,
	finished_at      DATETIME,
	state            TEXT NOT NULL DEFAULT '',
	format           TEXT NOT NULL DEFAULT '',
	planned          INTEGER NOT NULL DEFAULT 0,
	applied          INTEGER NOT NULL DEFAULT 0,
	restored         INTEGER NOT NULL DEFAULT 0,
	restore_failures INTEGER NOT NULL DEFAULT 0,
	error            TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_notes (
	run_id            INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	path              TEXT NOT NULL,
	namespace         TEXT NOT NULL DEFAULT '',
	original_checksum TEXT NOT NULL DEFAULT '',
	new_checksum      TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	UNIQUE(run_id, path)
);

CREATE INDEX IF NOT EXISTS idx_run_notes_run ON run_notes(run_id);
`

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
