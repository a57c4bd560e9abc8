package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/namespacer/internal/apperr"
)

// Note statuses recorded per run.
const (
	StatusPlanned       = "planned"
	StatusApplied       = "applied"
	StatusRestored      = "restored"
	StatusRestoreFailed = "restore_failed"
)

// Run is one row of the runs table.
type Run struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	State           string     `json:"state"`
	Format          string     `json:"format"`
	Planned         int        `json:"planned"`
	Applied         int        `json:"applied"`
	Restored        int        `json:"restored"`
	RestoreFailures int        `json:"restore_failures"`
	Error           string     `json:"error,omitempty"`
}

// NoteEntry is one row of the run_notes table.
type NoteEntry struct {
	Path             string `json:"path"`
	Namespace        string `json:"namespace"`
	OriginalChecksum string `json:"original_checksum"`
	NewChecksum      string `json:"new_checksum"`
	Status           string `json:"status"`
}

// BeginRun inserts a new run and returns its id.
func (db *DB) BeginRun(r Run) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO runs (started_at, state, format, planned)
		VALUES (?, ?, ?, ?)
	`, r.StartedAt, r.State, r.Format, r.Planned)
	if err != nil {
		return 0, fmt.Errorf("journal: begin run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final state and counters of a run.
func (db *DB) FinishRun(r Run) error {
	finished := time.Now()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}
	_, err := db.conn.Exec(`
		UPDATE runs SET
			finished_at      = ?,
			state            = ?,
			planned          = ?,
			applied          = ?,
			restored         = ?,
			restore_failures = ?,
			error            = ?
		WHERE id = ?
	`, finished, r.State, r.Planned, r.Applied, r.Restored, r.RestoreFailures, r.Error, r.ID)
	if err != nil {
		return fmt.Errorf("journal: finish run %d: %w", r.ID, err)
	}
	return nil
}

// RecordNote inserts or updates the entry for path within a run. Empty
// checksum and namespace fields keep their previous values.
func (db *DB) RecordNote(runID int64, n NoteEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO run_notes (run_id, path, namespace, original_checksum, new_checksum, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			namespace         = COALESCE(NULLIF(excluded.namespace, ''), namespace),
			original_checksum = COALESCE(NULLIF(excluded.original_checksum, ''), original_checksum),
			new_checksum      = COALESCE(NULLIF(excluded.new_checksum, ''), new_checksum),
			status            = excluded.status
	`, runID, n.Path, n.Namespace, n.OriginalChecksum, n.NewChecksum, n.Status)
	if err != nil {
		return fmt.Errorf("journal: record note %s: %w", n.Path, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, started_at, finished_at, state, format, planned, applied, restored, restore_failures, error
		FROM runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Run returns a single run, or apperr.ErrNotFound.
func (db *DB) Run(id int64) (*Run, error) {
	row := db.conn.QueryRow(`
		SELECT id, started_at, finished_at, state, format, planned, applied, restored, restore_failures, error
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return r, err
}

// RunNotes returns the note entries of a run in path order.
func (db *DB) RunNotes(runID int64) ([]NoteEntry, error) {
	rows, err := db.conn.Query(`
		SELECT path, namespace, original_checksum, new_checksum, status
		FROM run_notes WHERE run_id = ? ORDER BY path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: run notes: %w", err)
	}
	defer rows.Close()

	var out []NoteEntry
	for rows.Next() {
		var n NoteEntry
		if err := rows.Scan(&n.Path, &n.Namespace, &n.OriginalChecksum, &n.NewChecksum, &n.Status); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.StartedAt, &finished, &r.State, &r.Format,
		&r.Planned, &r.Applied, &r.Restored, &r.RestoreFailures, &r.Error); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
