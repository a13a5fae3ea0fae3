// Package storage persists run history and relocation records in SQLite.
// History is reporting only; the pipeline never consults it for decisions.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles persistence of curation runs.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Run is one completed dedupe or filter run.
type Run struct {
	ID         int64
	Directory  string
	Mode       string
	Kept       int
	Moved      int
	BytesMoved int64
	CreatedAt  time.Time
}

// Relocation is one file moved during a run.
type Relocation struct {
	Layer        string
	Source       string
	Dest         string
	CaptionMoved bool
	SizeBytes    int64
}

// Open creates a Store backed by the database at dbPath, creating the file
// and schema as needed.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		directory TEXT NOT NULL,
		mode TEXT NOT NULL,
		kept INTEGER NOT NULL,
		moved INTEGER NOT NULL,
		bytes_moved INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS relocations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		layer TEXT NOT NULL,
		source TEXT NOT NULL,
		dest TEXT NOT NULL,
		caption_moved INTEGER DEFAULT 0,
		size_bytes INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_relocations_run_id ON relocations(run_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (1)`)
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun saves a run and its relocations in one transaction, returning
// the new run ID.
func (s *Store) RecordRun(run Run, relocations []Relocation) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (directory, mode, kept, moved, bytes_moved)
		VALUES (?, ?, ?, ?, ?)
	`, run.Directory, run.Mode, run.Kept, run.Moved, run.BytesMoved)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO relocations (run_id, layer, source, dest, caption_moved, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rel := range relocations {
		captionMoved := 0
		if rel.CaptionMoved {
			captionMoved = 1
		}
		if _, err := stmt.Exec(runID, rel.Layer, rel.Source, rel.Dest, captionMoved, rel.SizeBytes); err != nil {
			return 0, fmt.Errorf("failed to insert relocation %s: %w", rel.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first. A limit of zero or
// less returns all runs.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, directory, mode, kept, moved, bytes_moved, created_at
		FROM runs
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Directory, &run.Mode, &run.Kept,
			&run.Moved, &run.BytesMoved, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Relocations returns the relocation records for one run.
func (s *Store) Relocations(runID int64) ([]Relocation, error) {
	rows, err := s.db.Query(`
		SELECT layer, source, dest, caption_moved, size_bytes
		FROM relocations
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relocations: %w", err)
	}
	defer rows.Close()

	var relocations []Relocation
	for rows.Next() {
		var rel Relocation
		var captionMoved int
		if err := rows.Scan(&rel.Layer, &rel.Source, &rel.Dest, &captionMoved, &rel.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rel.CaptionMoved = captionMoved == 1
		relocations = append(relocations, rel)
	}

	return relocations, rows.Err()
}
