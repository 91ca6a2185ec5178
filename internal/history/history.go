// Package history keeps an append-mostly audit trail of fetch outcomes in
// SQLite. It exists for inspection and resumability diagnostics; the JSON
// ledger stays the single source of truth for tag status.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/MyUncle/ytLocalPlaylist/internal/util"
)

const currentSchemaVersion = 1

// Store is the SQLite-backed fetch history
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (1)"); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Future migrations would go here:
	// if version < 2 { ... }

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// Fetch is one recorded fetch outcome
type Fetch struct {
	ID           int64
	InvocationID string
	Playlist     string
	SongID       string
	BytesWritten int64
	Error        string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// RecordFetch inserts one fetch outcome
func (s *Store) RecordFetch(f *Fetch) error {
	result, err := s.db.Exec(`
		INSERT INTO fetches (invocation_id, playlist, song_id, bytes_written, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.InvocationID, f.Playlist, f.SongID, f.BytesWritten, f.Error, f.StartedAt, f.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		f.ID = id
	}

	return nil
}

// RecordItem implements the pipeline's audit sink. A history write must
// never fail a download, so errors are logged and dropped.
func (s *Store) RecordItem(invocationID, playlistName, songID string, bytes int64, started, completed time.Time, itemErr error) {
	errMsg := ""
	if itemErr != nil {
		errMsg = itemErr.Error()
	}

	f := &Fetch{
		InvocationID: invocationID,
		Playlist:     playlistName,
		SongID:       songID,
		BytesWritten: bytes,
		Error:        errMsg,
		StartedAt:    started,
		CompletedAt:  completed,
	}

	if err := s.RecordFetch(f); err != nil {
		util.WarnLog("Failed to record fetch history for %s: %v", songID, err)
	}
}

// RecentFetches returns the most recent fetch records, newest first
func (s *Store) RecentFetches(limit int) ([]*Fetch, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, invocation_id, playlist, song_id, bytes_written, COALESCE(error, ''),
		       started_at, completed_at
		FROM fetches
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer rows.Close()

	var fetches []*Fetch
	for rows.Next() {
		f := &Fetch{}
		err := rows.Scan(
			&f.ID, &f.InvocationID, &f.Playlist, &f.SongID, &f.BytesWritten, &f.Error,
			&f.StartedAt, &f.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		fetches = append(fetches, f)
	}

	return fetches, rows.Err()
}

// CountSucceeded returns the number of recorded successful fetches
func (s *Store) CountSucceeded() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM fetches WHERE error = '' OR error IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fetches: %w", err)
	}
	return count, nil
}

// TotalBytesWritten returns the total bytes written by successful fetches
func (s *Store) TotalBytesWritten() (int64, error) {
	var total int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(bytes_written), 0) FROM fetches WHERE error = '' OR error IS NULL
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum bytes: %w", err)
	}
	return total, nil
}
