package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps transcripts in a single-file database and needs no setup, which
// makes it the default for `animctl --db-driver sqlite`.
//
// Schema:
//   - replay_transcripts: one row per (session_id, pass)
type SQLiteStore struct {
	journal sqlJournal
	db      *sql.DB
	mu      sync.RWMutex
	closed  bool
	path    string
}

// NewSQLiteStore opens (creating if needed) the database at path.
//
// The path parameter specifies the database file location:
//   - "./transcripts.db" - file in current directory
//   - ":memory:" - in-memory database (data lost on close)
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{
		journal: sqlJournal{db: db, isDuplicate: isSQLiteUnique},
		db:      db,
		path:    path,
	}

	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	transcripts := `
		CREATE TABLE IF NOT EXISTS replay_transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			pass INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			trigger_name TEXT NOT NULL DEFAULT '',
			entries TEXT NOT NULL,
			steps INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(session_id, pass)
		)
	`
	if _, err := s.db.ExecContext(ctx, transcripts); err != nil {
		return fmt.Errorf("failed to create replay_transcripts table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_transcripts_created ON replay_transcripts(created_at)`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func (s *SQLiteStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// SaveTranscript inserts t.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, t Transcript) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.journal.save(ctx, t)
}

// ListTranscripts returns the transcripts of sessionID ordered by pass.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, sessionID string) ([]Transcript, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.journal.list(ctx, sessionID)
}

// LatestTranscript returns the highest pass of sessionID.
func (s *SQLiteStore) LatestTranscript(ctx context.Context, sessionID string) (Transcript, error) {
	if err := s.check(); err != nil {
		return Transcript{}, err
	}
	return s.journal.latest(ctx, sessionID)
}

// Sessions returns every session ID, oldest first.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.journal.sessions(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database. Double-close is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
