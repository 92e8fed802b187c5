package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Use it when several animctl processes should share one transcript journal.
//
// Security Warning: never hardcode credentials; pass the DSN through the
// ANIMCTL_DB_DSN environment variable.
type MySQLStore struct {
	journal sqlJournal
	db      *sql.DB
	mu      sync.RWMutex
	closed  bool
}

// NewMySQLStore connects to dsn and creates the schema if needed.
//
// The DSN format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example:
//
//	user:password@tcp(localhost:3306)/algoreplay
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore{
		journal: sqlJournal{db: db, isDuplicate: isMySQLDuplicate},
		db:      db,
	}

	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return m, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	transcripts := `
		CREATE TABLE IF NOT EXISTS replay_transcripts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL,
			pass INT NOT NULL,
			outcome VARCHAR(32) NOT NULL,
			trigger_name VARCHAR(32) NOT NULL DEFAULT '',
			entries JSON NOT NULL,
			steps INT NOT NULL,
			fingerprint VARCHAR(80) NOT NULL,
			created_at BIGINT NOT NULL,
			UNIQUE KEY unique_session_pass (session_id, pass),
			INDEX idx_created (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, transcripts); err != nil {
		return fmt.Errorf("failed to create replay_transcripts table: %w", err)
	}
	return nil
}

func isMySQLDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func (m *MySQLStore) check() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// SaveTranscript inserts t.
func (m *MySQLStore) SaveTranscript(ctx context.Context, t Transcript) error {
	if err := m.check(); err != nil {
		return err
	}
	return m.journal.save(ctx, t)
}

// ListTranscripts returns the transcripts of sessionID ordered by pass.
func (m *MySQLStore) ListTranscripts(ctx context.Context, sessionID string) ([]Transcript, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.journal.list(ctx, sessionID)
}

// LatestTranscript returns the highest pass of sessionID.
func (m *MySQLStore) LatestTranscript(ctx context.Context, sessionID string) (Transcript, error) {
	if err := m.check(); err != nil {
		return Transcript{}, err
	}
	return m.journal.latest(ctx, sessionID)
}

// Sessions returns every session ID, oldest first.
func (m *MySQLStore) Sessions(ctx context.Context) ([]string, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.journal.sessions(ctx)
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.check(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}

// Close closes the connection pool. Double-close is a no-op.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}
