package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Shared query text for the SQL stores. Both drivers accept '?' placeholders.
const (
	insertTranscriptSQL = `
		INSERT INTO replay_transcripts
			(session_id, pass, outcome, trigger_name, entries, steps, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectTranscriptColumns = `
		SELECT session_id, pass, outcome, trigger_name, entries, steps, fingerprint, created_at
		FROM replay_transcripts`

	listTranscriptsSQL  = selectTranscriptColumns + ` WHERE session_id = ? ORDER BY pass ASC`
	latestTranscriptSQL = selectTranscriptColumns + ` WHERE session_id = ? ORDER BY pass DESC LIMIT 1`

	listSessionsSQL = `
		SELECT session_id FROM replay_transcripts
		GROUP BY session_id
		ORDER BY MIN(created_at) ASC, session_id ASC`
)

// sqlJournal holds the query logic shared by SQLiteStore and MySQLStore.
type sqlJournal struct {
	db *sql.DB

	// isDuplicate reports whether err is a unique-key violation.
	isDuplicate func(error) bool
}

func (j sqlJournal) save(ctx context.Context, t Transcript) error {
	entries, err := json.Marshal(t.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = j.db.ExecContext(ctx, insertTranscriptSQL,
		t.SessionID, t.Pass, t.Outcome, t.Trigger, string(entries), t.Steps, t.Fingerprint, created.UnixNano())
	if err != nil {
		if j.isDuplicate != nil && j.isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (j sqlJournal) list(ctx context.Context, sessionID string) ([]Transcript, error) {
	rows, err := j.db.QueryContext(ctx, listTranscriptsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Transcript{}
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}
	return out, nil
}

func (j sqlJournal) latest(ctx context.Context, sessionID string) (Transcript, error) {
	t, err := scanTranscript(j.db.QueryRowContext(ctx, latestTranscriptSQL, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, ErrNotFound
	}
	return t, err
}

func (j sqlJournal) sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, listSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (Transcript, error) {
	var (
		t       Transcript
		entries string
		created int64
	)
	err := row.Scan(&t.SessionID, &t.Pass, &t.Outcome, &t.Trigger, &entries, &t.Steps, &t.Fingerprint, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcript{}, err
		}
		return Transcript{}, fmt.Errorf("failed to scan transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(entries), &t.Entries); err != nil {
		return Transcript{}, fmt.Errorf("failed to unmarshal entries: %w", err)
	}
	t.CreatedAt = time.Unix(0, created)
	return t, nil
}
