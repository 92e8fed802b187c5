// Package store persists replay transcripts: an append-only journal of the
// passes an engine ran. Transcripts are never used to restore a timeline.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested session has no transcripts.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store is closed")

// ErrDuplicate is returned when a transcript for the same session and pass
// was already saved.
var ErrDuplicate = errors.New("transcript already recorded")

// Store persists transcripts.
//
// Implementations:
//   - MemStore: in memory, for tests and single-process sessions
//   - SQLiteStore: single file database via modernc.org/sqlite
//   - MySQLStore: shared database via go-sql-driver/mysql
type Store interface {
	// SaveTranscript appends a transcript. Returns ErrDuplicate when the
	// (SessionID, Pass) pair is already recorded.
	SaveTranscript(ctx context.Context, t Transcript) error

	// ListTranscripts returns every transcript of sessionID ordered by pass.
	// An unknown session yields an empty slice, not an error.
	ListTranscripts(ctx context.Context, sessionID string) ([]Transcript, error)

	// LatestTranscript returns the transcript with the highest pass for
	// sessionID, or ErrNotFound.
	LatestTranscript(ctx context.Context, sessionID string) (Transcript, error)

	// Sessions returns every recorded session ID, oldest first.
	Sessions(ctx context.Context) ([]string, error)

	// Close releases resources. Calling Close twice is a no-op.
	Close() error
}

// Entry is one ActionLog entry as it stood when a pass ended.
type Entry struct {
	Name     string `json:"name"`
	Args     []any  `json:"args,omitempty"`
	StopStep int    `json:"stop_step"`
}

// Transcript records one replay pass.
type Transcript struct {
	// SessionID identifies the engine that ran the pass.
	SessionID string `json:"session_id"`

	// Pass is the engine pass number (1-indexed, unique per session).
	Pass int `json:"pass"`

	// Outcome is how the pass ended: complete, rewind, fatal or cancelled.
	Outcome string `json:"outcome"`

	// Trigger names the control that started the pass, if any.
	Trigger string `json:"trigger,omitempty"`

	// Entries is the ActionLog after the pass.
	Entries []Entry `json:"entries"`

	// Steps counts every suspension point reached during the pass.
	Steps int `json:"steps"`

	// Fingerprint is a SHA-256 over Entries and the final scene.
	Fingerprint string `json:"fingerprint"`

	CreatedAt time.Time `json:"created_at"`
}
