package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// MemStore is thread-safe. Data is lost when the process exits.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string][]Transcript // sessionID -> transcripts ordered by pass
	order    []string                // session IDs in first-seen order
	closed   bool
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string][]Transcript),
	}
}

// SaveTranscript stores a copy of t.
func (m *MemStore) SaveTranscript(_ context.Context, t Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	list, seen := m.sessions[t.SessionID]
	for _, existing := range list {
		if existing.Pass == t.Pass {
			return ErrDuplicate
		}
	}
	if !seen {
		m.order = append(m.order, t.SessionID)
	}

	t.Entries = copyEntries(t.Entries)
	list = append(list, t)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Pass < list[j].Pass })
	m.sessions[t.SessionID] = list
	return nil
}

// ListTranscripts returns copies of the transcripts for sessionID.
func (m *MemStore) ListTranscripts(_ context.Context, sessionID string) ([]Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	list := m.sessions[sessionID]
	out := make([]Transcript, len(list))
	for i, t := range list {
		t.Entries = copyEntries(t.Entries)
		out[i] = t
	}
	return out, nil
}

// LatestTranscript returns the highest pass recorded for sessionID.
func (m *MemStore) LatestTranscript(_ context.Context, sessionID string) (Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Transcript{}, ErrClosed
	}

	list := m.sessions[sessionID]
	if len(list) == 0 {
		return Transcript{}, ErrNotFound
	}
	t := list[len(list)-1]
	t.Entries = copyEntries(t.Entries)
	return t, nil
}

// Sessions returns session IDs in the order they were first saved.
func (m *MemStore) Sessions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out, nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func copyEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.Args != nil {
			e.Args = append([]any(nil), e.Args...)
		}
		out[i] = e
	}
	return out
}
