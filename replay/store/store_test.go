package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Compile-time interface checks.
var (
	_ Store = (*MemStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MySQLStore)(nil)
)

func transcript(session string, pass int, outcome string) Transcript {
	return Transcript{
		SessionID: session,
		Pass:      pass,
		Outcome:   outcome,
		Trigger:   "step-backward",
		Entries: []Entry{
			{Name: "insert", Args: []any{"K"}, StopStep: 4},
			{Name: "insert", Args: []any{"A"}, StopStep: pass},
		},
		Steps:       7,
		Fingerprint: fmt.Sprintf("%064d", pass),
		CreatedAt:   time.Unix(1700000000+int64(pass), 0),
	}
}

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func factories() []storeFactory {
	return []storeFactory{
		{name: "MemStore", open: func(t *testing.T) Store { return NewMemStore() }},
		{name: "SQLiteStore", open: func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "transcripts.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore failed: %v", err)
			}
			return s
		}},
		{name: "MySQLStore", open: func(t *testing.T) Store {
			dsn := os.Getenv("TEST_MYSQL_DSN")
			if dsn == "" {
				t.Skip("Skipping MySQL test: set TEST_MYSQL_DSN to run")
			}
			s, err := NewMySQLStore(dsn)
			if err != nil {
				t.Fatalf("NewMySQLStore failed: %v", err)
			}
			t.Cleanup(func() {
				_, _ = s.db.Exec("DELETE FROM replay_transcripts WHERE session_id LIKE 'test-%'")
			})
			return s
		}},
	}
}

// TestStoreContract runs the same expectations against every implementation.
func TestStoreContract(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer func() { _ = s.Close() }()

			session := fmt.Sprintf("test-%d", time.Now().UnixNano())

			t.Run("empty session", func(t *testing.T) {
				list, err := s.ListTranscripts(ctx, session)
				if err != nil {
					t.Fatalf("ListTranscripts failed: %v", err)
				}
				if len(list) != 0 {
					t.Errorf("expected no transcripts, got %d", len(list))
				}
				if _, err := s.LatestTranscript(ctx, session); !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			})

			t.Run("save and list in pass order", func(t *testing.T) {
				for _, pass := range []int{2, 1, 3} {
					if err := s.SaveTranscript(ctx, transcript(session, pass, "complete")); err != nil {
						t.Fatalf("SaveTranscript(%d) failed: %v", pass, err)
					}
				}
				list, err := s.ListTranscripts(ctx, session)
				if err != nil {
					t.Fatalf("ListTranscripts failed: %v", err)
				}
				if len(list) != 3 {
					t.Fatalf("expected 3 transcripts, got %d", len(list))
				}
				for i, tr := range list {
					if tr.Pass != i+1 {
						t.Errorf("expected pass %d at index %d, got %d", i+1, i, tr.Pass)
					}
				}
				got := list[0]
				if got.Outcome != "complete" || got.Trigger != "step-backward" || got.Steps != 7 {
					t.Errorf("unexpected transcript: %+v", got)
				}
				if len(got.Entries) != 2 || got.Entries[0].Name != "insert" || got.Entries[0].StopStep != 4 {
					t.Errorf("entries not preserved: %+v", got.Entries)
				}
				if !got.CreatedAt.Equal(time.Unix(1700000001, 0)) {
					t.Errorf("expected created_at preserved, got %v", got.CreatedAt)
				}
			})

			t.Run("latest", func(t *testing.T) {
				latest, err := s.LatestTranscript(ctx, session)
				if err != nil {
					t.Fatalf("LatestTranscript failed: %v", err)
				}
				if latest.Pass != 3 {
					t.Errorf("expected pass 3, got %d", latest.Pass)
				}
			})

			t.Run("duplicate pass", func(t *testing.T) {
				err := s.SaveTranscript(ctx, transcript(session, 2, "rewind"))
				if !errors.Is(err, ErrDuplicate) {
					t.Errorf("expected ErrDuplicate, got %v", err)
				}
			})

			t.Run("sessions", func(t *testing.T) {
				other := session + "-b"
				tr := transcript(other, 1, "fatal")
				tr.CreatedAt = time.Unix(1800000000, 0)
				if err := s.SaveTranscript(ctx, tr); err != nil {
					t.Fatalf("SaveTranscript failed: %v", err)
				}
				ids, err := s.Sessions(ctx)
				if err != nil {
					t.Fatalf("Sessions failed: %v", err)
				}
				idx := map[string]int{}
				for i, id := range ids {
					idx[id] = i
				}
				a, okA := idx[session]
				b, okB := idx[other]
				if !okA || !okB {
					t.Fatalf("expected both sessions, got %v", ids)
				}
				if a > b {
					t.Errorf("expected %s before %s, got %v", session, other, ids)
				}
			})

			t.Run("closed", func(t *testing.T) {
				if err := s.Close(); err != nil {
					t.Fatalf("Close failed: %v", err)
				}
				if err := s.Close(); err != nil {
					t.Errorf("double Close should be a no-op, got %v", err)
				}
				if err := s.SaveTranscript(ctx, transcript(session, 9, "complete")); !errors.Is(err, ErrClosed) {
					t.Errorf("expected ErrClosed, got %v", err)
				}
			})
		})
	}
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.SaveTranscript(ctx, transcript("s", 1, "complete")); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	list, _ := s.ListTranscripts(ctx, "s")
	list[0].Entries[0].Name = "mutated"
	list[0].Entries[0].Args[0] = "Z"

	latest, _ := s.LatestTranscript(ctx, "s")
	if latest.Entries[0].Name != "insert" || latest.Entries[0].Args[0] != "K" {
		t.Errorf("stored transcript was mutated: %+v", latest.Entries[0])
	}
}

func TestMemStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(pass int) {
			defer wg.Done()
			if err := s.SaveTranscript(ctx, transcript("s", pass, "complete")); err != nil {
				t.Errorf("SaveTranscript(%d) failed: %v", pass, err)
			}
		}(i)
	}
	wg.Wait()

	list, _ := s.ListTranscripts(ctx, "s")
	if len(list) != 20 {
		t.Fatalf("expected 20 transcripts, got %d", len(list))
	}
	for i, tr := range list {
		if tr.Pass != i+1 {
			t.Errorf("expected ordered passes, got %d at %d", tr.Pass, i)
		}
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.SaveTranscript(ctx, transcript("s", 1, "complete")); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if s.Path() != path {
		t.Errorf("expected path %q, got %q", path, s.Path())
	}
	_ = s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	latest, err := s.LatestTranscript(ctx, "s")
	if err != nil {
		t.Fatalf("LatestTranscript failed: %v", err)
	}
	if latest.Fingerprint != transcript("s", 1, "").Fingerprint {
		t.Errorf("fingerprint not persisted: %q", latest.Fingerprint)
	}
}
