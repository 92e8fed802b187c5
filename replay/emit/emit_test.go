package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func sample(msg string, step int) Event {
	return Event{
		SessionID: "s-1",
		Pass:      2,
		Action:    1,
		Operation: "insert",
		Step:      step,
		Msg:       msg,
		Meta:      map[string]interface{}{"stop_step": step},
	}
}

// Compile-time interface checks.
var (
	_ Emitter = (*LogEmitter)(nil)
	_ Emitter = (*BufferedEmitter)(nil)
	_ Emitter = (*NullEmitter)(nil)
	_ Emitter = (*OTelEmitter)(nil)
	_ Emitter = (*SlogEmitter)(nil)
	_ Emitter = Multi(nil)
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogEmitter(&buf, false).Emit(sample("suspended", 2))

		out := buf.String()
		for _, want := range []string{"[suspended]", "session=s-1", "pass=2", "op=insert", "step=2", `"stop_step":2`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got: %s", want, out)
			}
		}
	})

	t.Run("json mode", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(&buf, true)
		emitter.Emit(sample("suspended", 1))
		emitter.Emit(sample("resumed", 2))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["msg"] != "resumed" {
			t.Errorf("expected msg resumed, got %v", decoded["msg"])
		}
		if decoded["op"] != "insert" {
			t.Errorf("expected op insert, got %v", decoded["op"])
		}
	})
}

func TestBufferedEmitter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(sample("suspended", 0))
	b.Emit(sample("resumed", 1))
	b.Emit(sample("suspended", 1))
	other := sample("rewind", 0)
	other.SessionID = "s-2"
	b.Emit(other)

	if got := len(b.GetHistory("s-1")); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
	if got := b.Count("s-1", "suspended"); got != 2 {
		t.Errorf("expected 2 suspended events, got %d", got)
	}

	minStep := 1
	filtered := b.GetHistoryWithFilter("s-1", HistoryFilter{Msg: "suspended", MinStep: &minStep})
	if len(filtered) != 1 || filtered[0].Step != 1 {
		t.Errorf("expected one suspended event at step 1, got %+v", filtered)
	}

	if got := b.GetHistory("missing"); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}

	history := b.GetHistory("s-1")
	history[0].Msg = "mutated"
	if b.GetHistory("s-1")[0].Msg != "suspended" {
		t.Error("GetHistory must return a copy")
	}

	b.Clear("s-1")
	if len(b.GetHistory("s-1")) != 0 || len(b.GetHistory("s-2")) != 1 {
		t.Error("Clear(sessionID) should only drop that session")
	}
	b.Clear("")
	if len(b.GetHistory("s-2")) != 0 {
		t.Error("Clear(\"\") should drop every session")
	}
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	b := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Emit(sample("step_skipped", step))
			}
		}(i)
	}
	wg.Wait()
	if got := len(b.GetHistory("s-1")); got != 400 {
		t.Errorf("expected 400 events, got %d", got)
	}
}

func TestNullAndMulti(t *testing.T) {
	NewNullEmitter().Emit(sample("suspended", 0))

	a, c := NewBufferedEmitter(), NewBufferedEmitter()
	m := NewMulti(a, nil, c)
	if len(m) != 2 {
		t.Fatalf("expected nil emitters to be skipped, got %d", len(m))
	}
	m.Emit(sample("rewind", 3))
	if a.Count("s-1", "rewind") != 1 || c.Count("s-1", "rewind") != 1 {
		t.Error("expected event fanned out to both emitters")
	}
}

func TestSlogEmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	emitter := NewSlogEmitter(logger)

	emitter.Emit(sample("suspended", 1))
	if buf.Len() != 0 {
		t.Errorf("expected debug-level event to be filtered, got: %s", buf.String())
	}

	fatal := sample("fatal", 1)
	fatal.Meta = map[string]interface{}{"error": "boom"}
	emitter.Emit(fatal)

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["level"] != "ERROR" || rec["msg"] != "fatal" || rec["error"] != "boom" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestOTelEmitter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	emitter := NewOTelEmitter(tp.Tracer("test"))
	emitter.Emit(sample("suspended", 2))

	fatal := sample("fatal", 0)
	fatal.Meta = map[string]interface{}{"error": "boom"}
	if err := emitter.EmitBatch(context.Background(), []Event{fatal}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "suspended" {
		t.Errorf("span name = %q, want suspended", spans[0].Name)
	}
	attrs := attributeMap(spans[0].Attributes)
	if got := attrs["algoreplay.session_id"]; got != "s-1" {
		t.Errorf("session_id = %v, want s-1", got)
	}
	if got := attrs["algoreplay.step"]; got != int64(2) {
		t.Errorf("step = %v, want 2", got)
	}
	if got := attrs["algoreplay.meta.stop_step"]; got != int64(2) {
		t.Errorf("meta.stop_step = %v, want 2", got)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[1].Status.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := emitter.EmitBatch(ctx, []Event{fatal}); err == nil {
		t.Error("expected cancelled context to stop the batch")
	}
	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
}

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
