package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dshills/algoreplay/replay/store"
)

func TestActionLog(t *testing.T) {
	var log ActionLog

	if _, ok := log.PopLast(); ok {
		t.Error("PopLast on empty log should report false")
	}
	if _, ok := log.Last(); ok {
		t.Error("Last on empty log should report false")
	}

	args := []any{"K"}
	a := log.Append("insert", args, -3)
	if a.StopStep != 0 {
		t.Errorf("negative stop must clamp to 0, got %d", a.StopStep)
	}
	if _, ok := a.Finalized(); ok {
		t.Error("a new action has not been finalized")
	}
	args[0] = "mutated"
	if log.At(0).Args[0] != "K" {
		t.Error("Append must copy args")
	}

	log.Append("insert", []any{"A"}, 2)
	log.Append("delete", []any{"K"}, 1)
	if log.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", log.Len())
	}

	entries := log.Entries()
	entries[0].Args[0] = "changed"
	if log.At(0).Args[0] != "K" {
		t.Error("Entries must return a deep copy of args")
	}

	last, ok := log.PopLast()
	if !ok || last.Name != "delete" || last.StopStep != 1 {
		t.Errorf("unexpected PopLast result %+v", last)
	}
	if top, _ := log.Last(); top.Name != "insert" || top.Args[0] != "A" {
		t.Errorf("unexpected Last %+v", top)
	}

	log.Truncate(5)
	if log.Len() != 2 {
		t.Errorf("Truncate beyond length is a no-op, got %d", log.Len())
	}
	log.Truncate(1)
	if log.Len() != 1 {
		t.Errorf("expected 1 entry after Truncate(1), got %d", log.Len())
	}
	log.Clear()
	if log.Len() != 0 {
		t.Errorf("expected empty log, got %d", log.Len())
	}
}

func TestStatusEnabled(t *testing.T) {
	all := []Trigger{
		TriggerStepForward, TriggerStepBackward, TriggerToggleRun,
		TriggerFastForward, TriggerFastBackward, TriggerConfigure, TriggerExecute,
	}
	cases := []struct {
		name   string
		status Status
		want   map[Trigger]bool
	}{
		{
			name:   "idle empty log",
			status: Status{Mode: ModeIdle, Listening: true},
			want:   map[Trigger]bool{TriggerToggleRun: true, TriggerConfigure: true, TriggerExecute: true},
		},
		{
			name:   "idle with history",
			status: Status{Mode: ModeIdle, Listening: true, LogLen: 2},
			want: map[Trigger]bool{
				TriggerToggleRun: true, TriggerConfigure: true, TriggerExecute: true,
				TriggerStepBackward: true, TriggerFastBackward: true,
			},
		},
		{
			name:   "live",
			status: Status{Mode: ModeLive, Listening: true, LogLen: 1},
			want: map[Trigger]bool{
				TriggerStepForward: true, TriggerStepBackward: true, TriggerToggleRun: true,
				TriggerFastForward: true, TriggerFastBackward: true, TriggerConfigure: true,
			},
		},
		{
			name:   "replaying",
			status: Status{Mode: ModeReplaying, LogLen: 3},
			want:   map[Trigger]bool{},
		},
		{
			name:   "live without listeners",
			status: Status{Mode: ModeLive, LogLen: 1},
			want:   map[Trigger]bool{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, trig := range all {
				if got := tc.status.Enabled(trig); got != tc.want[trig] {
					t.Errorf("Enabled(%s) = %v, want %v", trig, got, tc.want[trig])
				}
			}
		})
	}
}

func TestTriggerParsing(t *testing.T) {
	for trig, name := range triggerNames {
		got, err := ParseTrigger(" " + strings.ToUpper(name) + " ")
		if err != nil || got != trig {
			t.Errorf("ParseTrigger(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseTrigger("rewind"); err == nil {
		t.Error("expected error for unknown trigger")
	}
	if s := Trigger(99).String(); s != "trigger(99)" {
		t.Errorf("unexpected String for unknown trigger: %q", s)
	}
}

func TestRewindIsError(t *testing.T) {
	var err error = &Rewind{Target: 2, Trigger: TriggerStepBackward}
	wrapped := fmt.Errorf("insert: %w", err)

	var rw *Rewind
	if !errors.As(wrapped, &rw) || rw.Target != 2 {
		t.Errorf("expected to recover the rewind, got %v", rw)
	}
	if err.Error() != "rewind to step 2 (step-backward)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParseKeymap(t *testing.T) {
	km, err := ParseKeymap("")
	if err != nil || len(km) != 5 || km["n"] != TriggerStepForward {
		t.Fatalf("expected default keymap, got %v, %v", km, err)
	}

	km, err = ParseKeymap("j=step-forward, k=step-backward")
	if err != nil {
		t.Fatalf("ParseKeymap failed: %v", err)
	}
	if km["j"] != TriggerStepForward || km["k"] != TriggerStepBackward {
		t.Errorf("unexpected bindings %v", km)
	}
	if _, ok := km["n"]; ok {
		t.Error("rebinding a trigger removes its default key")
	}
	if km["p"] != TriggerToggleRun {
		t.Error("unmentioned defaults are kept")
	}

	for _, bad := range []string{"x", "=step-forward", "x=execute", "x=timer", "x=nope"} {
		if _, err := ParseKeymap(bad); err == nil {
			t.Errorf("ParseKeymap(%q): expected error", bad)
		}
	}
}

func TestStepInterval(t *testing.T) {
	op := OperationFunc[*counter](countOp)

	if got := stepInterval(op, 0); got != DefaultInterval {
		t.Errorf("expected DefaultInterval, got %v", got)
	}
	if got := stepInterval(op, time.Second); got != time.Second {
		t.Errorf("expected engine interval, got %v", got)
	}
	if got := stepInterval(Paced[*counter](op, 10*time.Millisecond), time.Second); got != 10*time.Millisecond {
		t.Errorf("expected paced interval, got %v", got)
	}
	if got := stepInterval(Paced[*counter](op, 0), time.Second); got != time.Second {
		t.Errorf("zero policy falls back to engine interval, got %v", got)
	}
}

func TestPacedOperationRuns(t *testing.T) {
	h := startEngineWith(t, []Option{WithRunning(true), WithInterval(time.Hour)}, func(e *Engine[*counter]) {
		mustRegister(t, e, "quick", Paced[*counter](OperationFunc[*counter](countOp), time.Millisecond))
	})
	seq := h.e.Status().Epoch
	if err := h.ctl.Execute("quick", 3); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	h.wait(func(s Status) bool { return s.Idle() && s.Epoch > seq })
	if h.scene() != "size=1 values=[0 1 2]" {
		t.Errorf("unexpected scene %q", h.scene())
	}
}

func TestFingerprint(t *testing.T) {
	entries := []Action{NewAction("count", []any{2}, 2)}

	a, err := Fingerprint(entries, &counter{Size: 1, Values: []int{0, 1}})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, _ := Fingerprint(entries, &counter{Size: 1, Values: []int{0, 1}})
	if a != b || !strings.HasPrefix(a, "sha256:") {
		t.Errorf("expected stable prefixed fingerprint, got %q and %q", a, b)
	}

	c, _ := Fingerprint(entries, &counter{Size: 2, Values: []int{0, 1}})
	if c == a {
		t.Error("scene changes must change the fingerprint")
	}
	d, _ := Fingerprint([]Action{NewAction("count", []any{2}, 1)}, &counter{Size: 1, Values: []int{0, 1}})
	if d == a {
		t.Error("stop step changes must change the fingerprint")
	}

	// Scenes without Render fall back to JSON.
	type plain struct{ N int }
	if _, err := Fingerprint(nil, plain{N: 1}); err != nil {
		t.Errorf("JSON fallback failed: %v", err)
	}
	if _, err := Fingerprint(nil, func() {}); err == nil {
		t.Error("expected error for unencodable scene")
	}
}

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)

	m.RecordPass("complete", 12*time.Millisecond)
	m.IncrementSteps("live")
	m.IncrementRewinds(TriggerFastBackward)
	m.UpdateLogLength(4)

	if got := testutil.ToFloat64(m.passes.WithLabelValues("complete")); got != 1 {
		t.Errorf("expected 1 complete pass, got %v", got)
	}
	if got := testutil.ToFloat64(m.rewinds.WithLabelValues("fast-backward")); got != 1 {
		t.Errorf("expected 1 rewind, got %v", got)
	}
	if got := testutil.ToFloat64(m.logLength); got != 4 {
		t.Errorf("expected log length 4, got %v", got)
	}

	m.Disable()
	m.IncrementSteps("live")
	if got := testutil.ToFloat64(m.steps.WithLabelValues("live")); got != 1 {
		t.Errorf("disabled metrics must not record, got %v", got)
	}
	m.Enable()
	m.Reset()
	if got := testutil.ToFloat64(m.logLength); got != 0 {
		t.Errorf("Reset should zero the gauge, got %v", got)
	}

	var nilMetrics *PrometheusMetrics
	nilMetrics.IncrementSteps("live") // must not panic
}

func TestTranscriptsRecorded(t *testing.T) {
	st := store.NewMemStore()
	h := startEngine(t, WithStore(st))
	h.completeCount(2)
	h.do(h.ctl.StepBackward)
	h.do(h.ctl.FastForward)

	list, err := st.ListTranscripts(context.Background(), "test")
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(list))
	}
	if list[0].Outcome != "complete" || list[0].Trigger != "execute" || list[0].Entries[0].StopStep != 2 {
		t.Errorf("unexpected first transcript %+v", list[0])
	}
	if list[1].Trigger != "step-backward" || list[1].Pass != 2 {
		t.Errorf("unexpected second transcript %+v", list[1])
	}
}
