package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dshills/algoreplay/internal/config"
	"github.com/dshills/algoreplay/replay"
	"github.com/dshills/algoreplay/viz/bst"
	"github.com/dshills/algoreplay/viz/sorting"
)

// session is an engine with its scene type erased so commands can drive any
// visualization.
type session interface {
	Serve(ctx context.Context) error
	Controls() *replay.Controls
	Status() replay.Status
	WaitFor(ctx context.Context, pred func(replay.Status) bool) (replay.Status, error)
	SessionID() string

	// Resize changes the element size through a configuration change.
	Resize(n int) error

	// LastFrame returns the most recently rendered frame text.
	LastFrame() string
}

type vizSession[S any] struct {
	*replay.Engine[S]
	frames *frameWriter
	resize func(int)
}

func (s *vizSession[S]) Resize(n int) error {
	if n <= 0 {
		return fmt.Errorf("element size must be positive, got %d", n)
	}
	return s.Controls().Configure(func() { s.resize(n) })
}

func (s *vizSession[S]) LastFrame() string {
	return s.frames.last()
}

// frameWriter formats frames and optionally prints each one as it arrives.
type frameWriter struct {
	out   io.Writer
	print bool

	mu   sync.Mutex
	text string
}

func (w *frameWriter) last() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.text
}

// printf writes to the output under the frame lock so that messages from
// the input loop do not interleave with frames.
func (w *frameWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

func renderer[S any](w *frameWriter) func(replay.Frame[S]) {
	return func(f replay.Frame[S]) {
		text := formatFrame(f.Status, any(f.Scene))
		w.mu.Lock()
		defer w.mu.Unlock()
		w.text = text
		if w.print {
			fmt.Fprint(w.out, text)
		}
	}
}

func formatFrame(st replay.Status, scene any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- %s", st.Mode)
	if st.Mode == replay.ModeLive {
		stop := "end"
		if st.StopStep != replay.Unbounded {
			stop = fmt.Sprint(st.StopStep)
		}
		fmt.Fprintf(&b, " | %s #%d step %d (stop %s)", st.Operation, st.State.ActionIndex, st.State.Step, stop)
	}
	fmt.Fprintf(&b, " | log %d | pass %d", st.LogLen, st.Pass)
	if st.State.Running {
		b.WriteString(" | running")
	}
	b.WriteString("\n")
	if st.Message != "" {
		b.WriteString(st.Message + "\n")
	}
	if r, ok := scene.(replay.Renderable); ok {
		b.WriteString(r.Render())
	}
	return b.String()
}

func newSession(cfg config.Config, opts []replay.Option, frames *frameWriter) (session, error) {
	switch cfg.Visualization {
	case "bst":
		settings := &bst.Settings{ElementSize: cfg.ElementSize}
		e, err := replay.New(bst.NewScene(settings), append(opts, replay.WithRenderer(renderer[*bst.Tree](frames)))...)
		if err != nil {
			return nil, err
		}
		if err := bst.Register(e); err != nil {
			return nil, err
		}
		return &vizSession[*bst.Tree]{Engine: e, frames: frames, resize: func(n int) { settings.ElementSize = n }}, nil
	case "sorting":
		settings := &sorting.Settings{ElementSize: cfg.ElementSize}
		e, err := replay.New(sorting.NewScene(settings), append(opts, replay.WithRenderer(renderer[*sorting.Array](frames)))...)
		if err != nil {
			return nil, err
		}
		if err := sorting.Register(e); err != nil {
			return nil, err
		}
		return &vizSession[*sorting.Array]{Engine: e, frames: frames, resize: func(n int) { settings.ElementSize = n }}, nil
	}
	return nil, fmt.Errorf("unknown visualization %q", cfg.Visualization)
}
