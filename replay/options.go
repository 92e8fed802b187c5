package replay

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/algoreplay/replay/emit"
	"github.com/dshills/algoreplay/replay/store"
)

// DefaultInterval is the auto-advance interval used when neither the engine
// nor the operation configures one.
const DefaultInterval = 500 * time.Millisecond

// Formatter renders a pause message key and its arguments to display text.
type Formatter func(key string, args ...any) string

// defaultFormatter joins the key and its arguments with spaces.
func defaultFormatter(key string, args ...any) string {
	return strings.TrimSuffix(fmt.Sprintln(append([]any{key}, args...)...), "\n")
}

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine, err := replay.New(bst.NewTree,
//	    replay.WithInterval(250*time.Millisecond),
//	    replay.WithLogger(logger),
//	    replay.WithRenderer(func(f replay.Frame[*bst.Tree]) { fmt.Println(f.Scene.Render()) }),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to an Engine.
type engineConfig struct {
	emitter   emit.Emitter
	logger    *slog.Logger
	metrics   *PrometheusMetrics
	store     store.Store
	sessionID string
	interval  time.Duration
	running   bool
	renderer  any // func(Frame[S]), checked against S in New
	format    Formatter
}

// WithEmitter sets the observability event sink. Default: emit.NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		if e == nil {
			return &EngineError{Message: "emitter cannot be nil", Code: "INVALID_OPTION"}
		}
		cfg.emitter = e
		return nil
	}
}

// WithLogger sets the structured logger. Default: discards everything.
//
// The engine logs pass boundaries at Debug, accepted rewinds at Info,
// replay mismatches at Warn and fatal operation errors at Error.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		if l == nil {
			return &EngineError{Message: "logger cannot be nil", Code: "INVALID_OPTION"}
		}
		cfg.logger = l
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithStore records a transcript of every replay pass in st.
//
// Transcripts are an audit journal. The engine never reads them back.
func WithStore(st store.Store) Option {
	return func(cfg *engineConfig) error {
		cfg.store = st
		return nil
	}
}

// WithSessionID sets the identifier attached to events and transcripts.
// Default: a fresh ULID from NewSessionID.
func WithSessionID(id string) Option {
	return func(cfg *engineConfig) error {
		if strings.TrimSpace(id) == "" {
			return &EngineError{Message: "session ID cannot be empty", Code: "INVALID_OPTION"}
		}
		cfg.sessionID = id
		return nil
	}
}

// WithInterval sets how long a live step waits before auto-advancing while
// running. Operations wrapped with Paced override it.
//
// Default: DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		if d <= 0 {
			return &EngineError{Message: fmt.Sprintf("interval must be positive, got %v", d), Code: "INVALID_OPTION"}
		}
		cfg.interval = d
		return nil
	}
}

// WithRunning sets the initial value of the sticky running flag.
func WithRunning(running bool) Option {
	return func(cfg *engineConfig) error {
		cfg.running = running
		return nil
	}
}

// WithRenderer sets the function that draws frames. It is called on the engine
// goroutine each time a listener set is installed: at every live suspension
// and on every return to Idle. S must match the engine's scene type.
func WithRenderer[S any](fn func(Frame[S])) Option {
	return func(cfg *engineConfig) error {
		cfg.renderer = fn
		return nil
	}
}

// WithFormatter sets how pause message keys are rendered.
// Default: the key followed by its arguments.
func WithFormatter(f Formatter) Option {
	return func(cfg *engineConfig) error {
		cfg.format = f
		return nil
	}
}
