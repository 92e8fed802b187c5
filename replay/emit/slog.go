package emit

import (
	"context"
	"log/slog"
	"sort"
)

// SlogEmitter implements Emitter by turning events into slog records.
//
// Errors (fatal, replay_mismatch) are logged at Error/Warn, rewinds at Info and
// everything else at Debug, so a default Info logger only shows navigation.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates a SlogEmitter. A nil logger uses slog.Default().
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEmitter{logger: logger}
}

// Emit logs the event.
func (s *SlogEmitter) Emit(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.Int("pass", event.Pass),
		slog.Int("action", event.Action),
		slog.String("op", event.Operation),
		slog.Int("step", event.Step),
	}

	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, event.Meta[k]))
	}

	s.logger.LogAttrs(context.Background(), levelFor(event.Msg), event.Msg, attrs...)
}

func levelFor(msg string) slog.Level {
	switch msg {
	case "fatal":
		return slog.LevelError
	case "replay_mismatch":
		return slog.LevelWarn
	case "rewind":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
