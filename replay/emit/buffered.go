package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory.
//
// Events are grouped by session so one emitter can observe several engines.
// Tests use it to assert on the exact sequence of suspensions and rewinds a
// control produced.
//
// Warning: every event is kept until Clear is called. Long interactive
// sessions should prefer LogEmitter or SlogEmitter.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // sessionID -> events
}

// HistoryFilter specifies criteria for filtering buffered events.
//
// All fields are optional and combined with AND logic.
//
//	minStep := 2
//	rewinds := emitter.GetHistoryWithFilter(id, emit.HistoryFilter{
//		Msg:     "rewind",
//		MinStep: &minStep,
//	})
type HistoryFilter struct {
	Operation string // Filter by operation name (empty = no filter)
	Msg       string // Filter by message (empty = no filter)
	MinPass   int    // Events with Pass >= MinPass (0 = no filter)
	MinStep   *int   // Minimum step number (nil = no filter)
	MaxStep   *int   // Maximum step number (nil = no filter)
}

func (f HistoryFilter) empty() bool {
	return f.Operation == "" && f.Msg == "" && f.MinPass == 0 && f.MinStep == nil && f.MaxStep == nil
}

// NewBufferedEmitter creates a new BufferedEmitter. Safe for concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.SessionID] = append(b.events[event.SessionID], event)
}

// GetHistory returns a copy of all events recorded for sessionID, in
// emission order. Never returns nil.
func (b *BufferedEmitter) GetHistory(sessionID string) []Event {
	return b.GetHistoryWithFilter(sessionID, HistoryFilter{})
}

// GetHistoryWithFilter returns the events for sessionID matching filter.
func (b *BufferedEmitter) GetHistoryWithFilter(sessionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[sessionID]
	if filter.empty() {
		result := make([]Event, len(events))
		copy(result, events)
		return result
	}

	result := []Event{}
	for _, event := range events {
		if matchesFilter(event, filter) {
			result = append(result, event)
		}
	}
	return result
}

// Count returns how many events for sessionID carry msg.
func (b *BufferedEmitter) Count(sessionID, msg string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, event := range b.events[sessionID] {
		if event.Msg == msg {
			n++
		}
	}
	return n
}

func matchesFilter(event Event, filter HistoryFilter) bool {
	if filter.Operation != "" && event.Operation != filter.Operation {
		return false
	}
	if filter.Msg != "" && event.Msg != filter.Msg {
		return false
	}
	if filter.MinPass > 0 && event.Pass < filter.MinPass {
		return false
	}
	if filter.MinStep != nil && event.Step < *filter.MinStep {
		return false
	}
	if filter.MaxStep != nil && event.Step > *filter.MaxStep {
		return false
	}
	return true
}

// Clear removes stored events for sessionID, or every session when
// sessionID is empty.
func (b *BufferedEmitter) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sessionID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, sessionID)
}
