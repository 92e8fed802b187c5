package emit

// Emitter receives observability events from the replay scheduler.
//
// Emitters enable pluggable observability backends:
//   - Logging: text or JSON lines, slog
//   - Distributed tracing: OpenTelemetry
//   - In-memory history for tests and debugging
//
// Emit is called on the engine goroutine between suspension points, so
// implementations must not block: a slow emitter slows every replay pass.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	// Emit should not panic. Errors should be handled internally.
	Emit(event Event)
}
