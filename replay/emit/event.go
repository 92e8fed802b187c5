package emit

// Event represents an observability event emitted by the replay scheduler.
//
// Common messages:
//   - pass_start, pass_complete: one traversal of the ActionLog
//   - action_start, action_complete: one action within a pass
//   - step_skipped: a step fast-skipped because it was confirmed earlier
//   - suspended, resumed: a live suspension point waits and settles
//   - rewind: a RewindSignal was accepted
//   - reset: the scene was cleared with nothing to replay
//   - fatal, replay_mismatch: errors
type Event struct {
	// SessionID identifies the engine instance that emitted this event.
	SessionID string

	// Pass is the replay pass number (1-indexed). Zero outside a pass.
	Pass int

	// Action is the ActionLog index the event refers to, or -1.
	Action int

	// Operation is the registered operation name, if any.
	Operation string

	// Step is the step counter within the action at emission time.
	Step int

	// Msg is the event message (see list above).
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "trigger": control trigger that caused the event
	//   - "target": rewind target step
	//   - "duration_ms": pass duration in milliseconds
	//   - "error": error details
	//   - "stop_step": stop step of the action
	Meta map[string]interface{}
}
