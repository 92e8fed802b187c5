package replay

// Mode is the scheduler state visible to the control surface.
type Mode int

const (
	// ModeStopped means Serve is not running; no listeners exist.
	ModeStopped Mode = iota

	// ModeIdle means no action is live; the Idle listener set handles history
	// navigation, configuration changes and new operations.
	ModeIdle

	// ModeReplaying means historical actions are being re-executed with
	// Resetting set; no listeners are installed.
	ModeReplaying

	// ModeLive means the newest action is executing with real suspension.
	ModeLive

	// ModeUnwinding means a rewind was accepted and the log is being adjusted
	// before the next pass.
	ModeUnwinding
)

func (m Mode) String() string {
	switch m {
	case ModeStopped:
		return "stopped"
	case ModeIdle:
		return "idle"
	case ModeReplaying:
		return "replaying"
	case ModeLive:
		return "live"
	case ModeUnwinding:
		return "unwinding"
	default:
		return "unknown"
	}
}

// ExecutionState is the per-engine cursor over the ActionLog.
//
// ActionIndex and Step are reset at the start of every pass. Running persists
// across passes. Resetting is scoped to one pass and cleared on every exit path.
type ExecutionState struct {
	// ActionIndex is the index of the action currently executing.
	ActionIndex int

	// Step counts the suspension points passed within the current action.
	Step int

	// Running enables timer-driven auto-advance.
	Running bool

	// Resetting is true only while historical actions are being replayed.
	Resetting bool
}

// Status is a published snapshot of the engine, safe to read from any goroutine.
type Status struct {
	Mode Mode

	// Listening is true while a listener set (Idle or Active) is installed and a
	// trigger would be consumed.
	Listening bool

	// Epoch increments every time a fresh listener set is installed.
	Epoch uint64

	State ExecutionState

	// Pass counts replay passes started since the engine was created.
	Pass int

	// LogLen is the number of actions in the ActionLog.
	LogLen int

	// Operation is the name of the action at State.ActionIndex, if any.
	Operation string

	// StopStep is the stop step of the action at State.ActionIndex.
	StopStep int

	// Message is the rendered text of the most recent pause.
	Message string

	// Result is the payload returned by the most recently completed action.
	Result Result
}

// Idle reports whether the Idle listener set is installed.
func (s Status) Idle() bool {
	return s.Mode == ModeIdle && s.Listening
}

// Suspended reports whether a live action is waiting at a suspension point.
func (s Status) Suspended() bool {
	return s.Mode == ModeLive && s.Listening
}

// Enabled reports whether a control bound to t should be enabled.
//
// Idle: execute, toggle-run and configuration controls are always enabled;
// step-backward and fast-backward only when the log is non-empty.
// Active: every navigation control and configuration is enabled; execute is not.
// While replaying or unwinding nothing is enabled.
func (s Status) Enabled(t Trigger) bool {
	if !s.Listening {
		return false
	}
	switch s.Mode {
	case ModeIdle:
		switch t {
		case TriggerExecute, TriggerToggleRun, TriggerConfigure:
			return true
		case TriggerStepBackward, TriggerFastBackward:
			return s.LogLen > 0
		}
		return false
	case ModeLive:
		switch t {
		case TriggerStepForward, TriggerStepBackward, TriggerToggleRun,
			TriggerFastForward, TriggerFastBackward, TriggerConfigure:
			return true
		}
		return false
	}
	return false
}

// Frame is what a Renderer receives: the published status and the scene the
// operations have built so far. Frames are delivered on the engine goroutine.
type Frame[S any] struct {
	Status Status
	Scene  S
}
