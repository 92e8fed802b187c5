// Package replay provides the rewindable step scheduler behind algoreplay visualizations.
package replay

import "errors"

// ErrNotListening indicates a control trigger arrived while no listener set was
// installed (the engine was replaying history or unwinding). The trigger is dropped.
var ErrNotListening = errors.New("no listeners installed: trigger ignored")

// ErrTriggerDisabled indicates the trigger is not part of the listener set that is
// currently installed (e.g. step-forward while Idle, execute while Live).
var ErrTriggerDisabled = errors.New("trigger disabled in current mode")

// ErrUnknownOperation is returned when an execute request names an operation that
// was never registered on the engine.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrMalformedRewind is returned when an operation surfaces a Rewind that the
// engine did not issue from a suspension point.
var ErrMalformedRewind = errors.New("malformed rewind signal")

// ErrReplayMismatch indicates an action completed with a different step count than
// the one finalized on a previous pass. The operation is not deterministic.
var ErrReplayMismatch = errors.New("replay mismatch: step count differs from finalized stop")

// ErrAlreadyServing is returned by Serve when another Serve call owns the engine.
var ErrAlreadyServing = errors.New("engine is already serving")

// EngineError represents an error from Engine configuration or registration.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
