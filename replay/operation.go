package replay

import (
	"context"
	"time"
)

// Operation is a multi-step, animatable procedure registered on an Engine.
//
// Run mutates the scene reachable through the Stepper and calls Pause at every
// point a frame should be inspectable. Any error returned by Pause must be
// returned unchanged; Run must not wrap a Rewind in its own error.
//
// Type parameter S is the scene type shared by every operation of an engine.
type Operation[S any] interface {
	Run(ctx context.Context, step *Stepper[S], args []any) (Result, error)
}

// OperationFunc is a function adapter that implements the Operation interface.
//
// Example:
//
//	push := replay.OperationFunc[*Stack](func(ctx context.Context, st *replay.Stepper[*Stack], args []any) (replay.Result, error) {
//	    st.Scene().Push(args[0])
//	    if err := st.Pause("stack.pushed", args[0]); err != nil {
//	        return replay.Result{}, err
//	    }
//	    return replay.Result{Success: true}, nil
//	})
type OperationFunc[S any] func(ctx context.Context, step *Stepper[S], args []any) (Result, error)

// Run implements the Operation interface for OperationFunc.
func (f OperationFunc[S]) Run(ctx context.Context, step *Stepper[S], args []any) (Result, error) {
	return f(ctx, step, args)
}

// Result is the payload an operation hands back to its caller. The scheduler
// does not interpret it; it is published in Status for status text.
type Result struct {
	Success bool
	Message string
	Ref     any
}

// Policy configures per-operation pacing.
type Policy struct {
	// Interval overrides the engine auto-advance interval for this operation.
	// Zero uses the engine default.
	Interval time.Duration
}

// Policied is implemented by operations that carry their own Policy.
type Policied interface {
	Policy() Policy
}

type pacedOperation[S any] struct {
	Operation[S]
	policy Policy
}

func (p pacedOperation[S]) Policy() Policy { return p.policy }

// Paced wraps op so that its steps auto-advance after interval instead of the
// engine default.
func Paced[S any](op Operation[S], interval time.Duration) Operation[S] {
	return pacedOperation[S]{Operation: op, policy: Policy{Interval: interval}}
}

// OperationError represents a fatal failure while executing an operation.
type OperationError struct {
	// Message is the human-readable error description.
	Message string

	// Code is a machine-readable error code.
	Code string

	// Operation is the registered name of the failing operation.
	Operation string

	// Index is the ActionLog index of the failing action.
	Index int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Operation != "" {
		return "operation " + e.Operation + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *OperationError) Unwrap() error {
	return e.Cause
}
