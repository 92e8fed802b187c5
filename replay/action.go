package replay

import "math"

// Unbounded is the stop step of an action that should run to completion without
// waiting again (fast-forward).
const Unbounded = math.MaxInt

// Action is one user-initiated operation recorded in the ActionLog.
//
// StopStep is the number of suspension points that are fast-skipped before the
// action waits for input. It is re-estimated every time the action is replayed
// or rewound, and overwritten with the real step count when the action completes
// a live run.
type Action struct {
	// Name identifies the registered operation to invoke.
	Name string `json:"name"`

	// Args are passed to the operation in order on every replay.
	Args []any `json:"args"`

	// StopStep is the step at which this action is considered done for the
	// current pass. Never negative.
	StopStep int `json:"stop_step"`

	// finalized is the step count recorded the last time the action completed
	// live, or -1 when it never has.
	finalized int
}

// NewAction returns an Action that has never completed a live run.
func NewAction(name string, args []any, stop int) Action {
	if stop < 0 {
		stop = 0
	}
	return Action{
		Name:      name,
		Args:      cloneArgs(args),
		StopStep:  stop,
		finalized: -1,
	}
}

// Finalized returns the step count recorded the last time the action completed
// live, and whether it ever has.
func (a Action) Finalized() (int, bool) {
	return a.finalized, a.finalized >= 0
}

func cloneArgs(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}

// ActionLog is the ordered list of executed operations. Insertion order is
// chronological order is replay order.
//
// ActionLog is owned by the engine goroutine and is not safe for concurrent use.
type ActionLog struct {
	entries []Action
}

// Append adds a new action with the given initial stop step and returns it.
func (l *ActionLog) Append(name string, args []any, stop int) *Action {
	return l.push(NewAction(name, args, stop))
}

func (l *ActionLog) push(a Action) *Action {
	if a.StopStep < 0 {
		a.StopStep = 0
	}
	l.entries = append(l.entries, a)
	return &l.entries[len(l.entries)-1]
}

// PopLast removes and returns the most recent action.
// The second return value is false when the log is empty.
func (l *ActionLog) PopLast() (Action, bool) {
	n := len(l.entries)
	if n == 0 {
		return Action{}, false
	}
	last := l.entries[n-1]
	l.entries[n-1] = Action{}
	l.entries = l.entries[:n-1]
	return last, true
}

// Last returns a pointer to the most recent action, or false when empty.
func (l *ActionLog) Last() (*Action, bool) {
	if len(l.entries) == 0 {
		return nil, false
	}
	return &l.entries[len(l.entries)-1], true
}

// At returns a pointer to the i-th action. It panics when i is out of range.
func (l *ActionLog) At(i int) *Action {
	return &l.entries[i]
}

// Len returns the number of recorded actions.
func (l *ActionLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the recorded actions.
func (l *ActionLog) Entries() []Action {
	out := make([]Action, len(l.entries))
	for i, a := range l.entries {
		a.Args = cloneArgs(a.Args)
		out[i] = a
	}
	return out
}

// Truncate drops every action at index n and later.
func (l *ActionLog) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(l.entries) {
		return
	}
	for i := n; i < len(l.entries); i++ {
		l.entries[i] = Action{}
	}
	l.entries = l.entries[:n]
}

// Clear removes every action.
func (l *ActionLog) Clear() {
	l.Truncate(0)
}
