package replay

import (
	"fmt"
	"strings"
)

// Trigger identifies a logical control on the control surface.
type Trigger int

const (
	TriggerStepForward Trigger = iota + 1
	TriggerStepBackward
	TriggerToggleRun
	TriggerFastForward
	TriggerFastBackward
	TriggerConfigure
	TriggerExecute

	// TriggerTimer is the auto-advance timer; it is never sent by a control.
	TriggerTimer
)

var triggerNames = map[Trigger]string{
	TriggerStepForward:  "step-forward",
	TriggerStepBackward: "step-backward",
	TriggerToggleRun:    "toggle-run",
	TriggerFastForward:  "fast-forward",
	TriggerFastBackward: "fast-backward",
	TriggerConfigure:    "configure",
	TriggerExecute:      "execute",
	TriggerTimer:        "timer",
}

func (t Trigger) String() string {
	if name, ok := triggerNames[t]; ok {
		return name
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// ParseTrigger resolves a trigger from its String form.
func ParseTrigger(s string) (Trigger, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range triggerNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trigger %q", s)
}

// Rewind is the RewindSignal: a cooperative interrupt that unwinds the live
// operation toward an earlier step. Pause returns it as an error; operations
// must return it unchanged so the scheduler can react.
//
// Target is the stop step the live action is re-executed with. A negative target
// means "before this action": the action is discarded and the previous one is
// re-executed at its own stop step.
type Rewind struct {
	Target       int
	ResetRunning bool
	Trigger      Trigger
}

func (r *Rewind) Error() string {
	return fmt.Sprintf("rewind to step %d (%s)", r.Target, r.Trigger)
}

// resolution is how a suspension point settles: advance, or rewind.
type resolution struct {
	trigger Trigger
	rewind  *Rewind
}

func advance(t Trigger) resolution {
	return resolution{trigger: t}
}

func rewindTo(t Trigger, target int, resetRunning bool) resolution {
	return resolution{
		trigger: t,
		rewind:  &Rewind{Target: target, ResetRunning: resetRunning, Trigger: t},
	}
}
