package replay

import (
	"fmt"
	"strings"
)

// command is one trigger delivered to the installed listener set.
type command struct {
	trigger Trigger
	name    string // TriggerExecute
	args    []any  // TriggerExecute
	apply   func() // TriggerConfigure, run on the engine goroutine
	reply   chan error
}

// Controls is the control surface of an Engine. Every method is safe to call
// from any goroutine and returns once the trigger was accepted or rejected.
//
// A trigger that arrives while no listener set is installed (the engine is
// replaying history or unwinding) returns ErrNotListening and has no effect.
// A trigger the installed set does not handle returns ErrTriggerDisabled.
type Controls struct {
	send func(command) error
}

// StepForward resolves the pending suspension point and disables auto-run.
func (c *Controls) StepForward() error {
	return c.send(command{trigger: TriggerStepForward})
}

// StepBackward rewinds one step. In Idle it re-executes the last action one
// step short of its end.
func (c *Controls) StepBackward() error {
	return c.send(command{trigger: TriggerStepBackward})
}

// ToggleRun flips auto-advance. While live, turning it on also advances.
func (c *Controls) ToggleRun() error {
	return c.send(command{trigger: TriggerToggleRun})
}

// FastForward runs the live action to completion without waiting.
func (c *Controls) FastForward() error {
	return c.send(command{trigger: TriggerFastForward})
}

// FastBackward discards the live (or last) action and returns to the end of
// the previous one.
func (c *Controls) FastBackward() error {
	return c.send(command{trigger: TriggerFastBackward})
}

// Configure runs apply on the engine goroutine and replays so the change shows
// in every frame. apply may be nil to force a redraw.
func (c *Controls) Configure(apply func()) error {
	return c.send(command{trigger: TriggerConfigure, apply: apply})
}

// Execute appends a new action and runs it live. Only accepted while Idle.
func (c *Controls) Execute(name string, args ...any) error {
	return c.send(command{trigger: TriggerExecute, name: name, args: cloneArgs(args)})
}

// Fire sends a navigation trigger. Execute and Configure need arguments and
// have their own methods.
func (c *Controls) Fire(t Trigger) error {
	switch t {
	case TriggerStepForward, TriggerStepBackward, TriggerToggleRun,
		TriggerFastForward, TriggerFastBackward:
		return c.send(command{trigger: t})
	case TriggerConfigure:
		return c.Configure(nil)
	}
	return fmt.Errorf("%w: %s cannot be fired directly", ErrTriggerDisabled, t)
}

// Keymap binds input keys to navigation triggers.
type Keymap map[string]Trigger

// DefaultKeymap is the terminal binding used by animctl.
func DefaultKeymap() Keymap {
	return Keymap{
		"n": TriggerStepForward,
		"b": TriggerStepBackward,
		"p": TriggerToggleRun,
		"f": TriggerFastForward,
		"r": TriggerFastBackward,
	}
}

// ParseKeymap reads bindings of the form "n=step-forward,b=step-backward".
// Keys not mentioned keep their DefaultKeymap binding.
func ParseKeymap(bindings string) (Keymap, error) {
	km := DefaultKeymap()
	if strings.TrimSpace(bindings) == "" {
		return km, nil
	}
	for _, pair := range strings.Split(bindings, ",") {
		key, name, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid key binding %q", pair)
		}
		t, err := ParseTrigger(name)
		if err != nil {
			return nil, err
		}
		if t == TriggerExecute || t == TriggerTimer {
			return nil, fmt.Errorf("trigger %s cannot be bound to a key", t)
		}
		for k, bound := range km {
			if bound == t {
				delete(km, k)
			}
		}
		km[strings.TrimSpace(key)] = t
	}
	return km, nil
}
