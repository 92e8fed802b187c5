package replay

import (
	"context"
	"time"
)

// Stepper is the restricted capability an operation receives. It can read the
// scene and the step cursor and call Pause, but it cannot touch the ActionLog.
type Stepper[S any] struct {
	e        *Engine[S]
	interval time.Duration
}

// Scene returns the scene the current pass is building.
func (s *Stepper[S]) Scene() S {
	return s.e.scene
}

// Pause marks a step boundary. key names a message rendered with the engine's
// Formatter; an empty key keeps the previous message.
//
// Pause returns nil to continue, or a *Rewind that the operation must return
// unchanged. Historical and already-confirmed steps return nil immediately.
func (s *Stepper[S]) Pause(ctx context.Context, key string, args ...any) error {
	return s.e.pause(ctx, s.interval, key, args)
}

// Step returns the number of suspension points passed in the current action.
func (s *Stepper[S]) Step() int {
	return s.e.state.Step
}

// Resetting reports whether the current action is historical.
func (s *Stepper[S]) Resetting() bool {
	return s.e.state.Resetting
}

// Skipping reports whether the next Pause will return without waiting.
// Operations can use it to skip work that only matters for display.
func (s *Stepper[S]) Skipping() bool {
	e := s.e
	if e.state.Resetting || e.issued != nil {
		return true
	}
	return e.state.Step < e.log.At(e.state.ActionIndex).StopStep
}

// Running reports whether auto-advance is enabled.
func (s *Stepper[S]) Running() bool {
	return s.e.state.Running
}

// Sprintf renders a message key without suspending.
func (s *Stepper[S]) Sprintf(key string, args ...any) string {
	return s.e.format(key, args...)
}

// pause implements the suspension point protocol.
//
// Every path that returns without an earlier issued rewind increments Step
// exactly once.
func (e *Engine[S]) pause(ctx context.Context, interval time.Duration, key string, args []any) error {
	if e.issued != nil {
		return e.issued
	}
	if key != "" {
		e.message = e.format(key, args...)
	}

	if e.state.Resetting {
		e.state.Step++
		e.passSteps++
		e.cfg.metrics.IncrementSteps("historical")
		return nil
	}

	act := e.log.At(e.state.ActionIndex)
	if e.state.Step < act.StopStep {
		e.state.Step++
		e.passSteps++
		e.cfg.metrics.IncrementSteps("skipped")
		e.emit("step_skipped", nil)
		return nil
	}

	res, err := e.suspend(ctx, act, interval)
	e.state.Step++
	e.passSteps++
	e.cfg.metrics.IncrementSteps("live")
	if err != nil {
		return err
	}
	if res.rewind != nil {
		e.issued = res.rewind
		return res.rewind
	}
	e.emit("resumed", map[string]interface{}{"trigger": res.trigger.String()})
	return nil
}

// suspend installs the Active listener set and waits for a trigger or the
// auto-advance timer.
func (e *Engine[S]) suspend(ctx context.Context, act *Action, interval time.Duration) (resolution, error) {
	e.mode = ModeLive
	e.emit("suspended", map[string]interface{}{"stop_step": act.StopStep, "message": e.message})

	for {
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if e.state.Running {
			timer = time.NewTimer(interval)
			fire = timer.C
		}

		cmd, fired, err := e.await(ctx, acceptActive, fire)
		if timer != nil {
			timer.Stop()
		}
		if err != nil {
			return resolution{}, err
		}
		if fired {
			return advance(TriggerTimer), nil
		}

		switch cmd.trigger {
		case TriggerStepForward:
			e.state.Running = false
			return advance(cmd.trigger), nil
		case TriggerFastForward:
			act.StopStep = Unbounded
			return advance(cmd.trigger), nil
		case TriggerToggleRun:
			e.state.Running = !e.state.Running
			if e.state.Running {
				return advance(cmd.trigger), nil
			}
			// Paused: keep waiting with the timer disarmed.
		case TriggerStepBackward:
			return rewindTo(cmd.trigger, e.state.Step-1, true), nil
		case TriggerFastBackward:
			return rewindTo(cmd.trigger, -1, true), nil
		case TriggerConfigure:
			if cmd.apply != nil {
				cmd.apply()
			}
			return rewindTo(cmd.trigger, e.state.Step, false), nil
		}
	}
}

func acceptActive(cmd command) error {
	switch cmd.trigger {
	case TriggerStepForward, TriggerStepBackward, TriggerToggleRun,
		TriggerFastForward, TriggerFastBackward, TriggerConfigure:
		return nil
	}
	return ErrTriggerDisabled
}
