package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/algoreplay/replay/emit"
)

// Engine is the replay scheduler for one visualization.
//
// The engine owns the ActionLog and ExecutionState. All of its work happens on
// the goroutine that calls Serve: operations run there and Pause blocks there.
// Other goroutines interact through Controls, Status and WaitFor.
//
// Navigation never restores a snapshot. Every change of position resets the
// scene and replays the log from index 0, fast-skipping confirmed steps, so
// there is exactly one code path that produces visual state.
//
// Type parameter S is the scene type built by the registered operations.
type Engine[S any] struct {
	newScene func() S
	ops      map[string]Operation[S]
	cfg      engineConfig
	renderer func(Frame[S])
	format   Formatter

	// Owned by the Serve goroutine.
	log         ActionLog
	state       ExecutionState
	scene       S
	mode        Mode
	pass        int
	issued      *Rewind
	message     string
	result      Result
	passSteps   int
	passTrigger Trigger

	commands chan command
	serving  atomic.Bool

	mu        sync.Mutex
	status    Status
	changed   chan struct{}
	listening bool
	epoch     uint64
	detached  chan struct{}
	entries   []Action
}

// New creates an engine whose scene is produced by newScene. newScene is called
// at the start of every replay pass and must return a fresh, empty scene.
//
// Returns *EngineError when newScene is nil or an option is invalid.
func New[S any](newScene func() S, opts ...Option) (*Engine[S], error) {
	if newScene == nil {
		return nil, &EngineError{Message: "scene factory cannot be nil", Code: "INVALID_OPTION"}
	}

	cfg := engineConfig{}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.sessionID == "" {
		cfg.sessionID = NewSessionID()
	}

	e := &Engine[S]{
		newScene: newScene,
		ops:      make(map[string]Operation[S]),
		cfg:      cfg,
		format:   cfg.format,
		commands: make(chan command),
		changed:  make(chan struct{}),
		detached: make(chan struct{}),
	}
	if e.format == nil {
		e.format = defaultFormatter
	}
	if cfg.renderer != nil {
		fn, ok := cfg.renderer.(func(Frame[S]))
		if !ok {
			return nil, &EngineError{
				Message: fmt.Sprintf("renderer has type %T, want func(Frame[%T])", cfg.renderer, *new(S)),
				Code:    "INVALID_OPTION",
			}
		}
		e.renderer = fn
	}
	close(e.detached)

	e.state.Running = cfg.running
	e.scene = newScene()
	e.publish()
	return e, nil
}

// Register adds a named operation. Names are validated here so that execute
// requests can be rejected before anything is appended to the log.
//
// Returns *EngineError if name is empty, op is nil, the name is taken, or the
// engine is already serving.
func (e *Engine[S]) Register(name string, op Operation[S]) error {
	if name == "" {
		return &EngineError{Message: "operation name cannot be empty", Code: "INVALID_OPERATION"}
	}
	if op == nil {
		return &EngineError{Message: "operation cannot be nil", Code: "INVALID_OPERATION"}
	}
	if e.serving.Load() {
		return &EngineError{Message: "cannot register operations while serving", Code: "INVALID_OPERATION"}
	}
	if _, exists := e.ops[name]; exists {
		return &EngineError{Message: fmt.Sprintf("operation %q already registered", name), Code: "DUPLICATE_OPERATION"}
	}
	e.ops[name] = op
	return nil
}

// SessionID returns the identifier attached to events and transcripts.
func (e *Engine[S]) SessionID() string {
	return e.cfg.sessionID
}

// Controls returns the control surface bound to this engine.
func (e *Engine[S]) Controls() *Controls {
	return &Controls{send: e.send}
}

// Serve runs the scheduler until ctx is cancelled. It returns ctx.Err() on
// cancellation and ErrAlreadyServing if another Serve call owns the engine.
//
// Serve resumes from the current ActionLog, so an engine can be served again
// after a previous Serve returned.
func (e *Engine[S]) Serve(ctx context.Context) error {
	if !e.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	defer e.serving.Store(false)
	defer func() {
		e.mode = ModeStopped
		e.state.Resetting = false
		e.publish()
	}()

	e.cfg.logger.Debug("serving", "session", e.cfg.sessionID, "operations", len(e.ops))

	if e.log.Len() > 0 {
		if err := e.redraw(ctx); err != nil {
			return err
		}
	}

	for {
		e.mode = ModeIdle
		cmd, _, err := e.await(ctx, e.acceptIdle, nil)
		if err != nil {
			return err
		}
		if err := e.handleIdle(ctx, cmd); err != nil {
			return err
		}
	}
}

// acceptIdle is the Idle listener set.
func (e *Engine[S]) acceptIdle(cmd command) error {
	switch cmd.trigger {
	case TriggerExecute:
		if _, ok := e.ops[cmd.name]; !ok {
			err := fmt.Errorf("%w: %q", ErrUnknownOperation, cmd.name)
			e.cfg.logger.Error("unknown operation",
				"session", e.cfg.sessionID,
				"operation", cmd.name)
			e.emit("fatal", map[string]interface{}{"error": err.Error(), "operation": cmd.name})
			return err
		}
		return nil
	case TriggerStepBackward, TriggerFastBackward, TriggerConfigure, TriggerToggleRun:
		return nil
	}
	return ErrTriggerDisabled
}

func (e *Engine[S]) handleIdle(ctx context.Context, cmd command) error {
	e.passTrigger = cmd.trigger
	e.emit("control", map[string]interface{}{"trigger": cmd.trigger.String()})

	switch cmd.trigger {
	case TriggerExecute:
		return e.execute(ctx, NewAction(cmd.name, cmd.args, 0))

	case TriggerToggleRun:
		e.state.Running = !e.state.Running
		return nil

	case TriggerStepBackward:
		e.state.Running = false
		top, ok := e.log.PopLast()
		if !ok {
			e.reset()
			return nil
		}
		top.StopStep--
		return e.resume(ctx, top)

	case TriggerFastBackward:
		e.state.Running = false
		if _, ok := e.log.PopLast(); !ok {
			e.reset()
			return nil
		}
		prev, ok := e.log.PopLast()
		if !ok {
			e.reset()
			return nil
		}
		return e.execute(ctx, prev)

	case TriggerConfigure:
		if cmd.apply != nil {
			cmd.apply()
		}
		top, ok := e.log.PopLast()
		if !ok {
			e.reset()
			return nil
		}
		return e.execute(ctx, top)
	}
	return nil
}

// resume re-executes a, escalating to the previous action when a.StopStep
// went negative.
func (e *Engine[S]) resume(ctx context.Context, a Action) error {
	if a.StopStep >= 0 {
		return e.execute(ctx, a)
	}
	prev, ok := e.log.PopLast()
	if !ok {
		e.reset()
		return nil
	}
	return e.execute(ctx, prev)
}

// passOutcome is how one replay pass ended.
type passOutcome struct {
	rewind *Rewind
	err    error
	index  int // failing action index when err != nil
}

func (o passOutcome) label() string {
	switch {
	case o.rewind != nil:
		return "rewind"
	case errors.Is(o.err, context.Canceled), errors.Is(o.err, context.DeadlineExceeded):
		return "cancelled"
	case o.err != nil:
		return "fatal"
	}
	return "complete"
}

// execute appends a and runs replay passes until the live action completes,
// the log empties, or ctx is cancelled. Rewinds loop here instead of
// recursing.
func (e *Engine[S]) execute(ctx context.Context, a Action) error {
	for {
		e.log.push(a)
		out := e.runPass(ctx, true)

		switch {
		case out.rewind == nil && out.err == nil:
			return nil

		case out.rewind != nil:
			rw := out.rewind
			e.mode = ModeUnwinding
			e.passTrigger = rw.Trigger
			e.publish()

			live, _ := e.log.PopLast()
			if rw.ResetRunning {
				e.state.Running = false
			}
			e.cfg.metrics.IncrementRewinds(rw.Trigger)
			e.cfg.logger.Info("rewind",
				"session", e.cfg.sessionID,
				"operation", live.Name,
				"target", rw.Target,
				"trigger", rw.Trigger.String())
			e.emit("rewind", map[string]interface{}{
				"trigger": rw.Trigger.String(),
				"target":  rw.Target,
			})

			if rw.Target >= 0 {
				live.StopStep = rw.Target
				a = live
				continue
			}
			prev, ok := e.log.PopLast()
			if !ok {
				e.reset()
				return nil
			}
			a = prev

		case ctx.Err() != nil:
			e.abandon()
			return ctx.Err()

		default:
			e.fail(out)
			return e.redraw(ctx)
		}
	}
}

// abandon drops the in-flight action when Serve stops mid-pass. An action
// that completed before keeps its place at its finalized stop.
func (e *Engine[S]) abandon() {
	live, ok := e.log.PopLast()
	if !ok {
		return
	}
	if steps, done := live.Finalized(); done {
		live.StopStep = steps
		e.log.push(live)
	}
}

// finalize records the live action's real step count as its stop step.
func (e *Engine[S]) finalize() {
	last, ok := e.log.Last()
	if !ok {
		return
	}
	steps := e.state.Step
	if prev, done := last.Finalized(); done && prev != steps {
		err := fmt.Errorf("%w: %s finalized at %d, completed at %d", ErrReplayMismatch, last.Name, prev, steps)
		e.cfg.metrics.IncrementMismatches()
		e.cfg.logger.Warn("replay mismatch",
			"session", e.cfg.sessionID,
			"operation", last.Name,
			"finalized", prev,
			"steps", steps)
		e.emit("replay_mismatch", map[string]interface{}{"error": err.Error()})
	}
	last.StopStep = steps
	last.finalized = steps
	e.emit("action_complete", map[string]interface{}{"stop_step": steps})
	e.cfg.metrics.UpdateLogLength(e.log.Len())
}

// fail handles a fatal pass outcome: the failing action and everything after
// it are dropped.
func (e *Engine[S]) fail(out passOutcome) {
	name := ""
	if out.index < e.log.Len() {
		name = e.log.At(out.index).Name
	}
	e.cfg.logger.Error("operation failed",
		"session", e.cfg.sessionID,
		"operation", name,
		"index", out.index,
		"error", out.err)
	e.emit("fatal", map[string]interface{}{"error": out.err.Error(), "index": out.index})
	e.log.Truncate(out.index)
	e.cfg.metrics.UpdateLogLength(e.log.Len())
}

// redraw replays the surviving history without waiting. If that pass fails
// as well the log is cleared.
func (e *Engine[S]) redraw(ctx context.Context) error {
	if e.log.Len() == 0 {
		e.reset()
		return nil
	}
	out := e.runPass(ctx, false)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if out.err != nil || out.rewind != nil {
		if out.err != nil {
			e.fail(out)
		}
		e.log.Clear()
		e.reset()
	}
	return nil
}

// reset clears the scene and the log. The Idle listener set is installed by
// the caller's next await.
func (e *Engine[S]) reset() {
	e.log.Clear()
	e.scene = e.newScene()
	e.state.ActionIndex = 0
	e.state.Step = 0
	e.state.Resetting = false
	e.message = ""
	e.result = Result{}
	e.issued = nil
	e.cfg.metrics.UpdateLogLength(0)
	e.emit("reset", nil)
}

// runPass resets the scene and replays every log entry in order. When
// interactive is true the last entry runs live; otherwise every entry is
// historical.
func (e *Engine[S]) runPass(ctx context.Context, interactive bool) (out passOutcome) {
	start := time.Now()
	e.pass++
	e.issued = nil
	e.passSteps = 0
	e.scene = e.newScene()
	e.message = ""

	e.cfg.logger.Debug("pass start",
		"session", e.cfg.sessionID,
		"pass", e.pass,
		"actions", e.log.Len(),
		"interactive", interactive)
	e.emit("pass_start", map[string]interface{}{"actions": e.log.Len()})

	defer func() {
		// Resetting must never outlive a pass.
		e.state.Resetting = false
		e.issued = nil
		if interactive && out.rewind == nil && out.err == nil {
			e.finalize()
		}
		latency := time.Since(start)
		e.cfg.metrics.RecordPass(out.label(), latency)
		e.cfg.logger.Debug("pass complete",
			"session", e.cfg.sessionID,
			"pass", e.pass,
			"outcome", out.label(),
			"steps", e.passSteps,
			"duration", latency)
		e.emit("pass_complete", map[string]interface{}{
			"outcome":     out.label(),
			"steps":       e.passSteps,
			"duration_ms": latency.Milliseconds(),
		})
		e.record(ctx, out)
	}()

	n := e.log.Len()
	for i := 0; i < n; i++ {
		act := e.log.At(i)
		live := interactive && i == n-1

		e.state.ActionIndex = i
		e.state.Step = 0
		e.state.Resetting = !live
		if live {
			e.mode = ModeLive
		} else {
			e.mode = ModeReplaying
		}
		e.publish()
		e.emit("action_start", map[string]interface{}{"stop_step": act.StopStep, "live": live})

		res, err := e.invoke(ctx, act, i)

		var rw *Rewind
		switch {
		case errors.As(err, &rw):
			if rw != e.issued {
				return passOutcome{index: i, err: &OperationError{
					Message:   "operation returned a rewind that was not issued by a suspension point",
					Code:      "MALFORMED_REWIND",
					Operation: act.Name,
					Index:     i,
					Cause:     ErrMalformedRewind,
				}}
			}
			return passOutcome{rewind: rw}
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return passOutcome{index: i, err: ctxErr}
			}
			return passOutcome{index: i, err: err}
		case e.issued != nil:
			// The operation swallowed the rewind and completed anyway.
			return passOutcome{rewind: e.issued}
		}
		e.result = res
	}
	return passOutcome{}
}

// invoke runs one action, converting panics and unknown names to
// *OperationError.
func (e *Engine[S]) invoke(ctx context.Context, act *Action, index int) (res Result, err error) {
	op, ok := e.ops[act.Name]
	if !ok {
		return Result{}, &OperationError{
			Message:   "operation is not registered",
			Code:      "UNKNOWN_OPERATION",
			Operation: act.Name,
			Index:     index,
			Cause:     ErrUnknownOperation,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.cfg.logger.Error("operation panicked",
				"session", e.cfg.sessionID,
				"operation", act.Name,
				"panic", r,
				"stack", string(debug.Stack()))
			err = &OperationError{
				Message:   fmt.Sprintf("panic: %v", r),
				Code:      "PANIC",
				Operation: act.Name,
				Index:     index,
			}
		}
	}()

	st := &Stepper[S]{e: e, interval: stepInterval(op, e.cfg.interval)}
	res, err = op.Run(ctx, st, cloneArgs(act.Args))

	var rw *Rewind
	if err != nil && !errors.As(err, &rw) && ctx.Err() == nil {
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			err = &OperationError{
				Message:   err.Error(),
				Code:      "OPERATION_FAILED",
				Operation: act.Name,
				Index:     index,
				Cause:     err,
			}
		}
	}
	return res, err
}

// await installs a listener set and blocks until accept approves a command,
// fire delivers, or ctx is cancelled. Rejected commands are answered with
// accept's error and the same listener set keeps waiting.
func (e *Engine[S]) await(ctx context.Context, accept func(command) error, fire <-chan time.Time) (command, bool, error) {
	e.install()
	for {
		select {
		case <-ctx.Done():
			e.detach()
			return command{}, false, ctx.Err()
		case <-fire:
			e.detach()
			return command{}, true, nil
		case cmd := <-e.commands:
			if err := accept(cmd); err != nil {
				cmd.reply <- err
				continue
			}
			e.detach()
			cmd.reply <- nil
			return cmd, false, nil
		}
	}
}

// install publishes a fresh listener set. The frame is rendered before
// waiters are woken so a WaitFor caller always observes a drawn frame.
func (e *Engine[S]) install() {
	e.mu.Lock()
	e.listening = true
	e.epoch++
	e.detached = make(chan struct{})
	e.mu.Unlock()

	st := e.snapshot()
	if e.renderer != nil {
		e.renderer(Frame[S]{Status: st, Scene: e.scene})
	}
	e.commit(st)
}

// detach removes the installed listener set. Senders blocked on it give up.
func (e *Engine[S]) detach() {
	e.mu.Lock()
	e.listening = false
	close(e.detached)
	e.mu.Unlock()
	e.publish()
}

func (e *Engine[S]) send(cmd command) error {
	cmd.reply = make(chan error, 1)

	e.mu.Lock()
	if !e.listening {
		e.mu.Unlock()
		return ErrNotListening
	}
	detached := e.detached
	e.mu.Unlock()

	select {
	case e.commands <- cmd:
		return <-cmd.reply
	case <-detached:
		return ErrNotListening
	}
}

// publish snapshots engine state for other goroutines and wakes WaitFor.
// Called only from the engine goroutine.
func (e *Engine[S]) publish() {
	e.commit(e.snapshot())
}

func (e *Engine[S]) snapshot() Status {
	st := Status{
		Mode:    e.mode,
		State:   e.state,
		Pass:    e.pass,
		LogLen:  e.log.Len(),
		Message: e.message,
		Result:  e.result,
	}
	if e.state.ActionIndex < e.log.Len() {
		act := e.log.At(e.state.ActionIndex)
		st.Operation = act.Name
		st.StopStep = act.StopStep
	}
	e.mu.Lock()
	st.Listening = e.listening
	st.Epoch = e.epoch
	e.mu.Unlock()
	return st
}

func (e *Engine[S]) commit(st Status) {
	entries := e.log.Entries()

	e.mu.Lock()
	e.status = st
	e.entries = entries
	close(e.changed)
	e.changed = make(chan struct{})
	e.mu.Unlock()
}

// Status returns the most recently published snapshot.
func (e *Engine[S]) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// WaitFor blocks until pred holds for a published status or ctx is done.
func (e *Engine[S]) WaitFor(ctx context.Context, pred func(Status) bool) (Status, error) {
	for {
		e.mu.Lock()
		st, ch := e.status, e.changed
		e.mu.Unlock()

		if pred(st) {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Log returns a copy of the ActionLog as of the last published status.
func (e *Engine[S]) Log() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Action, len(e.entries))
	for i, a := range e.entries {
		a.Args = cloneArgs(a.Args)
		out[i] = a
	}
	return out
}

func (e *Engine[S]) emit(msg string, meta map[string]interface{}) {
	ev := emit.Event{
		SessionID: e.cfg.sessionID,
		Pass:      e.pass,
		Action:    -1,
		Step:      e.state.Step,
		Msg:       msg,
		Meta:      meta,
	}
	if e.state.ActionIndex < e.log.Len() && e.mode != ModeIdle {
		ev.Action = e.state.ActionIndex
		ev.Operation = e.log.At(e.state.ActionIndex).Name
	}
	e.cfg.emitter.Emit(ev)
}
