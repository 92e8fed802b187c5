package sorting

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/algoreplay/replay"
)

// Register adds load, bubble and scan to e.
func Register(e *replay.Engine[*Array]) error {
	if err := e.Register("load", replay.OperationFunc[*Array](Load)); err != nil {
		return err
	}
	if err := e.Register("bubble", replay.OperationFunc[*Array](Bubble)); err != nil {
		return err
	}
	return e.Register("scan", replay.OperationFunc[*Array](Scan))
}

func parseValue(arg any) (int, error) {
	switch v := arg.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("value %v is not an integer", arg)
}

// Load replaces the array with args. A single string argument is split on
// commas and whitespace.
func Load(ctx context.Context, st *replay.Stepper[*Array], args []any) (replay.Result, error) {
	if len(args) == 1 {
		if s, ok := args[0].(string); ok {
			args = nil
			for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
				args = append(args, f)
			}
		}
	}
	values := make([]int, 0, len(args))
	for _, arg := range args {
		v, err := parseValue(arg)
		if err != nil {
			if perr := st.Pause(ctx, "sorting.invalid", fmt.Sprint(arg)); perr != nil {
				return replay.Result{}, perr
			}
			return replay.Result{Success: false, Message: err.Error()}, nil
		}
		values = append(values, v)
	}

	a := st.Scene()
	a.Values = values
	a.Settled = 0
	a.Marked = nil
	if err := st.Pause(ctx, "sorting.load", len(values)); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: true, Ref: len(values)}, nil
}

// Bubble sorts the array in place, pausing at every comparison and swap.
// It stops early after a pass with no swaps.
func Bubble(ctx context.Context, st *replay.Stepper[*Array], _ []any) (replay.Result, error) {
	a := st.Scene()
	defer a.mark()

	n := len(a.Values)
	swaps := 0
	for pass := 0; pass < n-1; pass++ {
		swapped := false
		for i := 0; i < n-1-pass; i++ {
			a.mark(i, i+1)
			if err := st.Pause(ctx, "sorting.compare", i, i+1); err != nil {
				return replay.Result{}, err
			}
			if a.Values[i] > a.Values[i+1] {
				a.Values[i], a.Values[i+1] = a.Values[i+1], a.Values[i]
				swapped = true
				swaps++
				if err := st.Pause(ctx, "sorting.swap", a.Values[i+1], a.Values[i]); err != nil {
					return replay.Result{}, err
				}
			}
		}
		a.Settled = pass + 1
		a.mark()
		if err := st.Pause(ctx, "sorting.pass", pass+1); err != nil {
			return replay.Result{}, err
		}
		if !swapped {
			break
		}
	}

	a.Settled = n
	if err := st.Pause(ctx, "sorting.sorted"); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: true, Ref: swaps}, nil
}

// Scan searches the array left to right for args[0].
func Scan(ctx context.Context, st *replay.Stepper[*Array], args []any) (replay.Result, error) {
	if len(args) == 0 {
		return invalidTarget(ctx, st, nil)
	}
	target, err := parseValue(args[0])
	if err != nil {
		return invalidTarget(ctx, st, args[0])
	}

	a := st.Scene()
	defer a.mark()
	for i, v := range a.Values {
		a.mark(i)
		if err := st.Pause(ctx, "sorting.scan.visit", i); err != nil {
			return replay.Result{}, err
		}
		if v == target {
			if err := st.Pause(ctx, "sorting.scan.found", target, i); err != nil {
				return replay.Result{}, err
			}
			return replay.Result{Success: true, Ref: i}, nil
		}
	}

	a.mark()
	if err := st.Pause(ctx, "sorting.scan.missing", target); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: false, Ref: -1}, nil
}

func invalidTarget(ctx context.Context, st *replay.Stepper[*Array], arg any) (replay.Result, error) {
	if err := st.Pause(ctx, "sorting.invalid", fmt.Sprint(arg)); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: false, Message: fmt.Sprintf("invalid scan target %v", arg)}, nil
}
