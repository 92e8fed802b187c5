package bst

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/algoreplay/replay"
)

// Register adds insert, find and delete to e.
func Register(e *replay.Engine[*Tree]) error {
	ops := map[string]replay.OperationFunc[*Tree]{
		"insert": Insert,
		"find":   Find,
		"delete": Delete,
	}
	for _, name := range []string{"insert", "find", "delete"} {
		if err := e.Register(name, ops[name]); err != nil {
			return err
		}
	}
	return nil
}

// ParseKey converts an action argument to a key. Numbers are stored in
// their shortest decimal form so that 4, int64(4), 4.0 and "4" are the same
// key; any other non-blank string is taken as is.
func ParseKey(args []any) (Key, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("missing key")
	}
	switch v := args[0].(type) {
	case int:
		return Key(strconv.Itoa(v)), nil
	case int64:
		return Key(strconv.FormatInt(v, 10)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("key %v is not a finite number", v)
		}
		return Key(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case string:
		k := strings.TrimSpace(v)
		if k == "" {
			return "", fmt.Errorf("key is blank")
		}
		if n, err := strconv.ParseInt(k, 10, 64); err == nil {
			return Key(strconv.FormatInt(n, 10)), nil
		}
		if f, ok := Key(k).number(); ok {
			return Key(strconv.FormatFloat(f, 'f', -1, 64)), nil
		}
		return Key(k), nil
	case Key:
		return ParseKey([]any{string(v)})
	}
	return "", fmt.Errorf("unsupported key type %T", args[0])
}

// invalid pauses on the validation message and reports a failed Result.
func invalid(ctx context.Context, st *replay.Stepper[*Tree], args []any, cause error) (replay.Result, error) {
	arg := ""
	if len(args) > 0 {
		arg = fmt.Sprint(args[0])
	}
	if err := st.Pause(ctx, "bst.invalid", arg); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: false, Message: cause.Error()}, nil
}

// Insert adds args[0] to the tree, pausing at every comparison.
// Equal keys go right.
func Insert(ctx context.Context, st *replay.Stepper[*Tree], args []any) (replay.Result, error) {
	key, err := ParseKey(args)
	if err != nil {
		return invalid(ctx, st, args, err)
	}
	t := st.Scene()
	defer t.clearHighlight()

	if t.Root == nil {
		t.Root = &Node{Key: key}
		t.highlight(key)
		if err := st.Pause(ctx, "bst.insert.root", key); err != nil {
			return replay.Result{}, err
		}
		return replay.Result{Success: true, Ref: key}, nil
	}

	n := t.Root
	for {
		t.highlight(n.Key)
		if err := st.Pause(ctx, "bst.insert.compare", key, n.Key); err != nil {
			return replay.Result{}, err
		}
		next := &n.Right
		msg := "bst.insert.right"
		if key.Compare(n.Key) < 0 {
			next = &n.Left
			msg = "bst.insert.left"
		}
		if err := st.Pause(ctx, msg, key, n.Key); err != nil {
			return replay.Result{}, err
		}
		if *next == nil {
			*next = &Node{Key: key}
			break
		}
		n = *next
	}

	t.highlight(key)
	if err := st.Pause(ctx, "bst.insert.placed", key); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: true, Ref: key}, nil
}

// Find searches for args[0], pausing at every visited node.
func Find(ctx context.Context, st *replay.Stepper[*Tree], args []any) (replay.Result, error) {
	key, err := ParseKey(args)
	if err != nil {
		return invalid(ctx, st, args, err)
	}
	t := st.Scene()
	defer t.clearHighlight()

	for n := t.Root; n != nil; {
		t.highlight(n.Key)
		if err := st.Pause(ctx, "bst.find.compare", key, n.Key); err != nil {
			return replay.Result{}, err
		}
		if n.Key.Compare(key) == 0 {
			if err := st.Pause(ctx, "bst.find.found", key); err != nil {
				return replay.Result{}, err
			}
			return replay.Result{Success: true, Ref: key}, nil
		}
		if key.Compare(n.Key) < 0 {
			n = n.Left
		} else {
			n = n.Right
		}
	}

	t.clearHighlight()
	if err := st.Pause(ctx, "bst.find.missing", key); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: false, Ref: key}, nil
}

// Delete removes args[0]. A node with two children is replaced by its
// in-order successor.
func Delete(ctx context.Context, st *replay.Stepper[*Tree], args []any) (replay.Result, error) {
	key, err := ParseKey(args)
	if err != nil {
		return invalid(ctx, st, args, err)
	}
	t := st.Scene()
	defer t.clearHighlight()

	link := &t.Root
	for *link != nil && (*link).Key.Compare(key) != 0 {
		t.highlight((*link).Key)
		if err := st.Pause(ctx, "bst.find.compare", key, (*link).Key); err != nil {
			return replay.Result{}, err
		}
		if key.Compare((*link).Key) < 0 {
			link = &(*link).Left
		} else {
			link = &(*link).Right
		}
	}
	if *link == nil {
		t.clearHighlight()
		if err := st.Pause(ctx, "bst.delete.missing", key); err != nil {
			return replay.Result{}, err
		}
		return replay.Result{Success: false, Ref: key}, nil
	}

	n := *link
	t.highlight(n.Key)
	switch {
	case n.Left == nil && n.Right == nil:
		if err := st.Pause(ctx, "bst.delete.leaf", key); err != nil {
			return replay.Result{}, err
		}
		*link = nil
	case n.Left == nil || n.Right == nil:
		if err := st.Pause(ctx, "bst.delete.onechild", key); err != nil {
			return replay.Result{}, err
		}
		if n.Left != nil {
			*link = n.Left
		} else {
			*link = n.Right
		}
	default:
		succLink := &n.Right
		for (*succLink).Left != nil {
			succLink = &(*succLink).Left
		}
		succ := *succLink
		t.highlight(succ.Key)
		if err := st.Pause(ctx, "bst.delete.successor", key, succ.Key); err != nil {
			return replay.Result{}, err
		}
		*succLink = succ.Right
		n.Key = succ.Key
	}

	t.clearHighlight()
	if err := st.Pause(ctx, "bst.delete.done", key); err != nil {
		return replay.Result{}, err
	}
	return replay.Result{Success: true, Ref: key}, nil
}
