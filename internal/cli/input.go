package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dshills/algoreplay/replay"
)

var (
	errQuit = errors.New("quit")
	// errNoControl reports a line that sent nothing to the engine.
	errNoControl = errors.New("no control")
)

// dispatch interprets one input line: a bound key fires its trigger,
// "size N" changes the element size, "q" quits and anything else executes
// the named operation with the remaining words as arguments.
func dispatch(s session, km replay.Keymap, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errNoControl
	}
	if t, ok := km[fields[0]]; ok && len(fields) == 1 {
		return s.Controls().Fire(t)
	}
	switch fields[0] {
	case "q", "quit", "exit":
		return errQuit
	case "size":
		if len(fields) != 2 {
			return errors.New("usage: size N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return errors.New("usage: size N")
		}
		return s.Resize(n)
	}
	args := make([]any, 0, len(fields)-1)
	for _, f := range fields[1:] {
		args = append(args, f)
	}
	return s.Controls().Execute(fields[0], args...)
}
