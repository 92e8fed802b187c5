package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/algoreplay/internal/telemetry"
	"github.com/dshills/algoreplay/replay"
)

func (a *app) newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Drive an animation interactively from the terminal",
		Long: `Play reads commands from standard input, one per line:

  <key>          a bound navigation key (see the list printed at start)
  size N         change the element size and redraw
  <op> args...   run an operation, e.g. "insert 5"
  q              quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.play(cmd.Context())
		},
	}
}

func (a *app) play(ctx context.Context) error {
	km, err := replay.ParseKeymap(a.cfg.Keymap)
	if err != nil {
		return err
	}
	rt, err := a.setup(ctx, a.errOut)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	frames := &frameWriter{out: a.out, print: true}
	s, err := newSession(a.cfg, rt.engineOptions(a.cfg), frames)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "session %s | keys: %s\n", s.SessionID(), describeKeymap(km))

	var ln net.Listener
	if a.cfg.MetricsAddr != "" {
		if ln, err = net.Listen("tcp", a.cfg.MetricsAddr); err != nil {
			return fmt.Errorf("listen for metrics: %w", err)
		}
		rt.logger.Info("serving metrics", "addr", ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Serve(gctx) })
	if ln != nil {
		g.Go(func() error { return telemetry.ServeMetrics(gctx, ln, rt.registry) })
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-gctx.Done():
				return
			}
		}
	}()

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return errQuit
				}
				err := settle(gctx, s, func() error { return dispatch(s, km, line) })
				switch {
				case errors.Is(err, errQuit):
					return errQuit
				case errors.Is(err, replay.ErrNotListening):
					frames.printf("busy: input ignored\n")
				case gctx.Err() != nil:
					return nil
				case err != nil:
					frames.printf("error: %v\n", err)
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// settle waits for a listener set, delivers a control with fn and waits for
// the engine to install the next listener set. If fn sent nothing there is
// no next set to wait for.
func settle(ctx context.Context, s session, fn func() error) error {
	st, err := s.WaitFor(ctx, func(st replay.Status) bool { return st.Listening })
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		if errors.Is(err, errNoControl) {
			return nil
		}
		return err
	}
	_, err = s.WaitFor(ctx, func(next replay.Status) bool {
		return next.Listening && next.Epoch > st.Epoch
	})
	return err
}

func describeKeymap(km replay.Keymap) string {
	pairs := make([]string, 0, len(km))
	for k, t := range km {
		pairs = append(pairs, k+"="+t.String())
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
