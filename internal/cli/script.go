package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/algoreplay/replay"
)

// Script is a recorded list of input lines run against one engine.
type Script struct {
	// Visualization overrides the configured visualization when set.
	Visualization string `yaml:"visualization"`

	// Commands use the same syntax as play input.
	Commands []string `yaml:"commands"`
}

// LoadScript reads a YAML script from fs.
func LoadScript(fs afero.Fs, path string) (Script, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var sc Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(sc.Commands) == 0 {
		return Script{}, fmt.Errorf("script %s has no commands", path)
	}
	return sc, nil
}

func (a *app) newScriptCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Run a YAML script of commands and print the final frame",
		Long: `Script runs each command in FILE after the engine is ready for input,
then prints the last frame. Example:

  visualization: bst
  commands:
    - insert 5
    - f
    - insert 3
    - b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScript(a.fs, args[0])
			if err != nil {
				return err
			}
			return a.runScript(cmd.Context(), sc, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every frame")
	return cmd
}

func (a *app) runScript(ctx context.Context, sc Script, verbose bool) error {
	cfg := a.cfg
	if sc.Visualization != "" {
		cfg.Visualization = sc.Visualization
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	km, err := replay.ParseKeymap(cfg.Keymap)
	if err != nil {
		return err
	}
	rt, err := a.setup(ctx, a.errOut)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	frames := &frameWriter{out: a.out, print: verbose}
	s, err := newSession(cfg, rt.engineOptions(cfg), frames)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	stop := func() error {
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	for i, line := range sc.Commands {
		err := settle(ctx, s, func() error { return dispatch(s, km, line) })
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			_ = stop()
			return fmt.Errorf("command %d %q: %w", i+1, line, err)
		}
	}
	if err := stop(); err != nil {
		return err
	}

	if !verbose {
		fmt.Fprint(a.out, s.LastFrame())
	}
	fmt.Fprintf(a.out, "session %s\n", s.SessionID())
	return nil
}
