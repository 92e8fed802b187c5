// Package cli implements the animctl command tree.
package cli

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dshills/algoreplay/internal/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type app struct {
	cfg     config.Config
	loadErr error
	fs      afero.Fs
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
}

// Option customizes the command tree; tests use it to swap the filesystem
// and standard streams.
type Option func(*app)

// WithFs sets the filesystem used for config, scripts and log files.
func WithFs(fs afero.Fs) Option {
	return func(a *app) { a.fs = fs }
}

// WithIO sets standard input, output and error.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *app) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// NewRoot builds the animctl command. Configuration is read from the
// environment and ANIMCTL_CONFIG when the tree is built, so flags default to
// those values.
func NewRoot(opts ...Option) *cobra.Command {
	a := &app{
		fs:     afero.NewOsFs(),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cfg, a.loadErr = config.Load(a.fs)

	cmd := &cobra.Command{
		Use:           "animctl",
		Short:         "Step through algorithm animations with rewind",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.loadErr != nil {
				return a.loadErr
			}
			return a.cfg.Validate()
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	config.BindFlags(cmd.PersistentFlags(), &a.cfg)

	cmd.AddCommand(a.newPlayCmd())
	cmd.AddCommand(a.newScriptCmd())
	cmd.AddCommand(a.newHistoryCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the animctl version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("animctl %s\n", Version)
		},
	}
}
