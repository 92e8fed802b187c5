// Package logging builds the animctl slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/afero"
)

// Options selects handlers and level.
type Options struct {
	Level slog.Level

	// Terminal receives human-readable text. Nil disables it.
	Terminal io.Writer

	// File, when set, is opened through FS and receives records in Format.
	File   string
	Format string
	FS     afero.Fs
}

// New returns a logger fanning records out to every configured handler,
// and a function closing the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if opts.Terminal != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Terminal, handlerOpts))
	}

	closer := func() error { return nil }
	if opts.File != "" {
		fs := opts.FS
		if fs == nil {
			fs = afero.NewOsFs()
		}
		f, err := fs.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closer = f.Close
		if strings.EqualFold(opts.Format, "json") {
			handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(f, handlerOpts))
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler), closer, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
