package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/algoreplay/internal/config"
	"github.com/dshills/algoreplay/internal/logging"
	"github.com/dshills/algoreplay/internal/telemetry"
	"github.com/dshills/algoreplay/messages"
	"github.com/dshills/algoreplay/replay"
	"github.com/dshills/algoreplay/replay/emit"
	"github.com/dshills/algoreplay/replay/store"
)

// runtime holds the collaborators shared by a command's engine.
type runtime struct {
	logger   *slog.Logger
	store    store.Store
	registry *prometheus.Registry
	metrics  *replay.PrometheusMetrics
	tracer   trace.TracerProvider
	format   replay.Formatter

	closers []func(context.Context) error
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return store.NewSQLiteStore(cfg.DBDSN)
	case "mysql":
		return store.NewMySQLStore(cfg.DBDSN)
	default:
		return store.NewMemStore(), nil
	}
}

func (a *app) setup(ctx context.Context, terminal io.Writer) (*runtime, error) {
	cfg := a.cfg
	rt := &runtime{}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(logging.Options{
		Level:    level,
		Terminal: terminal,
		File:     cfg.LogFile,
		Format:   cfg.LogFormat,
		FS:       a.fs,
	})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	rt.logger = logger
	rt.closers = append(rt.closers, func(context.Context) error { return closeLog() })

	st, err := openStore(cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	rt.store = st
	rt.closers = append(rt.closers, func(context.Context) error { return st.Close() })

	tp, shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("set up tracing: %w", err)
	}
	rt.tracer = tp
	rt.closers = append(rt.closers, shutdown)

	rt.registry = telemetry.NewRegistry()
	rt.metrics = replay.NewPrometheusMetrics(rt.registry)

	bundle, err := messages.Load()
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	if rt.format, err = bundle.Formatter(cfg.Locale); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) engineOptions(cfg config.Config) []replay.Option {
	id := cfg.SessionID
	if id == "" {
		id = replay.NewSessionID()
	}
	return []replay.Option{
		replay.WithSessionID(id),
		replay.WithLogger(rt.logger),
		replay.WithMetrics(rt.metrics),
		replay.WithStore(rt.store),
		replay.WithInterval(cfg.Speed),
		replay.WithRunning(cfg.Running),
		replay.WithFormatter(rt.format),
		replay.WithEmitter(emit.NewMulti(
			emit.NewSlogEmitter(rt.logger),
			emit.NewOTelEmitter(rt.tracer.Tracer("algoreplay")),
		)),
	}
}

// Close releases collaborators in reverse order of acquisition.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
