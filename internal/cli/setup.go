package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HENNGE/lambda-container-example/internal/config"
	"github.com/HENNGE/lambda-container-example/internal/index"
	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/store"
	"github.com/HENNGE/lambda-container-example/internal/telemetry"
)

// Telemetry modes accepted by --telemetry.
const (
	TelemetryNone   = "none"
	TelemetryStdout = "stdout"
)

const (
	serviceName    = "cdcsync"
	metricInterval = time.Minute
)

func (o *RootOptions) getenv(key string) string {
	if o.Getenv != nil {
		return o.Getenv(key)
	}
	return os.Getenv(key)
}

// loadConfig reads --config (or the defaults) and overlays the environment.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return nil, err
		}
	}
	cfg.FromEnv(o.getenv)
	return cfg, nil
}

// newLogger configures the default logger based on the verbose flag.
// Logs always go to w, never to the command output.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// installTelemetry sets up the global providers for mode. The returned
// function flushes them; it is never nil.
func installTelemetry(mode string, w io.Writer) (telemetry.ShutdownFunc, error) {
	switch mode {
	case "", TelemetryNone:
		return func(context.Context) error { return nil }, nil
	case TelemetryStdout:
		return telemetry.InstallStdout(w, serviceName, Version, metricInterval)
	default:
		return nil, fmt.Errorf("invalid telemetry mode %q: must be %q or %q", mode, TelemetryNone, TelemetryStdout)
	}
}

// downstreams is a built processor plus the resources it holds.
type downstreams struct {
	processor *pipeline.Processor
	store     *store.Store
}

// Close releases the replica store, if one was opened.
func (d *downstreams) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// buildProcessor wires the reconciler and every configured downstream:
// the search index when any index setting is present, and the SQLite
// replica when a path is configured.
func buildProcessor(cfg *config.Config, logger *slog.Logger, extra ...pipeline.Option) (*downstreams, error) {
	validator, err := cfg.Validator()
	if err != nil {
		return nil, err
	}
	rec := reconcile.New(validator, reconcile.WithLogger(logger))

	tel, err := telemetry.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTelemetry(tel),
	}
	d := &downstreams{}

	if cfg.Index.Enabled() {
		ic, err := cfg.IndexConfig()
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithApplier(index.New(ic, index.WithLogger(logger))))
	}

	if cfg.Replica.Path != "" {
		st, err := store.Open(cfg.Replica.Path)
		if err != nil {
			return nil, fmt.Errorf("replica: %w", err)
		}
		d.store = st
		opts = append(opts, pipeline.WithApplier(st))
	}

	opts = append(opts, extra...)
	d.processor = pipeline.NewProcessor(rec, opts...)
	return d, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, or when
// parent is done.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	return ctx, cancel
}
