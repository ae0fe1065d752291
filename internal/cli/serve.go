package cli

import (
	"context"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/HENNGE/lambda-container-example/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr      string
	Telemetry string

	// Listener allows injecting a pre-bound listener (for testing).
	// If nil, the server listens on Addr.
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciler over HTTP",
		Long: `Start an HTTP server that reconciles stream batches.

Endpoints:
  GET  /health         liveness probe
  GET  /metrics        Prometheus request metrics
  POST /v1/reconcile   dry run: returns operations and stats
  POST /v1/apply       reconcile and apply to the configured downstreams

Example:
  cdcsync serve --addr :8080
  cdcsync serve --config cdcsync.yaml --telemetry stdout`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.Telemetry, "telemetry", TelemetryNone, "telemetry export (none|stdout)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	shutdown, err := installTelemetry(opts.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up telemetry", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("error flushing telemetry", "error", err)
		}
	}()

	d, err := buildProcessor(cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build processor", err)
	}
	defer func() {
		if closeErr := d.Close(); closeErr != nil {
			slog.Error("error closing replica", "error", closeErr)
		}
	}()

	srv := server.New(d.processor, addr, server.WithLogger(logger))

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if opts.Listener != nil {
		err = srv.Serve(ctx, opts.Listener)
	} else {
		err = srv.ListenAndServe(ctx)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
