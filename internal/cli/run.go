package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/HENNGE/lambda-container-example/internal/config"
	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/runtimeapi"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// successBody is the invocation response for a fully applied batch.
const successBody = "SUCCESS"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Telemetry string

	// IDGenerator allows overriding the batch ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator pipeline.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run as a Lambda container runtime",
		Long: `Poll the Lambda runtime API for stream batches and reconcile each one.

Every invocation payload is a stream event. The batch is reconciled and
applied to the configured downstreams; the invocation succeeds with
"SUCCESS" once every operation was acknowledged and fails otherwise, so the
stream retries the batch.

Environment:
  AWS_LAMBDA_RUNTIME_API   runtime API host (required)
  ALGOLIA_APP_ID           search index application ID
  ALGOLIA_API_KEY          search index API key
  ALGOLIA_INDEX_NAME       search index name
  CDCSYNC_REPLICA          SQLite replica path

Example:
  cdcsync run
  cdcsync run --config cdcsync.yaml --telemetry stdout`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Telemetry, "telemetry", TelemetryNone, "telemetry export (none|stdout)")

	return cmd
}

func runLambda(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cfg.RuntimeAPI == "" {
		return NewExitError(ExitCommandError, config.EnvRuntimeAPI+" is not set")
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

	var extra []pipeline.Option
	if opts.IDGenerator != nil {
		extra = append(extra, pipeline.WithIDGenerator(opts.IDGenerator))
	}
	d, err := buildProcessor(cfg, logger, extra...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build processor", err)
	}
	defer func() {
		if closeErr := d.Close(); closeErr != nil {
			slog.Error("error closing replica", "error", closeErr)
		}
	}()

	// Batches still run without downstreams; each one fails with MISSING_CONFIG.
	if err := d.processor.Check(); err != nil {
		logger.Warn("downstreams not ready", "error", err)
	}

	client, err := runtimeapi.New(cfg.RuntimeAPI, runtimeapi.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create runtime client", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	handler := runtimeapi.HandlerFunc(func(ctx context.Context, inv *runtimeapi.Invocation) ([]byte, error) {
		ev, err := stream.ParseEvent(inv.Payload)
		if err != nil {
			return nil, err
		}
		if _, err := d.processor.Process(ctx, ev); err != nil {
			return nil, err
		}
		return []byte(successBody), nil
	})

	err = client.Serve(ctx, handler)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "runtime loop failed", err)
	}

	slog.Info("runtime loop stopped gracefully")
	return nil
}
