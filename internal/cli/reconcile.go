package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Apply    bool
	Database string
	BatchID  string
}

// RejectionInfo is a dropped record in command output.
type RejectionInfo struct {
	Code    string `json:"code"`
	EventID string `json:"event_id,omitempty"`
	Message string `json:"message"`
}

// ReconcileResult is the reconcile command output.
type ReconcileResult struct {
	BatchID    string                   `json:"batch_id"`
	Stats      reconcile.Stats          `json:"stats"`
	Operations []reconcile.Operation    `json:"operations"`
	Rejections []RejectionInfo          `json:"rejections,omitempty"`
	Applied    []*reconcile.ApplyResult `json:"applied,omitempty"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile <batch.json | ->",
		Short: "Reconcile one stream batch from a file",
		Long: `Reconcile a stream event read from a file (or stdin with "-") and print
the resulting operations and stats.

Without --apply this is a dry run. With --apply the operations are applied
to every configured downstream; --db adds (or overrides) the SQLite
replica.

Exit codes:
  0 - Batch reconciled (and applied, with --apply)
  1 - One or more operations failed downstream
  2 - Command error (unreadable input, bad configuration, etc.)

Examples:
  cdcsync reconcile batch.json
  cdcsync reconcile batch.json --apply --db ./replica.db
  cat batch.json | cdcsync reconcile - --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "apply operations to the configured downstreams")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite replica path (implies a replica downstream)")
	cmd.Flags().StringVar(&opts.BatchID, "batch-id", "", "batch ID to record (default: generated UUIDv7)")

	return cmd
}

func runReconcile(opts *ReconcileOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	data, err := readInput(input, cmd.InOrStdin())
	if err != nil {
		return outputCommandError(formatter, ErrCodeInput, "failed to read batch", err)
	}
	ev, err := stream.ParseEvent(data)
	if err != nil {
		return outputCommandError(formatter, ErrCodeInput, "failed to parse batch", err)
	}
	formatter.VerboseLog("Read %d record(s) from %s", len(ev.Records), input)

	cfg, err := opts.loadConfig()
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg.Replica.Path = opts.Database
	}

	var extra []pipeline.Option
	if opts.BatchID != "" {
		extra = append(extra, pipeline.WithIDGenerator(pipeline.NewFixedGenerator(opts.BatchID)))
	}
	d, err := buildProcessor(cfg, logger, extra...)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, "failed to build processor", err)
	}
	defer d.Close()

	var out *pipeline.Outcome
	var applyErr error
	if opts.Apply {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		out, applyErr = d.processor.Process(ctx, ev)
	} else {
		out = d.processor.Plan(ev)
	}

	result := newReconcileResult(out)
	if applyErr != nil {
		return outputApplyError(formatter, result, applyErr)
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeReconcileText(formatter.Writer, result)
	return nil
}

func readInput(input string, stdin io.Reader) ([]byte, error) {
	if input == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(input)
}

func newReconcileResult(out *pipeline.Outcome) ReconcileResult {
	result := ReconcileResult{
		BatchID:    out.BatchID,
		Stats:      out.Stats(),
		Operations: []reconcile.Operation{},
		Applied:    out.Applied,
	}
	if out.Result == nil {
		return result
	}
	result.Operations = append(result.Operations, out.Result.Operations...)
	for _, rej := range out.Result.Rejections {
		result.Rejections = append(result.Rejections, RejectionInfo{
			Code:    string(rej.Code),
			EventID: rej.EventID,
			Message: rej.Error(),
		})
	}
	return result
}

// writeReconcileText prints one line per operation followed by the stats.
func writeReconcileText(w io.Writer, result ReconcileResult) {
	fmt.Fprintf(w, "Batch %s: %d operation(s)\n", result.BatchID, len(result.Operations))
	for _, op := range result.Operations {
		if len(op.Fields) == 0 {
			fmt.Fprintf(w, "  %-20s %s\n", op.Action, op.ObjectID)
			continue
		}
		fields, err := snapshot.MarshalCanonical(op.Fields)
		if err != nil {
			fields = []byte("<" + err.Error() + ">")
		}
		fmt.Fprintf(w, "  %-20s %s %s\n", op.Action, op.ObjectID, fields)
	}

	for _, rej := range result.Rejections {
		fmt.Fprintf(w, "  rejected: %s\n", rej.Message)
	}

	s := result.Stats
	fmt.Fprintf(w, "Stats: records=%d rejected=%d excluded=%d entities=%d noop=%d additions=%d deletions=%d updates=%d\n",
		s.Records, s.Rejected, s.Excluded, s.DistinctEntities, s.Noop, s.Additions, s.Deletions, s.Updates)

	for _, res := range result.Applied {
		fmt.Fprintf(w, "Applied: %s\n", res.Summary())
	}
}

// outputApplyError reports a batch that failed downstream. The result is
// still printed so the failed operations are visible.
func outputApplyError(formatter *OutputFormatter, result ReconcileResult, err error) error {
	code := string(pipeline.CodeOf(err))
	if formatter.Format == "json" {
		_ = formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: code, Message: err.Error()},
		})
	} else {
		writeReconcileText(formatter.Writer, result)
		fmt.Fprintf(formatter.Writer, "Error [%s]: %s\n", code, err.Error())
	}

	if pipeline.CodeOf(err) == pipeline.ErrCodeApplyFailed {
		return WrapExitError(ExitFailure, "batch failed", err)
	}
	return WrapExitError(ExitCommandError, "batch failed", err)
}
