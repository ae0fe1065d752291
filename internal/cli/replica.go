package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/store"
)

// ReplicaOptions holds flags for the replica command.
type ReplicaOptions struct {
	*RootOptions
	Database string
	Batches  bool
}

// ObjectInfo is one replicated object in command output.
type ObjectInfo struct {
	ObjectID    string          `json:"object_id"`
	Body        snapshot.Object `json:"body"`
	Fingerprint string          `json:"fingerprint"`
	BatchID     string          `json:"batch_id"`
	Seq         int64           `json:"seq"`
}

// ReplicaResult holds the replica listing.
type ReplicaResult struct {
	Objects []ObjectInfo  `json:"objects,omitempty"`
	Batches []store.Batch `json:"batches,omitempty"`
	Count   int           `json:"count"`
}

// NewReplicaCommand creates the replica command.
func NewReplicaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplicaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replica [object-id]",
		Short: "Inspect a SQLite replica",
		Long: `Inspect the objects and batches recorded in a SQLite replica.

Without arguments every object is listed in object ID order. With an
object ID only that object is shown. --batches lists the applied batches
in apply order instead.

Examples:
  cdcsync replica --db ./replica.db
  cdcsync replica --db ./replica.db "user#1|profile"
  cdcsync replica --db ./replica.db --batches --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplica(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite replica (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.Batches, "batches", false, "list applied batches")

	return cmd
}

func runReplica(opts *ReplicaOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty replica
	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeReplica, "replica not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeReplica, "failed to open replica", err)
	}
	defer st.Close()

	var result ReplicaResult
	switch {
	case opts.Batches:
		batches, err := st.ListBatches(ctx)
		if err != nil {
			return outputCommandError(formatter, ErrCodeReplica, "failed to list batches", err)
		}
		result.Batches = batches
		result.Count = len(batches)

	case len(args) == 1:
		obj, err := st.Get(ctx, args[0])
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("object %q not found", args[0]), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("object %q not found", args[0]))
		}
		if err != nil {
			return outputCommandError(formatter, ErrCodeReplica, "failed to read object", err)
		}
		result.Objects = []ObjectInfo{objectInfo(obj)}
		result.Count = 1

	default:
		objects, err := st.ReadAll(ctx)
		if err != nil {
			return outputCommandError(formatter, ErrCodeReplica, "failed to read objects", err)
		}
		for _, obj := range objects {
			result.Objects = append(result.Objects, objectInfo(obj))
		}
		result.Count = len(objects)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	writeReplicaText(formatter.Writer, result)
	return nil
}

func objectInfo(obj store.Object) ObjectInfo {
	return ObjectInfo{
		ObjectID:    obj.ObjectID,
		Body:        obj.Body,
		Fingerprint: obj.Fingerprint,
		BatchID:     obj.BatchID,
		Seq:         obj.Seq,
	}
}

func writeReplicaText(w io.Writer, result ReplicaResult) {
	for _, b := range result.Batches {
		fmt.Fprintf(w, "#%d %s: %d operation(s) (+%d -%d ~%d), %d applied, %d failed\n",
			b.Seq, b.ID, b.Operations, b.Additions, b.Deletions, b.PartialUpdates, b.Applied, b.Failed)
	}
	for _, obj := range result.Objects {
		body, err := snapshot.MarshalCanonical(obj.Body)
		if err != nil {
			body = []byte("<" + err.Error() + ">")
		}
		fmt.Fprintf(w, "%s  batch=%s seq=%d  %s\n", obj.ObjectID, obj.BatchID, obj.Seq, body)
	}
	if result.Count == 0 {
		fmt.Fprintln(w, "Replica is empty.")
	}
}
