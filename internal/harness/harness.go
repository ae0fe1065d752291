package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/store"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

const (
	seedBatchID     = "seed"
	scenarioBatchID = "scenario"
)

// Run executes a scenario and returns the result.
//
// Each scenario builds its own reconciler from the scenario config and,
// when it has a replica section, its own in-memory database. An error is
// returned only when the scenario cannot be executed; mismatches are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cfg := scenario.Config
	validator, err := cfg.Validator()
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}
	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := reconcile.New(validator, reconcile.WithLogger(logger))

	res := rec.Reconcile(stream.Event{Records: scenario.Records})

	result := NewResult()
	result.Operations = append(result.Operations, res.Operations...)
	result.Stats = res.Stats
	for _, rej := range res.Rejections {
		result.Rejections = append(result.Rejections, string(rej.Code))
	}

	if scenario.Replica != nil {
		objects, err := applyToReplica(context.Background(), scenario.Replica.Seed, res.Operations)
		if err != nil {
			return nil, fmt.Errorf("failed to apply to replica: %w", err)
		}
		result.Replica = objects
	}

	for _, msg := range EvaluateExpectations(scenario, result) {
		result.AddError(msg)
	}
	return result, nil
}

// applyToReplica seeds a fresh in-memory store, applies ops and returns
// every object body in object ID order.
func applyToReplica(ctx context.Context, seed []map[string]any, ops []reconcile.Operation) ([]snapshot.Object, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if len(seed) > 0 {
		seedOps := make([]reconcile.Operation, 0, len(seed))
		for i, body := range seed {
			obj, err := toObject(body)
			if err != nil {
				return nil, fmt.Errorf("seed[%d]: %w", i, err)
			}
			id, _ := obj[reconcile.ObjectIDField].(snapshot.String)
			delete(obj, reconcile.ObjectIDField)
			seedOps = append(seedOps, reconcile.Operation{Action: reconcile.ActionAdd, ObjectID: string(id), Fields: obj})
		}
		if err := applyAll(ctx, st, seedBatchID, seedOps); err != nil {
			return nil, err
		}
	}

	if err := applyAll(ctx, st, scenarioBatchID, ops); err != nil {
		return nil, err
	}

	rows, err := st.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	objects := make([]snapshot.Object, len(rows))
	for i, row := range rows {
		objects[i] = row.Body
	}
	return objects, nil
}

func applyAll(ctx context.Context, st *store.Store, batchID string, ops []reconcile.Operation) error {
	res, err := st.Apply(ctx, batchID, ops)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%s", res.Summary())
	}
	return nil
}

// toObject converts a decoded YAML map into a snapshot object.
func toObject(m map[string]any) (snapshot.Object, error) {
	if m == nil {
		return snapshot.Object{}, nil
	}
	v, err := snapshot.FromAny(m)
	if err != nil {
		return nil, err
	}
	return v.(snapshot.Object), nil
}
