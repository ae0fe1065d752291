package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Apply applies ops in order inside one transaction and records the batch.
//
// Operations that cannot be applied (empty object ID, unknown action) are
// reported in the result and skipped; the rest of the batch still commits.
// Database errors roll back the whole batch and are returned.
//
// Re-applying a batch ID keeps its original seq. Operation semantics are
// idempotent, so replaying a batch converges to the same replica state.
func (s *Store) Apply(ctx context.Context, batchID string, ops []reconcile.Operation) (*reconcile.ApplyResult, error) {
	if batchID == "" {
		return nil, fmt.Errorf("apply: empty batch id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err := batchSeq(ctx, tx, batchID)
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	res := &reconcile.ApplyResult{Target: s.Target()}
	var counts struct{ add, del, partial int }
	for i, op := range ops {
		if op.ObjectID == "" {
			res.Fail(i, op, "empty object id")
			continue
		}

		var err error
		switch op.Action {
		case reconcile.ActionDelete:
			counts.del++
			err = deleteObject(ctx, tx, op.ObjectID)
		case reconcile.ActionAdd:
			counts.add++
			err = putObject(ctx, tx, op.Body(), op.ObjectID, batchID, seq)
		case reconcile.ActionPartialUpdate:
			counts.partial++
			err = mergeObject(ctx, tx, op, batchID, seq)
		default:
			res.Fail(i, op, fmt.Sprintf("unknown action %q", op.Action))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("apply %s %s: %w", op.Action, op.ObjectID, err)
		}
		res.Applied++
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE batches
		SET operations = ?, additions = ?, deletions = ?, partial_updates = ?, applied = ?, failed = ?
		WHERE id = ?
	`, len(ops), counts.add, counts.del, counts.partial, res.Applied, len(res.Failed), batchID)
	if err != nil {
		return nil, fmt.Errorf("apply: record batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply: commit: %w", err)
	}
	return res, nil
}

// batchSeq inserts the batch row if needed and returns its seq.
func batchSeq(ctx context.Context, tx *sql.Tx, batchID string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO batches
		(id, seq, operations, additions, deletions, partial_updates, applied, failed)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM batches), 0, 0, 0, 0, 0, 0)
		ON CONFLICT(id) DO NOTHING
	`, batchID)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM batches WHERE id = ?`, batchID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read batch seq: %w", err)
	}
	return seq, nil
}

func deleteObject(ctx context.Context, tx *sql.Tx, objectID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE object_id = ?`, objectID)
	return err
}

func putObject(ctx context.Context, tx *sql.Tx, body snapshot.Object, objectID, batchID string, seq int64) error {
	data, err := marshalBody(body)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects (object_id, body, fingerprint, batch_id, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(object_id) DO UPDATE SET
			body = excluded.body,
			fingerprint = excluded.fingerprint,
			batch_id = excluded.batch_id,
			seq = excluded.seq
	`, objectID, data, snapshot.Fingerprint(body), batchID, seq)
	return err
}

// mergeObject overlays the operation's fields on the stored body. A
// missing object is created from the fields alone.
func mergeObject(ctx context.Context, tx *sql.Tx, op reconcile.Operation, batchID string, seq int64) error {
	var data string
	err := tx.QueryRowContext(ctx, `SELECT body FROM objects WHERE object_id = ?`, op.ObjectID).Scan(&data)

	body := snapshot.Object{}
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if body, err = unmarshalBody(data); err != nil {
			return err
		}
	}

	for k, v := range op.Body() {
		body[k] = v
	}
	return putObject(ctx, tx, body, op.ObjectID, batchID, seq)
}
