package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Object is one replicated object row.
type Object struct {
	ObjectID    string
	Body        snapshot.Object
	Fingerprint string
	BatchID     string
	Seq         int64
}

// Batch is one recorded apply.
type Batch struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	Operations     int    `json:"operations"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	PartialUpdates int    `json:"partial_updates"`
	Applied        int    `json:"applied"`
	Failed         int    `json:"failed"`
}

// Get returns one object by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) Get(ctx context.Context, objectID string) (Object, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT object_id, body, fingerprint, batch_id, seq
		FROM objects
		WHERE object_id = ?
	`, objectID)
	return scanObject(row)
}

// ReadAll returns every object ordered by object ID.
// Returns an empty slice (not nil) for an empty replica.
func (s *Store) ReadAll(ctx context.Context) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_id, body, fingerprint, batch_id, seq
		FROM objects
		ORDER BY object_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	objects := []Object{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}

// Count returns the number of replicated objects.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count objects: %w", err)
	}
	return n, nil
}

// ListBatches returns recorded batches, oldest first.
func (s *Store) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, operations, additions, deletions, partial_updates, applied, failed
		FROM batches
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Seq, &b.Operations, &b.Additions, &b.Deletions,
			&b.PartialUpdates, &b.Applied, &b.Failed); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObject(sc scanner) (Object, error) {
	var obj Object
	var body string
	if err := sc.Scan(&obj.ObjectID, &body, &obj.Fingerprint, &obj.BatchID, &obj.Seq); err != nil {
		if err == sql.ErrNoRows {
			return Object{}, err
		}
		return Object{}, fmt.Errorf("scan object: %w", err)
	}
	parsed, err := unmarshalBody(body)
	if err != nil {
		return Object{}, fmt.Errorf("object %s: %w", obj.ObjectID, err)
	}
	obj.Body = parsed
	return obj, nil
}
