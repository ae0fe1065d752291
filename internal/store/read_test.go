package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadAll_OrderedByObjectID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = s.Apply(ctx, "b1", []reconcile.Operation{
		add("c|1", snapshot.Object{}),
		add("a|1", snapshot.Object{}),
		add("b|1", snapshot.Object{}),
	})
	require.NoError(t, err)

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, o := range all {
		ids = append(ids, o.ObjectID)
	}
	assert.Equal(t, []string{"a|1", "b|1", "c|1"}, ids)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReadAll_PreservesNestedValues(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	fields := snapshot.Object{
		"tags":  snapshot.Array{snapshot.String("b"), snapshot.String("a")},
		"attrs": snapshot.Object{"on": snapshot.Bool(true), "none": snapshot.Null{}},
	}
	_, err := s.Apply(ctx, "b1", []reconcile.Operation{add("x|1", fields)})
	require.NoError(t, err)

	obj, err := s.Get(ctx, "x|1")
	require.NoError(t, err)
	assert.True(t, snapshot.Equivalent(add("x|1", fields).Body(), obj.Body))
	assert.Equal(t, snapshot.Array{snapshot.String("b"), snapshot.String("a")}, obj.Body["tags"])
}
