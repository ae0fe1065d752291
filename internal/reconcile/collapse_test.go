package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

func TestCollapseSingleEvent(t *testing.T) {
	x := obj(snapshot.F("v", snapshot.Int(1)))
	y := obj(snapshot.F("v", snapshot.Int(2)))

	for _, ev := range []RawEvent{
		{Key: key("a", "1"), Kind: KindInsert, New: x},
		{Key: key("a", "1"), Kind: KindModify, Old: x, New: y},
		{Key: key("a", "1"), Kind: KindRemove, Old: x},
	} {
		ts := Collapse([]RawEvent{ev})
		require.Equal(t, 1, ts.Len())

		tr, ok := ts.Get("a|1")
		require.True(t, ok)
		assert.Equal(t, Transition{Key: ev.Key, Old: ev.Old, New: ev.New}, tr)
	}
}

func TestCollapseFirstOldLastNew(t *testing.T) {
	v := func(n int64) snapshot.Object { return obj(snapshot.F("v", snapshot.Int(n))) }
	k := key("a", "1")

	tests := []struct {
		name    string
		events  []RawEvent
		wantOld snapshot.Object
		wantNew snapshot.Object
	}{
		{
			"insert then modify",
			[]RawEvent{
				{Key: k, Kind: KindInsert, New: v(1)},
				{Key: k, Kind: KindModify, Old: v(1), New: v(2)},
			},
			nil, v(2),
		},
		{
			"modify modify",
			[]RawEvent{
				{Key: k, Kind: KindModify, Old: v(1), New: v(2)},
				{Key: k, Kind: KindModify, Old: v(2), New: v(3)},
			},
			v(1), v(3),
		},
		{
			"insert then remove",
			[]RawEvent{
				{Key: k, Kind: KindInsert, New: v(1)},
				{Key: k, Kind: KindRemove, Old: v(1)},
			},
			nil, nil,
		},
		{
			"remove then insert",
			[]RawEvent{
				{Key: k, Kind: KindRemove, Old: v(1)},
				{Key: k, Kind: KindInsert, New: v(5)},
			},
			v(1), v(5),
		},
		{
			"inconsistent baselines ignored",
			[]RawEvent{
				{Key: k, Kind: KindModify, Old: v(1), New: v(2)},
				{Key: k, Kind: KindModify, Old: v(9), New: v(3)},
				{Key: k, Kind: KindRemove, Old: v(3)},
			},
			v(1), nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := Collapse(tt.events)
			tr, ok := ts.Get(k.ObjectID())
			require.True(t, ok)
			assert.Equal(t, tt.wantOld, tr.Old)
			assert.Equal(t, tt.wantNew, tr.New)
		})
	}
}

func TestCollapseFirstSeenOrder(t *testing.T) {
	x := obj(snapshot.F("v", snapshot.Int(1)))
	ts := Collapse([]RawEvent{
		{Key: key("b", "1"), Kind: KindInsert, New: x},
		{Key: key("a", "1"), Kind: KindInsert, New: x},
		{Key: key("b", "1"), Kind: KindRemove, Old: x},
		{Key: key("c", "1"), Kind: KindInsert, New: x},
	})

	var ids []string
	for _, tr := range ts.All() {
		ids = append(ids, tr.Key.ObjectID())
	}
	assert.Equal(t, []string{"b|1", "a|1", "c|1"}, ids)

	_, ok := ts.Get("zzz|1")
	assert.False(t, ok)
}
