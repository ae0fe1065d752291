package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaEmptyForSameSnapshot(t *testing.T) {
	for _, v := range sample() {
		obj, ok := v.(Object)
		if !ok || obj == nil {
			continue
		}
		assert.Empty(t, Delta(obj, obj))
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name       string
		prev, next Object
		want       Object
	}{
		{
			"removed field is not represented",
			Object{"a": Int(1), "b": Int(2)},
			Object{"a": Int(1)},
			Object{},
		},
		{
			"changed field",
			Object{"a": Int(1), "b": String("x")},
			Object{"a": Int(1), "b": String("y")},
			Object{"b": String("y")},
		},
		{
			"new field",
			Object{"a": Int(1)},
			Object{"a": Int(1), "c": Bool(false)},
			Object{"c": Bool(false)},
		},
		{
			"reordered array is unchanged",
			Object{"tags": Array{String("a"), String("b")}},
			Object{"tags": Array{String("b"), String("a")}, "n": Null{}},
			Object{"n": Null{}},
		},
		{
			"nil prev",
			nil,
			Object{"a": Int(1)},
			Object{"a": Int(1)},
		},
		{
			"type change",
			Object{"a": Int(1)},
			Object{"a": String("1")},
			Object{"a": String("1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Delta(tt.prev, tt.next))
		})
	}
}

func TestRemoved(t *testing.T) {
	prev := Object{"a": Int(1), "c": Int(2), "b": Int(3)}
	next := Object{"a": Int(1)}
	assert.Equal(t, []string{"b", "c"}, Removed(prev, next))
	assert.Empty(t, Removed(next, prev))
}
