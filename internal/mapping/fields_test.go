package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

func searchFields() []Field {
	return []Field{
		{Name: "a_text", Type: TypeText},
		{Name: "an_array", Type: TypeNumberSet},
		{Name: "a_boolean", Type: TypeBool},
		{Name: "an_integer", Type: TypeInt},
		{Name: "a_converted_array", Source: "a_mapping", Type: TypeMapValues},
	}
}

func TestFieldMapperDefaults(t *testing.T) {
	m, err := NewFieldMapper("hash", "range", searchFields())
	require.NoError(t, err)

	obj, err := m.Map(reconcile.EntityKey{Hash: "h", Range: "r"}, stream.Image{})
	require.NoError(t, err)
	assert.Equal(t, snapshot.Object{
		"hash":              snapshot.String("h"),
		"range":             snapshot.String("r"),
		"a_text":            snapshot.String(""),
		"an_array":          snapshot.Array{},
		"a_boolean":         snapshot.Bool(false),
		"an_integer":        snapshot.Null{},
		"a_converted_array": snapshot.Array{},
	}, obj)
}

func TestFieldMapperCoercions(t *testing.T) {
	m, err := NewFieldMapper("", "", searchFields())
	require.NoError(t, err)

	obj, err := m.Map(reconcile.EntityKey{Hash: "h", Range: "r"}, stream.Image{
		// "e" followed by a combining acute accent normalizes to U+00E9.
		"a_text":     stream.Str("cafe\u0301"),
		"an_array":   stream.NumberSet("1", "2"),
		"a_boolean":  stream.Str("1"),
		"an_integer": stream.Num("12.9"),
		"a_mapping": stream.Map(map[string]stream.AttributeValue{
			"b": stream.Str("second"),
			"a": stream.Str("first"),
			"c": stream.Str(""),
			"d": stream.Num("4"),
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, snapshot.Object{
		"a_text":            snapshot.String("caf\u00e9"),
		"an_array":          snapshot.Array{snapshot.String("1"), snapshot.String("2")},
		"a_boolean":         snapshot.Bool(true),
		"an_integer":        snapshot.Int(12),
		"a_converted_array": snapshot.Array{snapshot.String("first"), snapshot.String("second")},
	}, obj)
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		name string
		av   stream.AttributeValue
		want snapshot.Value
	}{
		{"number", stream.Num("42"), snapshot.Int(42)},
		{"negative fraction", stream.Num("-3.7"), snapshot.Int(-3)},
		{"digit string", stream.Str("17"), snapshot.Int(17)},
		{"exponent stops at e", stream.Num("1e3"), snapshot.Int(1)},
		{"trailing text", stream.Num("12abc"), snapshot.Int(12)},
		{"no leading digits", stream.Num("abc"), snapshot.Null{}},
		{"beyond float precision", stream.Num("9007199254740993"), snapshot.MustNumber("9007199254740993")},
		{"non digit string", stream.Str("17a"), snapshot.Null{}},
		{"bool", stream.Bool(true), snapshot.Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(TypeInt, tt.av, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceBool(t *testing.T) {
	for _, tt := range []struct {
		av   stream.AttributeValue
		want bool
	}{
		{stream.Bool(true), true},
		{stream.Str("1"), true},
		{stream.Str("true"), false},
		{stream.Num("1"), false},
	} {
		got, err := coerce(TypeBool, tt.av, true)
		require.NoError(t, err)
		assert.Equal(t, snapshot.Bool(tt.want), got)
	}
}

func TestRawFieldOmittedWhenMissing(t *testing.T) {
	m, err := NewFieldMapper("", "", []Field{{Name: "extra"}})
	require.NoError(t, err)

	obj, err := m.Map(reconcile.EntityKey{}, stream.Image{})
	require.NoError(t, err)
	assert.Empty(t, obj)

	obj, err = m.Map(reconcile.EntityKey{}, stream.Image{"extra": stream.StringSet("x")})
	require.NoError(t, err)
	assert.Equal(t, snapshot.Object{"extra": snapshot.Array{snapshot.String("x")}}, obj)
}

func TestRawFieldError(t *testing.T) {
	m, err := NewFieldMapper("", "", []Field{{Name: "n", Type: TypeRaw}})
	require.NoError(t, err)

	_, err = m.Map(reconcile.EntityKey{}, stream.Image{"n": stream.Num("zz")})
	assert.ErrorContains(t, err, `field "n"`)
}

func TestNewFieldMapperValidation(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		fields  []Field
		wantErr string
	}{
		{"empty name", "", []Field{{Type: TypeText}}, "name is required"},
		{"unknown type", "", []Field{{Name: "x", Type: "blob"}}, "unknown type"},
		{"duplicate", "", []Field{{Name: "x"}, {Name: "x"}}, "duplicate field"},
		{"clash with key field", "x", []Field{{Name: "x"}}, "duplicate field"},
		{"reserved", "", []Field{{Name: "objectID"}}, "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFieldMapper(tt.hash, "", tt.fields)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
