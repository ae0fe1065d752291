package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumberCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"42", "42"},
		{"42.000", "42"},
		{"4.2E+1", "42"},
		{"-0", "0"},
		{"0.000001", "0.000001"},
		{"0.0000001", "1e-7"},
		{"123456789012345678901", "123456789012345678901"},
		{"1234567890123456789012", "1.234567890123456789012e+21"},
		{"9007199254740993", "9007199254740993"},
		{"-12.50", "-12.5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseNumber(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParseNumberRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "NaN", "Infinity", "-Infinity", "1..2"} {
		_, err := ParseNumber(in)
		assert.Error(t, err, in)
	}
}

func TestNumberEqualityIsNumeric(t *testing.T) {
	assert.Equal(t, Int(1), MustNumber("1.0"))
	assert.Equal(t, Number{}, Int(0))
	assert.True(t, Equivalent(MustNumber("10e-1"), Int(1)))
	assert.False(t, Equivalent(MustNumber("9007199254740992"), MustNumber("9007199254740993")))
	assert.False(t, Equivalent(
		MustNumber("0.1000000000000000000000000000000000001"),
		MustNumber("0.1"),
	))
}

func TestNewNumberUsesShortestDigits(t *testing.T) {
	n, err := NewNumber(0.1)
	require.NoError(t, err)
	assert.Equal(t, MustNumber("0.1"), n)

	n, err = NewNumber(1e21)
	require.NoError(t, err)
	assert.Equal(t, "1e+21", n.String())
}
