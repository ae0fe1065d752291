package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableUnderReordering(t *testing.T) {
	a := Object{"tags": Array{String("a"), String("b")}, "n": Int(1)}
	b := Object{"n": Int(1), "tags": Array{String("b"), String("a")}}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

func TestFingerprintDiffers(t *testing.T) {
	a := Object{"n": Int(1)}
	b := Object{"n": Int(2)}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
