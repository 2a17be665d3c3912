package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalStack_Stable(t *testing.T) {
	stack := []Value{NewNumber(8), NewText("a<b&c"), NewBool(false)}

	a, err := MarshalCanonicalStack(stack)
	require.NoError(t, err)
	b, err := MarshalCanonicalStack(stack)
	require.NoError(t, err)

	assert.Equal(t, a, b, "canonical encoding must be deterministic")
	assert.Equal(t, `[8,"a<b&c",false]`, string(a), "no HTML escaping")
}

func TestMarshalCanonicalStack_NFCNormalization(t *testing.T) {
	// "é" composed (U+00E9) vs decomposed (e + U+0301) must encode equal.
	composed := []Value{NewText("café")}
	decomposed := []Value{NewText("café")}

	a, err := MarshalCanonicalStack(composed)
	require.NoError(t, err)
	b, err := MarshalCanonicalStack(decomposed)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestMarshalCanonicalStack_IntegerFormatting(t *testing.T) {
	a, err := MarshalCanonicalStack([]Value{NewNumber(2)})
	require.NoError(t, err)
	assert.Equal(t, "[2]", string(a), "integers encode without a decimal point")

	b, err := MarshalCanonicalStack([]Value{NewNumber(2.5)})
	require.NoError(t, err)
	assert.Equal(t, "[2.5]", string(b))
}

func TestMomentHash_Deterministic(t *testing.T) {
	stack := []Value{NewNumber(10), NewNumber(20)}

	h1, err := MomentHash("main", 1, stack)
	require.NoError(t, err)
	h2, err := MomentHash("main", 1, CopyStack(stack))
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "equal moments hash equal")
	assert.Len(t, h1, 64)
}

func TestMomentHash_SensitiveToPosition(t *testing.T) {
	stack := []Value{NewNumber(10)}

	h1, err := MomentHash("main", 0, stack)
	require.NoError(t, err)
	h2, err := MomentHash("main", 1, stack)
	require.NoError(t, err)
	h3, err := MomentHash("alt", 0, stack)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "index participates in identity")
	assert.NotEqual(t, h1, h3, "branch participates in identity")
}

func TestProgramHash_Deterministic(t *testing.T) {
	prog := []Instruction{
		PushLiteral{Value: NewNumber(5)},
		PushLiteral{Value: NewNumber(3)},
		Operation{Name: "+"},
	}
	assert.Equal(t, ProgramHash(prog), ProgramHash(prog))

	other := []Instruction{Operation{Name: "tick"}}
	assert.NotEqual(t, ProgramHash(prog), ProgramHash(other))
}
