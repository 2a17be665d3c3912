package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalStack_RoundTripWithBlock(t *testing.T) {
	// Blocks nested inside stack values must survive persistence exactly:
	// the store round-trips whole timelines through this encoding.
	block := NewBlock([]Instruction{
		PushLiteral{Value: NewNumber(1)},
		Operation{Name: "+"},
		PushBlock{Body: []Instruction{PushSymbol{Name: ":inner"}}},
	})
	stack := []Value{NewNumber(-3.5), NewText("héllo"), NewBool(true), block}

	data, err := MarshalStack(stack)
	require.NoError(t, err)

	got, err := UnmarshalStack(data)
	require.NoError(t, err)
	assert.True(t, EqualStacks(stack, got))
}

func TestMarshalValue_WordDefinitionRoundTrip(t *testing.T) {
	block := NewBlock([]Instruction{
		DefineWord{Name: ":sq", Body: []Instruction{Operation{Name: "dup"}, Operation{Name: "*"}}},
	})

	data, err := MarshalValue(block)
	require.NoError(t, err)

	got, err := UnmarshalValue(data)
	require.NoError(t, err)
	assert.True(t, Equal(block, got))
}

func TestUnmarshalValue_UnknownTag(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"t":"mystery"}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value tag")
}
