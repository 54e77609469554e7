package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/value"
)

// buildSampleChunk constructs a small chunk with a nested function, a
// mix of constant types, and a forward jump — enough surface to
// exercise every branch of Encode/Decode.
func buildSampleChunk() *Chunk {
	inner := NewChunk("inner")
	inner.RegisterCount = 1
	inner.ParamCount = 1
	inner.Emit(OpLoadLocal, nil)
	inner.EmitByte(0)
	inner.Emit(OpReturn, nil)

	c := NewChunk("main")
	c.RegisterCount = 2
	c.AddConstant(value.Int(7))
	c.AddConstant(value.Double(3.5))
	c.AddConstant(value.String("hello"))
	c.NestedFunctions = append(c.NestedFunctions, inner)
	c.Upvalues = []UpvalueDescriptor{{IsLocal: true, Index: 0}}

	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(0)
	patch := c.EmitJump(OpJumpIfFalse, nil)
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(2)
	c.PatchJump(patch)
	c.Emit(OpCreateClosure, nil)
	c.EmitUint16(0)
	c.EmitByte(1)
	c.EmitByte(1) // isLocal
	c.EmitUint16(0)
	c.Emit(OpReturn, nil)
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := buildSampleChunk()
	require.NoError(t, c.Validate())

	blob := Encode(c)
	decoded, err := Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, c.Name, decoded.Name)
	assert.Equal(t, c.RegisterCount, decoded.RegisterCount)
	assert.Equal(t, c.Instructions, decoded.Instructions)
	require.Len(t, decoded.Constants, len(c.Constants))
	for i := range c.Constants {
		assert.True(t, value.StrictEquals(c.Constants[i], decoded.Constants[i]) ||
			(c.Constants[i].IsNumber() && decoded.Constants[i].IsNumber() && c.Constants[i].AsFloat() == decoded.Constants[i].AsFloat()))
	}
	require.Len(t, decoded.NestedFunctions, 1)
	assert.Equal(t, "inner", decoded.NestedFunctions[0].Name)
	assert.Equal(t, c.Upvalues, decoded.Upvalues)

	require.NoError(t, decoded.Validate())
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("nope"))
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	c := buildSampleChunk()
	blob := Encode(c)
	_, err := Decode(blob[:len(blob)-3])
	require.Error(t, err)
}
