package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/value"
)

func TestOptimizeFoldsConstantArithmetic(t *testing.T) {
	c := NewChunk("main")
	c.AddConstant(value.Int(2))
	c.AddConstant(value.Int(3))
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(0)
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(1)
	c.Emit(OpAdd, nil)
	c.Emit(OpReturn, nil)

	Optimize(c)

	require.NoError(t, c.Validate())
	// The folded form is a single LoadConstant then Return.
	assert.Equal(t, OpCode(c.Instructions[0]), OpLoadConstant)
	idx := uint16(c.Instructions[1]) | uint16(c.Instructions[2])<<8
	assert.Equal(t, float64(5), c.Constants[idx].AsFloat())
	assert.Equal(t, OpCode(c.Instructions[3]), OpReturn)
}

func TestOptimizeThreadsJumpChains(t *testing.T) {
	c := NewChunk("main")
	j1 := c.EmitJump(OpJump, nil)
	j2 := c.EmitJump(OpJump, nil)
	c.PatchJumpTo(j1, j2-1) // j1 lands right on j2
	c.Emit(OpLoadUndefined, nil)
	c.PatchJump(j2)
	c.Emit(OpReturn, nil)

	Optimize(c)
	require.NoError(t, c.Validate())
}

func TestOptimizeIsIdempotent(t *testing.T) {
	c := NewChunk("main")
	c.AddConstant(value.Int(10))
	c.AddConstant(value.Int(20))
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(0)
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(1)
	c.Emit(OpMul, nil)
	c.Emit(OpReturn, nil)

	Optimize(c)
	first := append([]byte(nil), c.Instructions...)
	Optimize(c)
	assert.Equal(t, first, c.Instructions)
}

func TestOptimizeDropsCodeAfterReturn(t *testing.T) {
	c := NewChunk("main")
	c.Emit(OpLoadUndefined, nil)
	c.Emit(OpReturn, nil)
	c.Emit(OpLoadTrue, nil) // unreachable
	c.Emit(OpReturn, nil)

	Optimize(c)

	require.NoError(t, c.Validate())
	assert.Equal(t, []byte{byte(OpLoadUndefined), byte(OpReturn)}, c.Instructions)
}

func TestOptimizeRecursesIntoNestedFunctions(t *testing.T) {
	inner := NewChunk("inner")
	inner.AddConstant(value.Int(1))
	inner.AddConstant(value.Int(1))
	inner.Emit(OpLoadConstant, nil)
	inner.EmitUint16(0)
	inner.Emit(OpLoadConstant, nil)
	inner.EmitUint16(0) // AddConstant stored both 1s in slot 0
	inner.Emit(OpAdd, nil)
	inner.Emit(OpReturn, nil)

	outer := NewChunk("outer")
	outer.NestedFunctions = append(outer.NestedFunctions, inner)
	outer.Emit(OpCreateClosure, nil)
	outer.EmitUint16(0)
	outer.EmitByte(0)
	outer.Emit(OpReturn, nil)

	Optimize(outer)

	require.NoError(t, outer.Validate())
	assert.Equal(t, OpCode(inner.Instructions[0]), OpLoadConstant)
}
