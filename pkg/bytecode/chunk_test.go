package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/value"
)

func TestChunkValidateCatchesOutOfRangeConstant(t *testing.T) {
	c := NewChunk("main")
	c.RegisterCount = 1
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(5) // no constants were ever added
	c.Emit(OpReturn, nil)

	err := c.Validate()
	require.Error(t, err)
}

func TestChunkValidateCatchesOutOfRangeLocal(t *testing.T) {
	c := NewChunk("main")
	c.RegisterCount = 1
	c.Emit(OpLoadLocal, nil)
	c.EmitByte(3) // only register 0 exists
	c.Emit(OpReturn, nil)

	err := c.Validate()
	require.Error(t, err)
}

func TestChunkValidateCatchesBranchOutOfRange(t *testing.T) {
	c := NewChunk("main")
	c.Emit(OpJump, nil)
	c.EmitInt16(1000)

	err := c.Validate()
	require.Error(t, err)
}

func TestChunkEmitJumpPatchesForwardBranch(t *testing.T) {
	c := NewChunk("main")
	patch := c.EmitJump(OpJumpIfFalse, nil)
	c.Emit(OpLoadTrue, nil)
	c.PatchJump(patch)
	c.Emit(OpReturn, nil)

	require.NoError(t, c.Validate())
}

func TestChunkAddConstantDeduplicatesScalars(t *testing.T) {
	c := NewChunk("main")
	i1 := c.AddConstant(value.Int(42))
	i2 := c.AddConstant(value.Int(42))
	i3 := c.AddConstant(value.String("42"))

	assert.Equal(t, i1, i2)
	assert.NotEqual(t, i1, i3)
	assert.Len(t, c.Constants, 2)
}

func TestChunkValidateRejectsBadCreateClosureIndex(t *testing.T) {
	c := NewChunk("main")
	c.Emit(OpCreateClosure, nil)
	c.EmitUint16(0) // no nested functions at all
	c.EmitByte(0)

	require.Error(t, c.Validate())
}
