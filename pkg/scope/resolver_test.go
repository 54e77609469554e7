package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocalInSameFunction(t *testing.T) {
	fs := NewFuncScope(nil)
	reg := fs.Declare("x")

	res := fs.Resolve("x")
	assert.Equal(t, RefLocal, res.Kind)
	assert.Equal(t, reg, res.Index)
}

func TestResolveUndeclaredIsGlobal(t *testing.T) {
	fs := NewFuncScope(nil)
	res := fs.Resolve("console")
	assert.Equal(t, RefGlobal, res.Kind)
}

func TestResolveCapturesImmediateParentLocalAsUpvalue(t *testing.T) {
	outer := NewFuncScope(nil)
	outerReg := outer.Declare("counter")

	inner := NewFuncScope(outer)
	res := inner.Resolve("counter")

	require.Equal(t, RefUpvalue, res.Kind)
	require.Len(t, inner.Upvalues(), 1)
	assert.True(t, inner.Upvalues()[0].IsLocal)
	assert.Equal(t, uint32(outerReg), inner.Upvalues()[0].Index)
}

func TestResolveChainsThroughGrandparent(t *testing.T) {
	grand := NewFuncScope(nil)
	grand.Declare("shared")

	middle := NewFuncScope(grand)
	inner := NewFuncScope(middle)

	res := inner.Resolve("shared")
	require.Equal(t, RefUpvalue, res.Kind)

	// The middle scope must also have gained an upvalue for "shared"
	// even though it never references it directly, so the innermost
	// closure's CreateClosure instruction can source it.
	require.Len(t, middle.Upvalues(), 1)
	assert.True(t, middle.Upvalues()[0].IsLocal)

	require.Len(t, inner.Upvalues(), 1)
	assert.False(t, inner.Upvalues()[0].IsLocal, "innermost upvalue chains off the middle scope's own upvalue, not a local")
}

func TestResolveDedupsRepeatedUpvalueCapture(t *testing.T) {
	outer := NewFuncScope(nil)
	outer.Declare("x")

	inner := NewFuncScope(outer)
	first := inner.Resolve("x")
	second := inner.Resolve("x")

	assert.Equal(t, first.Index, second.Index)
	assert.Len(t, inner.Upvalues(), 1)
}

func TestBlockScopingShadowsOuterDeclaration(t *testing.T) {
	fs := NewFuncScope(nil)
	outerReg := fs.Declare("x")

	fs.PushBlock()
	innerReg := fs.Declare("x")
	res := fs.Resolve("x")
	assert.Equal(t, innerReg, res.Index)
	fs.PopBlock()

	res = fs.Resolve("x")
	assert.Equal(t, outerReg, res.Index)
}
