package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/bytecode"
	"lattice/pkg/lexer"
	"lattice/pkg/parser"
)

func compile(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	l := lexer.NewLexer(src)
	p := parser.NewParser(l)
	prog, parseErrs := p.ParseProgram()
	require.Empty(t, parseErrs, "unexpected parse errors for %q", src)

	chunk, errs := CompileProgram(prog)
	require.Empty(t, errs, "unexpected compile errors for %q", src)
	require.NoError(t, chunk.Validate())
	return chunk
}

func TestCompileSimpleArithmeticExpressionStatement(t *testing.T) {
	c := compile(t, "1 + 2 * 3;")
	assert.Contains(t, bytecode.Disassemble(c), "Mul")
	assert.Contains(t, bytecode.Disassemble(c), "Add")
}

func TestCompileLetDeclarationAndIdentifierLoad(t *testing.T) {
	c := compile(t, "let x = 5; x;")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "StoreLocal")
	assert.Contains(t, dis, "LoadLocal")
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	c := compile(t, "let x = 0; if (x) { x = 1; } else { x = 2; }")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "JumpIfFalse")
	assert.Contains(t, dis, "Jump ")
}

func TestCompileWhileLoopBackwardBranch(t *testing.T) {
	c := compile(t, "let i = 0; while (i < 10) { i = i + 1; }")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "JumpIfFalse")
	assert.Contains(t, dis, "LessThan")
}

func TestCompileBreakAndContinueInsideLoop(t *testing.T) {
	c := compile(t, "let i = 0; while (i < 10) { if (i == 5) { break; } i = i + 1; }")
	require.NoError(t, c.Validate())
}

func TestCompileFunctionLiteralReservesThis(t *testing.T) {
	c := compile(t, "let f = function(a) { return a; };")
	require.Len(t, c.NestedFunctions, 1)
	assert.True(t, c.NestedFunctions[0].ReservesThis)
}

func TestCompileArrowLiteralDoesNotReserveThis(t *testing.T) {
	c := compile(t, "let f = (a) => a;")
	require.Len(t, c.NestedFunctions, 1)
	assert.False(t, c.NestedFunctions[0].ReservesThis)
}

func TestCompileArrowCapturesEnclosingLocalAsUpvalue(t *testing.T) {
	c := compile(t, "let x = 1; let f = () => x;")
	require.Len(t, c.NestedFunctions, 1)
	assert.Len(t, c.NestedFunctions[0].Upvalues, 1)
	assert.True(t, c.NestedFunctions[0].Upvalues[0].IsLocal)
}

func TestCompileCallExpression(t *testing.T) {
	c := compile(t, "let f = function() { return 1; }; f();")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "Call ")
}

func TestCompileMemberAssignmentAsExpressionRetainsValue(t *testing.T) {
	c := compile(t, "let o = {}; let y = (o.x = 5);")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "StoreProperty")
	// The retained value must come back via a LoadLocal from the
	// scratch register the assignment codegen stashes it in.
	assert.Contains(t, dis, "LoadLocal")
}

func TestCompileIndexAssignment(t *testing.T) {
	c := compile(t, "let a = []; a[0] = 1;")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "SetIndex")
}

func TestCompileTryCatchFinally(t *testing.T) {
	c := compile(t, "try { throw 1; } catch (e) { e; } finally { 2; }")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "PushTry")
	assert.Contains(t, dis, "PushFinally")
	assert.Contains(t, dis, "Throw")
}

func TestCompileTernary(t *testing.T) {
	c := compile(t, "let x = true ? 1 : 2;")
	require.NoError(t, c.Validate())
}

func TestCompileObjectAndArrayLiterals(t *testing.T) {
	c := compile(t, "let o = { a: 1, b: 2 }; let arr = [1, 2, 3];")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "CreateObject")
	assert.Contains(t, dis, "CreateArray")
}

func TestCompileForOfLoop(t *testing.T) {
	c := compile(t, "let arr = [1, 2, 3]; for (let v of arr) { v; }")
	require.NoError(t, c.Validate())
}

func TestCompileForInLoop(t *testing.T) {
	c := compile(t, "let o = {}; for (let k in o) { k; }")
	require.NoError(t, c.Validate())
}

func TestCompileUpdateExpressionPostfixPreservesOldValue(t *testing.T) {
	c := compile(t, "let i = 0; let j = i++;")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "Add")
}

func TestCompileTypeofOperator(t *testing.T) {
	c := compile(t, "let x = typeof 1;")
	dis := bytecode.Disassemble(c)
	assert.Contains(t, dis, "TypeOf")
}

func TestCompileLogicalOperatorsShortCircuit(t *testing.T) {
	c := compile(t, "let x = true && false; let y = 1 || 2; let z = null ?? 3;")
	require.NoError(t, c.Validate())
}

func TestCompileNestedClosureChainsUpvalues(t *testing.T) {
	c := compile(t, "function outer() { let x = 1; function middle() { function inner() { return x; } return inner; } return middle; }")
	require.Len(t, c.NestedFunctions, 1)
	outer := c.NestedFunctions[0]
	require.Len(t, outer.NestedFunctions, 1)
	middle := outer.NestedFunctions[0]
	require.Len(t, middle.Upvalues, 1)
	assert.True(t, middle.Upvalues[0].IsLocal)

	require.Len(t, middle.NestedFunctions, 1)
	inner := middle.NestedFunctions[0]
	require.Len(t, inner.Upvalues, 1)
	assert.False(t, inner.Upvalues[0].IsLocal, "inner closure chains off middle's own upvalue, not outer's local directly")
}
