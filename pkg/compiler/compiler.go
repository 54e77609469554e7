// Package compiler lowers the parser's AST into bytecode.Chunk trees
// (spec.md §4.2), driving pkg/scope's resolver to classify every
// identifier and emit the matching Load/Store instruction.
//
// Every compileExpression* method leaves exactly one value on the
// operand stack; every compileStatement* method leaves the stack
// exactly as it found it (an expression statement's value is always
// discarded with an explicit Pop). This is the same discipline the
// teacher's own single-pass generator follows, and it's what makes
// the peephole optimizer's local reasoning (pkg/bytecode) sound.
package compiler

import (
	"fmt"

	"lattice/pkg/bytecode"
	"lattice/pkg/errors"
	"lattice/pkg/parser"
	"lattice/pkg/scope"
	"lattice/pkg/value"
)

type loopContext struct {
	breakPatches    []int
	continuePatches []int
}

// Compiler holds the state for lowering a single function body (or
// the top-level script) into one bytecode.Chunk.
type Compiler struct {
	fs     *scope.FuncScope
	chunk  *bytecode.Chunk
	parent *Compiler

	loops []*loopContext

	errs []errors.LatticeError
}

// CompileProgram lowers a whole parsed script into its top-level
// Chunk. Nested function literals become entries of
// Chunk.NestedFunctions, with their own upvalue descriptors resolved
// against this compiler's scope chain.
func CompileProgram(prog *parser.Program) (*bytecode.Chunk, []errors.LatticeError) {
	c := &Compiler{fs: scope.NewFuncScope(nil), chunk: bytecode.NewChunk("<script>")}
	for _, stmt := range prog.Statements {
		c.compileStatement(stmt)
	}
	c.chunk.Emit(bytecode.OpLoadUndefined, nil)
	c.chunk.Emit(bytecode.OpReturn, nil)
	c.chunk.RegisterCount = c.fs.RegisterCount()

	if err := c.chunk.Validate(); err != nil {
		c.errs = append(c.errs, &errors.InternalError{Msg: err.Error()})
	}
	return c.chunk, c.errs
}

func (c *Compiler) fail(msg string) {
	c.errs = append(c.errs, &errors.CompileError{Msg: msg})
}

func (c *Compiler) allocTemp() int {
	return c.fs.AllocTemp()
}

// --- Statements ---

func (c *Compiler) compileStatement(stmt parser.Statement) {
	switch s := stmt.(type) {
	case *parser.LetStatement:
		c.compileDeclaration(s.Name.Value, s.Value)
	case *parser.ConstStatement:
		c.compileDeclaration(s.Name.Value, s.Value)
	case *parser.VarStatement:
		c.compileDeclaration(s.Name.Value, s.Value)
	case *parser.ExpressionStatement:
		if s.Expression == nil {
			return
		}
		// `function name() {...}` parses as an ExpressionStatement
		// wrapping a named FunctionLiteral (parser.go's
		// parseFunctionDeclarationStatement); bind the name the way a
		// `let` declaration would instead of evaluating-and-discarding.
		if fn, ok := s.Expression.(*parser.FunctionLiteral); ok && fn.Name != nil {
			c.compileDeclaration(fn.Name.Value, fn)
			return
		}
		c.compileExpression(s.Expression)
		c.chunk.Emit(bytecode.OpPop, nil)
	case *parser.ReturnStatement:
		if s.ReturnValue != nil {
			c.compileExpression(s.ReturnValue)
		} else {
			c.chunk.Emit(bytecode.OpLoadUndefined, nil)
		}
		c.chunk.Emit(bytecode.OpReturn, nil)
	case *parser.BlockStatement:
		c.fs.PushBlock()
		for _, st := range s.Statements {
			c.compileStatement(st)
		}
		c.fs.PopBlock()
	case *parser.IfStatement:
		c.compileIf(s.Condition, s.Consequence, s.Alternative)
	case *parser.WhileStatement:
		c.compileWhile(s.Condition, s.Body)
	case *parser.DoWhileStatement:
		c.compileDoWhile(s.Condition, s.Body)
	case *parser.ForStatement:
		c.compileFor(s)
	case *parser.ForOfStatement:
		c.compileForOf(s)
	case *parser.ForInStatement:
		c.compileForIn(s)
	case *parser.BreakStatement:
		c.compileBreak()
	case *parser.ContinueStatement:
		c.compileContinue()
	case *parser.ThrowStatement:
		c.compileExpression(s.Value)
		c.chunk.Emit(bytecode.OpThrow, nil)
	case *parser.TryStatement:
		c.compileTry(s)
	default:
		c.fail(fmt.Sprintf("compiler: unsupported statement %T", stmt))
	}
}

func (c *Compiler) compileDeclaration(name string, valueExpr parser.Expression) {
	reg := c.fs.Declare(name)
	if valueExpr != nil {
		c.compileExpression(valueExpr)
	} else {
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
	}
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(reg))
}

func (c *Compiler) compileIf(cond parser.Expression, cons, alt *parser.BlockStatement) {
	c.compileExpression(cond)
	elseJump := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
	c.compileStatement(cons)
	if alt != nil {
		endJump := c.chunk.EmitJump(bytecode.OpJump, nil)
		c.chunk.PatchJump(elseJump)
		c.compileStatement(alt)
		c.chunk.PatchJump(endJump)
	} else {
		c.chunk.PatchJump(elseJump)
	}
}

func (c *Compiler) compileWhile(cond parser.Expression, body *parser.BlockStatement) {
	loop := &loopContext{}
	c.loops = append(c.loops, loop)

	top := c.chunk.Here()
	c.compileExpression(cond)
	exitJump := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
	c.compileStatement(body)
	backJump := c.chunk.EmitJump(bytecode.OpJump, nil)
	c.chunk.PatchJumpTo(backJump, top)
	c.chunk.PatchJump(exitJump)

	c.patchLoopExits(loop, top)
}

func (c *Compiler) compileDoWhile(cond parser.Expression, body *parser.BlockStatement) {
	loop := &loopContext{}
	c.loops = append(c.loops, loop)

	top := c.chunk.Here()
	c.compileStatement(body)
	condTarget := c.chunk.Here()
	c.compileExpression(cond)
	backJump := c.chunk.EmitJump(bytecode.OpJumpIfTrue, nil)
	c.chunk.PatchJumpTo(backJump, top)

	c.patchLoopExits(loop, condTarget)
}

func (c *Compiler) compileFor(s *parser.ForStatement) {
	c.fs.PushBlock()
	defer c.fs.PopBlock()

	if s.Initializer != nil {
		c.compileStatement(s.Initializer)
	}

	loop := &loopContext{}
	c.loops = append(c.loops, loop)

	top := c.chunk.Here()
	var exitJump int
	hasExit := s.Condition != nil
	if hasExit {
		c.compileExpression(s.Condition)
		exitJump = c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
	}
	c.compileStatement(s.Body)
	updateTarget := c.chunk.Here()
	if s.Update != nil {
		c.compileExpression(s.Update)
		c.chunk.Emit(bytecode.OpPop, nil)
	}
	backJump := c.chunk.EmitJump(bytecode.OpJump, nil)
	c.chunk.PatchJumpTo(backJump, top)
	if hasExit {
		c.chunk.PatchJump(exitJump)
	}

	c.patchLoopExits(loop, updateTarget)
}

// compileForOf lowers `for (x of iterable) body` using the array-only
// iteration model this core supports (spec.md's iterator protocol is
// out of scope for the trimmed builtins surface, see DESIGN.md): it
// walks a dense array by index, which covers the common case of
// iterating array literals and array-returning expressions.
func (c *Compiler) compileForOf(s *parser.ForOfStatement) {
	c.fs.PushBlock()
	defer c.fs.PopBlock()

	iterReg := c.allocTemp()
	idxReg := c.allocTemp()

	c.compileExpression(s.Iterable)
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(iterReg))

	c.chunk.Emit(bytecode.OpLoadConstant, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.Int(0)))
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(idxReg))

	loop := &loopContext{}
	c.loops = append(c.loops, loop)

	top := c.chunk.Here()
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(idxReg))
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(iterReg))
	c.chunk.Emit(bytecode.OpLoadProperty, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.String("length")))
	c.chunk.Emit(bytecode.OpLessThan, nil)
	exitJump := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)

	c.fs.PushBlock()
	c.bindForTarget(s.Variable, func() {
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(iterReg))
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(idxReg))
		c.chunk.Emit(bytecode.OpGetIndex, nil)
	})
	for _, st := range s.Body.Statements {
		c.compileStatement(st)
	}
	c.fs.PopBlock()

	updateTarget := c.chunk.Here()
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(idxReg))
	c.chunk.Emit(bytecode.OpLoadConstant, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.Int(1)))
	c.chunk.Emit(bytecode.OpAdd, nil)
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(idxReg))

	backJump := c.chunk.EmitJump(bytecode.OpJump, nil)
	c.chunk.PatchJumpTo(backJump, top)
	c.chunk.PatchJump(exitJump)

	c.patchLoopExits(loop, updateTarget)
}

// compileForIn lowers `for (k in obj) body` over obj's own enumerable
// string keys. Like compileForOf, this needs the object's key list at
// runtime; the VM exposes it as a synthetic "__keys__" property read
// (see pkg/vm's OpLoadProperty handling) rather than a general
// Object.keys builtin, which is out of scope here.
func (c *Compiler) compileForIn(s *parser.ForInStatement) {
	c.fs.PushBlock()
	defer c.fs.PopBlock()

	keysReg := c.allocTemp()
	idxReg := c.allocTemp()

	c.compileExpression(s.Object)
	c.chunk.Emit(bytecode.OpLoadProperty, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.String("__keys__")))
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(keysReg))

	c.chunk.Emit(bytecode.OpLoadConstant, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.Int(0)))
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(idxReg))

	loop := &loopContext{}
	c.loops = append(c.loops, loop)

	top := c.chunk.Here()
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(idxReg))
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(keysReg))
	c.chunk.Emit(bytecode.OpLoadProperty, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.String("length")))
	c.chunk.Emit(bytecode.OpLessThan, nil)
	exitJump := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)

	c.fs.PushBlock()
	c.bindForTarget(s.Variable, func() {
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(keysReg))
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(idxReg))
		c.chunk.Emit(bytecode.OpGetIndex, nil)
	})
	for _, st := range s.Body.Statements {
		c.compileStatement(st)
	}
	c.fs.PopBlock()

	updateTarget := c.chunk.Here()
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(idxReg))
	c.chunk.Emit(bytecode.OpLoadConstant, nil)
	c.chunk.EmitUint16(c.chunk.AddConstant(value.Int(1)))
	c.chunk.Emit(bytecode.OpAdd, nil)
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(idxReg))

	backJump := c.chunk.EmitJump(bytecode.OpJump, nil)
	c.chunk.PatchJumpTo(backJump, top)
	c.chunk.PatchJump(exitJump)

	c.patchLoopExits(loop, updateTarget)
}

// bindForTarget declares (or resolves) the loop variable of a for-of/
// for-in head and stores whatever pushValue leaves on the stack into
// it. Variable may be a fresh `let`/`const` declaration or a plain
// identifier expression statement referring to an existing binding.
func (c *Compiler) bindForTarget(variable parser.Statement, pushValue func()) {
	var name string
	switch v := variable.(type) {
	case *parser.LetStatement:
		name = v.Name.Value
	case *parser.ConstStatement:
		name = v.Name.Value
	case *parser.ExpressionStatement:
		if id, ok := v.Expression.(*parser.Identifier); ok {
			name = id.Value
		}
	}
	if name == "" {
		c.fail("compiler: unsupported for-of/for-in binding target")
		pushValue()
		c.chunk.Emit(bytecode.OpPop, nil)
		return
	}
	if _, isDecl := variable.(*parser.ExpressionStatement); isDecl {
		res := c.fs.Resolve(name)
		pushValue()
		c.emitStore(res, name, nil)
		return
	}
	reg := c.fs.Declare(name)
	pushValue()
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(reg))
}

func (c *Compiler) compileBreak() {
	if len(c.loops) == 0 {
		c.fail("compiler: break outside of a loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	patch := c.chunk.EmitJump(bytecode.OpJump, nil)
	loop.breakPatches = append(loop.breakPatches, patch)
}

func (c *Compiler) compileContinue() {
	if len(c.loops) == 0 {
		c.fail("compiler: continue outside of a loop")
		return
	}
	loop := c.loops[len(c.loops)-1]
	patch := c.chunk.EmitJump(bytecode.OpJump, nil)
	loop.continuePatches = append(loop.continuePatches, patch)
}

func (c *Compiler) patchLoopExits(loop *loopContext, continueTarget int) {
	c.loops = c.loops[:len(c.loops)-1]
	for _, p := range loop.continuePatches {
		c.chunk.PatchJumpTo(p, continueTarget)
	}
	for _, p := range loop.breakPatches {
		c.chunk.PatchJump(p)
	}
}

func (c *Compiler) compileTry(s *parser.TryStatement) {
	var catchPatch int
	hasCatch := s.CatchClause != nil
	if hasCatch {
		catchPatch = c.chunk.EmitJump(bytecode.OpPushTry, nil)
	}

	var finallyPatch int
	hasFinally := s.FinallyBlock != nil
	if hasFinally {
		finallyPatch = c.chunk.EmitJump(bytecode.OpPushFinally, nil)
	}

	c.compileStatement(s.Body)
	if hasCatch {
		c.chunk.Emit(bytecode.OpPopTry, nil)
	}
	skipCatch := c.chunk.EmitJump(bytecode.OpJump, nil)

	if hasCatch {
		c.chunk.PatchJump(catchPatch)
		c.fs.PushBlock()
		if s.CatchClause.Parameter != nil {
			reg := c.fs.Declare(s.CatchClause.Parameter.Value)
			c.chunk.Emit(bytecode.OpStoreLocal, nil)
			c.chunk.EmitByte(byte(reg))
		} else {
			c.chunk.Emit(bytecode.OpPop, nil)
		}
		for _, st := range s.CatchClause.Body.Statements {
			c.compileStatement(st)
		}
		c.fs.PopBlock()
	}
	c.chunk.PatchJump(skipCatch)

	if hasFinally {
		c.chunk.Emit(bytecode.OpPopFinally, nil)
		c.chunk.PatchJump(finallyPatch)
		c.compileStatement(s.FinallyBlock)
	}
}

// --- Expressions ---

func (c *Compiler) compileExpression(expr parser.Expression) {
	switch e := expr.(type) {
	case *parser.NumberLiteral:
		idx := c.chunk.AddConstant(value.Double(e.Value))
		c.chunk.Emit(bytecode.OpLoadConstant, nil)
		c.chunk.EmitUint16(idx)
	case *parser.StringLiteral:
		idx := c.chunk.AddConstant(value.String(e.Value))
		c.chunk.Emit(bytecode.OpLoadConstant, nil)
		c.chunk.EmitUint16(idx)
	case *parser.BooleanLiteral:
		if e.Value {
			c.chunk.Emit(bytecode.OpLoadTrue, nil)
		} else {
			c.chunk.Emit(bytecode.OpLoadFalse, nil)
		}
	case *parser.NullLiteral:
		c.chunk.Emit(bytecode.OpLoadNull, nil)
	case *parser.UndefinedLiteral:
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
	case *parser.Identifier:
		res := c.fs.Resolve(e.Value)
		c.emitLoad(res, e.Value, nil)
	case *parser.ThisExpression:
		res := c.fs.Resolve("this")
		c.emitLoad(res, "this", nil)
	case *parser.PrefixExpression:
		c.compilePrefix(e)
	case *parser.InfixExpression:
		c.compileInfix(e)
	case *parser.TypeofExpression:
		c.compileExpression(e.Operand)
		c.chunk.Emit(bytecode.OpTypeOf, nil)
	case *parser.TypeAssertionExpression:
		c.compileExpression(e.Expression)
	case *parser.AssignmentExpression:
		c.compileAssignment(e)
	case *parser.UpdateExpression:
		c.compileUpdate(e)
	case *parser.TernaryExpression:
		c.compileExpression(e.Condition)
		elseJump := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
		c.compileExpression(e.Consequence)
		endJump := c.chunk.EmitJump(bytecode.OpJump, nil)
		c.chunk.PatchJump(elseJump)
		c.compileExpression(e.Alternative)
		c.chunk.PatchJump(endJump)
	case *parser.CallExpression:
		c.compileCall(e)
	case *parser.NewExpression:
		c.compileNew(e)
	case *parser.ArrayLiteral:
		c.compileArrayLiteral(e)
	case *parser.ObjectLiteral:
		c.compileObjectLiteral(e)
	case *parser.IndexExpression:
		c.compileExpression(e.Left)
		c.compileExpression(e.Index)
		c.chunk.Emit(bytecode.OpGetIndex, nil)
	case *parser.MemberExpression:
		c.compileExpression(e.Object)
		name := propertyName(e.Property)
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpLoadProperty, nil)
		c.chunk.EmitUint16(idx)
	case *parser.OptionalChainingExpression:
		// Null-safety is not implemented (spec.md's optional-chaining
		// short-circuit needs a dedicated branch per link); this core
		// desugars `a?.b` to plain `a.b`, which throws on nullish `a`
		// exactly like ordinary member access rather than producing
		// undefined (see DESIGN.md).
		c.compileExpression(e.Object)
		name := propertyName(e.Property)
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpLoadProperty, nil)
		c.chunk.EmitUint16(idx)
	case *parser.FunctionLiteral:
		c.compileFunctionLiteral(e)
	case *parser.ArrowFunctionLiteral:
		c.compileArrowLiteral(e)
	case *parser.ShorthandMethod:
		child := c.compileFunctionBody("method "+e.Name.Value, e.Parameters, e.RestParameter, e.Body, true)
		c.emitCreateClosure(child, bytecode.OpCreateClosure)
	default:
		c.fail(fmt.Sprintf("compiler: unsupported expression %T", expr))
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
	}
}

func propertyName(prop parser.Expression) string {
	if id, ok := prop.(*parser.Identifier); ok {
		return id.Value
	}
	if s, ok := prop.(*parser.StringLiteral); ok {
		return s.Value
	}
	return prop.String()
}

func (c *Compiler) compilePrefix(e *parser.PrefixExpression) {
	c.compileExpression(e.Right)
	switch e.Operator {
	case "-":
		c.chunk.Emit(bytecode.OpNeg, nil)
	case "!":
		c.chunk.Emit(bytecode.OpNot, nil)
	case "+":
		// Unary plus: ToNumber coercion has no dedicated opcode; Neg
		// twice round-trips through numeric conversion without
		// needing one (spec.md has no ToNumber-only instruction).
		c.chunk.Emit(bytecode.OpNeg, nil)
		c.chunk.Emit(bytecode.OpNeg, nil)
	default:
		c.fail(fmt.Sprintf("compiler: unsupported prefix operator %q", e.Operator))
	}
}

var infixOps = map[string]bytecode.OpCode{
	"+":   bytecode.OpAdd,
	"-":   bytecode.OpSub,
	"*":   bytecode.OpMul,
	"/":   bytecode.OpDiv,
	"%":   bytecode.OpMod,
	"==":  bytecode.OpEqual,
	"!=":  bytecode.OpNotEqual,
	"===": bytecode.OpStrictEqual,
	"!==": bytecode.OpStrictNotEqual,
	"<":   bytecode.OpLessThan,
	"<=":  bytecode.OpLessThanEqual,
	">":   bytecode.OpGreaterThan,
	">=":  bytecode.OpGreaterThanEqual,
}

func (c *Compiler) compileInfix(e *parser.InfixExpression) {
	switch e.Operator {
	case "&&":
		c.compileExpression(e.Left)
		c.chunk.Emit(bytecode.OpDup, nil)
		skip := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
		c.chunk.Emit(bytecode.OpPop, nil)
		c.compileExpression(e.Right)
		c.chunk.PatchJump(skip)
		return
	case "||":
		c.compileExpression(e.Left)
		c.chunk.Emit(bytecode.OpDup, nil)
		jumpIfFalse := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
		skipRight := c.chunk.EmitJump(bytecode.OpJump, nil)
		c.chunk.PatchJump(jumpIfFalse)
		c.chunk.Emit(bytecode.OpPop, nil)
		c.compileExpression(e.Right)
		c.chunk.PatchJump(skipRight)
		return
	case "??":
		c.compileExpression(e.Left)
		c.chunk.Emit(bytecode.OpDup, nil)
		// Nullish test via abstract equality: `x == null` holds exactly
		// when x is null or undefined, so "", 0, NaN and false keep the
		// left value.
		c.chunk.Emit(bytecode.OpLoadNull, nil)
		c.chunk.Emit(bytecode.OpEqual, nil)
		skip := c.chunk.EmitJump(bytecode.OpJumpIfFalse, nil)
		c.chunk.Emit(bytecode.OpPop, nil)
		c.compileExpression(e.Right)
		c.chunk.PatchJump(skip)
		return
	}
	op, ok := infixOps[e.Operator]
	if !ok {
		c.fail(fmt.Sprintf("compiler: unsupported infix operator %q", e.Operator))
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	c.chunk.Emit(op, nil)
}

func (c *Compiler) compileAssignment(e *parser.AssignmentExpression) {
	switch target := e.Left.(type) {
	case *parser.Identifier:
		res := c.fs.Resolve(target.Value)
		if e.Operator != "=" {
			c.emitLoad(res, target.Value, nil)
			c.compileExpression(e.Value)
			c.emitCompoundOp(e.Operator)
		} else {
			c.compileExpression(e.Value)
		}
		c.chunk.Emit(bytecode.OpDup, nil)
		c.emitStore(res, target.Value, nil)
	case *parser.MemberExpression:
		name := propertyName(target.Property)
		idx := c.chunk.AddConstant(value.String(name))
		c.compileExpression(target.Object)
		if e.Operator != "=" {
			c.chunk.Emit(bytecode.OpDup, nil)
			c.chunk.Emit(bytecode.OpLoadProperty, nil)
			c.chunk.EmitUint16(idx)
			c.compileExpression(e.Value)
			c.emitCompoundOp(e.Operator)
		} else {
			c.compileExpression(e.Value)
		}
		tmp := c.allocTemp()
		c.chunk.Emit(bytecode.OpDup, nil)
		c.chunk.Emit(bytecode.OpStoreLocal, nil)
		c.chunk.EmitByte(byte(tmp))
		c.chunk.Emit(bytecode.OpStoreProperty, nil)
		c.chunk.EmitUint16(idx)
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(tmp))
	case *parser.IndexExpression:
		c.compileExpression(target.Left)
		c.compileExpression(target.Index)
		if e.Operator != "=" {
			c.chunk.Emit(bytecode.OpDup, nil)
			idxTmp := c.allocTemp()
			c.chunk.Emit(bytecode.OpStoreLocal, nil)
			c.chunk.EmitByte(byte(idxTmp))
			objTmp := c.allocTemp()
			c.chunk.Emit(bytecode.OpStoreLocal, nil)
			c.chunk.EmitByte(byte(objTmp))
			c.chunk.Emit(bytecode.OpLoadLocal, nil)
			c.chunk.EmitByte(byte(objTmp))
			c.chunk.Emit(bytecode.OpLoadLocal, nil)
			c.chunk.EmitByte(byte(idxTmp))
			c.chunk.Emit(bytecode.OpGetIndex, nil)
			c.compileExpression(e.Value)
			c.emitCompoundOp(e.Operator)
			c.chunk.Emit(bytecode.OpLoadLocal, nil)
			c.chunk.EmitByte(byte(objTmp))
			c.chunk.Emit(bytecode.OpLoadLocal, nil)
			c.chunk.EmitByte(byte(idxTmp))
		} else {
			c.compileExpression(e.Value)
		}
		valTmp := c.allocTemp()
		c.chunk.Emit(bytecode.OpDup, nil)
		c.chunk.Emit(bytecode.OpStoreLocal, nil)
		c.chunk.EmitByte(byte(valTmp))
		c.chunk.Emit(bytecode.OpSetIndex, nil)
		c.chunk.Emit(bytecode.OpLoadLocal, nil)
		c.chunk.EmitByte(byte(valTmp))
	default:
		c.fail("compiler: unsupported assignment target")
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
	}
}

func compoundOp(op string) string {
	if len(op) > 1 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

// emitCompoundOp emits the binary op behind a compound assignment
// operator (e.g. "+=" -> Add). Logical compound assignments (&&=,
// ||=, ??=) need short-circuit control flow rather than a plain binop
// and are not supported here.
func (c *Compiler) emitCompoundOp(operator string) {
	base := compoundOp(operator)
	op, ok := infixOps[base]
	if !ok {
		c.fail(fmt.Sprintf("compiler: unsupported compound assignment operator %q", operator))
		c.chunk.Emit(bytecode.OpAdd, nil)
		return
	}
	c.chunk.Emit(op, nil)
}

func (c *Compiler) compileUpdate(e *parser.UpdateExpression) {
	id, ok := e.Argument.(*parser.Identifier)
	if !ok {
		c.fail("compiler: ++/-- only supported on identifiers")
		c.chunk.Emit(bytecode.OpLoadUndefined, nil)
		return
	}
	res := c.fs.Resolve(id.Value)
	c.emitLoad(res, id.Value, nil)

	one := c.chunk.AddConstant(value.Int(1))
	if e.Prefix {
		c.chunk.Emit(bytecode.OpLoadConstant, nil)
		c.chunk.EmitUint16(one)
		if e.Operator == "++" {
			c.chunk.Emit(bytecode.OpAdd, nil)
		} else {
			c.chunk.Emit(bytecode.OpSub, nil)
		}
		c.chunk.Emit(bytecode.OpDup, nil)
		c.emitStore(res, id.Value, nil)
		return
	}

	tmp := c.allocTemp()
	c.chunk.Emit(bytecode.OpDup, nil)
	c.chunk.Emit(bytecode.OpStoreLocal, nil)
	c.chunk.EmitByte(byte(tmp))
	c.chunk.Emit(bytecode.OpLoadConstant, nil)
	c.chunk.EmitUint16(one)
	if e.Operator == "++" {
		c.chunk.Emit(bytecode.OpAdd, nil)
	} else {
		c.chunk.Emit(bytecode.OpSub, nil)
	}
	c.emitStore(res, id.Value, nil)
	c.chunk.Emit(bytecode.OpLoadLocal, nil)
	c.chunk.EmitByte(byte(tmp))
}

func (c *Compiler) compileCall(e *parser.CallExpression) {
	if member, ok := e.Function.(*parser.MemberExpression); ok {
		c.compileExpression(member.Object)
		name := propertyName(member.Property)
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpDup, nil)
		c.chunk.Emit(bytecode.OpLoadProperty, nil)
		c.chunk.EmitUint16(idx)
		// stack: [this, method]; CallMethod expects [this, method, args...]
		// so swap isn't needed if we push args after: currently stack is
		// [this, method], which already matches.
		for _, arg := range e.Arguments {
			c.compileExpression(arg)
		}
		c.chunk.Emit(bytecode.OpCallMethod, nil)
		c.chunk.EmitByte(byte(len(e.Arguments)))
		return
	}
	c.compileExpression(e.Function)
	for _, arg := range e.Arguments {
		c.compileExpression(arg)
	}
	c.chunk.Emit(bytecode.OpCall, nil)
	c.chunk.EmitByte(byte(len(e.Arguments)))
}

func (c *Compiler) compileNew(e *parser.NewExpression) {
	c.compileExpression(e.Constructor)
	for _, arg := range e.Arguments {
		c.compileExpression(arg)
	}
	c.chunk.Emit(bytecode.OpCallNew, nil)
	c.chunk.EmitByte(byte(len(e.Arguments)))
}

func (c *Compiler) compileArrayLiteral(e *parser.ArrayLiteral) {
	for _, el := range e.Elements {
		if _, isSpread := el.(*parser.SpreadElement); isSpread {
			c.fail("compiler: spread in array literals is not supported")
			continue
		}
		c.compileExpression(el)
	}
	c.chunk.Emit(bytecode.OpCreateArray, nil)
	c.chunk.EmitUint16(uint16(len(e.Elements)))
}

func (c *Compiler) compileObjectLiteral(e *parser.ObjectLiteral) {
	c.chunk.Emit(bytecode.OpCreateObject, nil)
	for _, prop := range e.Properties {
		if _, isSpread := prop.Key.(*parser.SpreadElement); isSpread {
			c.fail("compiler: spread in object literals is not supported")
			continue
		}
		name := propertyName(prop.Key)
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpDup, nil)
		c.compileExpression(prop.Value)
		c.chunk.Emit(bytecode.OpStoreProperty, nil)
		c.chunk.EmitUint16(idx)
	}
}

// --- Functions & closures ---

func (c *Compiler) compileFunctionLiteral(e *parser.FunctionLiteral) {
	child := c.compileFunctionBody("function"+nameSuffix(e.Name), e.Parameters, e.RestParameter, e.Body, true)
	c.emitCreateClosure(child, bytecode.OpCreateClosure)
}

func (c *Compiler) compileArrowLiteral(e *parser.ArrowFunctionLiteral) {
	var body *parser.BlockStatement
	switch b := e.Body.(type) {
	case *parser.BlockStatement:
		body = b
	case parser.Expression:
		body = &parser.BlockStatement{Statements: []parser.Statement{
			&parser.ReturnStatement{ReturnValue: b},
		}}
	}
	child := c.compileFunctionBody("<arrow>", e.Parameters, e.RestParameter, body, false)
	c.emitCreateClosure(child, bytecode.OpCreateClosure)
}

func nameSuffix(id *parser.Identifier) string {
	if id == nil {
		return " <anonymous>"
	}
	return " " + id.Value
}

// compileFunctionBody compiles params+body into a fresh Chunk nested
// in the enclosing compiler's scope and returns it; emitCreateClosure
// is what appends it to the parent's NestedFunctions.
func (c *Compiler) compileFunctionBody(name string, params []*parser.Parameter, rest *parser.RestParameter, body *parser.BlockStatement, reservesThis bool) *bytecode.Chunk {
	child := &Compiler{fs: scope.NewFuncScope(c.fs), chunk: bytecode.NewChunk(name), parent: c}
	child.chunk.ReservesThis = reservesThis
	if reservesThis {
		child.fs.DeclareThis()
	}
	for _, p := range params {
		if p.Name != nil {
			child.fs.Declare(p.Name.Value)
		} else {
			child.fail("compiler: destructuring parameters are not supported")
			child.fs.Declare("<destructured>")
		}
	}
	if rest != nil && rest.Name != nil {
		child.fs.Declare(rest.Name.Value)
	}
	child.chunk.ParamCount = len(params)

	if body != nil {
		for _, st := range body.Statements {
			child.compileStatement(st)
		}
	}
	child.chunk.Emit(bytecode.OpLoadUndefined, nil)
	child.chunk.Emit(bytecode.OpReturn, nil)
	child.chunk.RegisterCount = child.fs.RegisterCount()
	child.chunk.Upvalues = child.fs.Upvalues()

	c.errs = append(c.errs, child.errs...)
	return child.chunk
}

func (c *Compiler) emitCreateClosure(child *bytecode.Chunk, op bytecode.OpCode) {
	fi := uint16(len(c.chunk.NestedFunctions))
	c.chunk.NestedFunctions = append(c.chunk.NestedFunctions, child)

	c.chunk.Emit(op, nil)
	c.chunk.EmitUint16(fi)
	c.chunk.EmitByte(byte(len(child.Upvalues)))
	for _, uv := range child.Upvalues {
		if uv.IsLocal {
			c.chunk.EmitByte(1)
		} else {
			c.chunk.EmitByte(0)
		}
		c.chunk.EmitUint16(uint16(uv.Index))
	}
}

// --- Load/store helpers shared by identifiers, compound assignment,
// and update expressions. ---

func (c *Compiler) emitLoad(res scope.Resolution, name string, pos *bytecode.SourcePosition) {
	switch res.Kind {
	case scope.RefLocal:
		c.chunk.Emit(bytecode.OpLoadLocal, pos)
		c.chunk.EmitByte(byte(res.Index))
	case scope.RefUpvalue:
		c.chunk.Emit(bytecode.OpLoadUpvalue, pos)
		c.chunk.EmitUint16(uint16(res.Index))
	default:
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpLoadGlobal, pos)
		c.chunk.EmitUint16(idx)
	}
}

func (c *Compiler) emitStore(res scope.Resolution, name string, pos *bytecode.SourcePosition) {
	switch res.Kind {
	case scope.RefLocal:
		c.chunk.Emit(bytecode.OpStoreLocal, pos)
		c.chunk.EmitByte(byte(res.Index))
	case scope.RefUpvalue:
		c.chunk.Emit(bytecode.OpStoreUpvalue, pos)
		c.chunk.EmitUint16(uint16(res.Index))
	default:
		idx := c.chunk.AddConstant(value.String(name))
		c.chunk.Emit(bytecode.OpStoreGlobal, pos)
		c.chunk.EmitUint16(idx)
	}
}
