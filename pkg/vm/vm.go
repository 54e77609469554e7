// Package vm implements the fetch-execute dispatcher of spec.md §4.5:
// the register-file/operand-stack hybrid execution model, the call
// protocol (Call/CallMethod/CallNew), and exception unwinding across
// a stack of Frames. It is Tier 0 of spec.md §4.6's tiering ladder —
// always available, and the only tier pkg/jit's baseline/optimizing
// code ever deoptimizes back into.
//
// The call stack itself rides on Go's own call stack (each JS call
// recurses into vm.run), which keeps the dispatcher's control flow as
// direct as the teacher's own tree-walking evaluator; vm.callStack is
// a parallel, VM-owned slice of the same Frames purely so GC root
// enumeration (vm.Roots, spec.md §4.7) and stack-depth accounting have
// something to walk without reflecting over the Go stack itself.
package vm

import (
	"fmt"

	"lattice/pkg/bytecode"
	"lattice/pkg/heap"
	"lattice/pkg/value"
)

// defaultMaxCallDepth bounds the JS call stack (spec.md §7:
// "stack overflow ... surfaces as RangeError: Maximum call stack size
// exceeded"). It is deliberately far below Go's own stack limit so
// the engine raises a catchable JS error instead of crashing the host
// process.
const defaultMaxCallDepth = 2000

// VM owns one engine instance's heap, globals, and live call stack.
// It implements heap.RootSource so the collector can pause the
// dispatcher at a safe point (between instructions) and trace every
// register, operand-stack slot, and global as a root.
type VM struct {
	Heap    *heap.Heap
	Globals map[string]value.Value

	callStack []*Frame

	funcIDs    map[*bytecode.Chunk]int
	funcChunks []*bytecode.Chunk

	maxCallDepth int

	// pendingErr carries an error out of run's dispatch loop on the
	// path where raise reports false: Go's switch/continue can't
	// express "return this error" from inside the loop without an
	// extra branch at every call site, so raise stashes it here and
	// every caller that sees raise return false immediately returns
	// it.
	pendingErr error

	callCounts   map[int]int
	onCall       func(functionID int, count int)
	typeObserver func(functionID, site int, operandType string)
}

func New(h *heap.Heap) *VM {
	return &VM{
		Heap:         h,
		Globals:      make(map[string]value.Value),
		funcIDs:      make(map[*bytecode.Chunk]int),
		callCounts:   make(map[int]int),
		maxCallDepth: defaultMaxCallDepth,
	}
}

// SetCallHook installs the callback invoked once per closure call, after
// its entry count has been incremented (spec.md §6.3's `record_call`,
// "the driver (or interpreter) calls this on entry"). pkg/vm owns the
// counters themselves — they're plain bookkeeping keyed by the
// function_id it already hands out via RegisterFunction — but never
// imports pkg/jit or pkg/runtime to decide what a threshold crossing
// means; that policy lives entirely in the closure passed here.
func (vm *VM) SetCallHook(fn func(functionID int, count int)) { vm.onCall = fn }

// CallCount reports the current entry count recorded for functionID.
func (vm *VM) CallCount(functionID int) int { return vm.callCounts[functionID] }

// SetTypeObserver installs the callback invoked on the binary
// arithmetic (Add/Sub/Mul/Div/Mod), relational (<, <=, >, >=) and
// named-property-read (LoadProperty) instructions (spec.md §4.5's
// "on each instruction that sees a value operand whose type can vary
// ... update the per-instruction type histogram"). The site identifier
// is the instruction's own IP within its chunk, which together with
// functionID is a stable per-site key across calls.
func (vm *VM) SetTypeObserver(fn func(functionID, site int, operandType string)) {
	vm.typeObserver = fn
}

func (vm *VM) observeType(f *Frame, operand value.Value) {
	if vm.typeObserver == nil {
		return
	}
	vm.typeObserver(f.FunctionID, f.IP, operand.TypeOf())
}

// RegisterFunction installs chunk in the function registry and
// returns a stable function_id (spec.md §6.3's embedder-facing
// `register_function`). Resolving OpCreateClosure's functionIndex
// against the *executing frame's own* NestedFunctions list — rather
// than requiring every nested chunk to be pre-registered by an
// embedder — means pkg/vm never needs pkg/runtime to exist first;
// RegisterFunction just memoizes chunk identity behind an int so
// ClosureData.FunctionID (and later, pkg/jit's per-function compiled
// tier and profile tables) have a stable key.
func (vm *VM) RegisterFunction(chunk *bytecode.Chunk) int {
	if id, ok := vm.funcIDs[chunk]; ok {
		return id
	}
	id := len(vm.funcChunks)
	vm.funcIDs[chunk] = id
	vm.funcChunks = append(vm.funcChunks, chunk)
	return id
}

func (vm *VM) ChunkForFunctionID(id int) (*bytecode.Chunk, bool) {
	if id < 0 || id >= len(vm.funcChunks) {
		return nil, false
	}
	return vm.funcChunks[id], true
}

// Execute evaluates a freshly compiled top-level chunk (spec.md §6.3's
// `execute(chunk) -> Value | JsError`). The caller converts a non-nil
// error with ToJsError before handing it to an embedder.
func (vm *VM) Execute(chunk *bytecode.Chunk) (value.Value, error) {
	fid := vm.RegisterFunction(chunk)
	registers := make([]value.Value, chunk.RegisterCount)
	frame := newFrame(chunk, fid, registers, nil)
	vm.callStack = append(vm.callStack, frame)
	defer func() { vm.callStack = vm.callStack[:len(vm.callStack)-1] }()
	return vm.run(frame)
}

// Call implements spec.md §4.5's call protocol for both OpCall/
// OpCallMethod (newTarget is Undefined) and OpCallNew (newTarget is
// the constructor). It dispatches on the callee's heap kind: a
// KindClosure call pushes a new Frame and recurses into vm.run; a
// KindFunction call invokes the host-provided NativeFn directly with
// no frame of its own, since there is no bytecode to execute.
func (vm *VM) Call(callee, this value.Value, args []value.Value, newTarget value.Value) (value.Value, error) {
	kind, ok := callee.HeapKind()
	if !ok {
		return value.Undefined, vm.typeError(fmt.Sprintf("%s is not a function", toStr(callee)))
	}
	switch kind {
	case value.KindFunction:
		fn := callee.AsFunction()
		result, err := fn.Fn(this, args, newTarget)
		if err != nil {
			if te, ok := err.(*ThrownError); ok {
				return value.Undefined, te
			}
			return value.Undefined, fmt.Errorf("native function %q: %w", fn.Name, err)
		}
		return result, nil
	case value.KindClosure:
		return vm.callClosure(callee.AsClosure(), this, args)
	default:
		return value.Undefined, vm.typeError(fmt.Sprintf("%s is not a function", toStr(callee)))
	}
}

func (vm *VM) callClosure(cd *value.ClosureData, this value.Value, args []value.Value) (value.Value, error) {
	chunk, ok := vm.ChunkForFunctionID(cd.FunctionID)
	if !ok {
		return value.Undefined, fmt.Errorf("call to closure %q with unregistered function id %d", cd.Name, cd.FunctionID)
	}
	if len(vm.callStack) >= vm.maxCallDepth {
		return value.Undefined, vm.rangeError("Maximum call stack size exceeded")
	}

	vm.callCounts[cd.FunctionID]++
	if vm.onCall != nil {
		vm.onCall(cd.FunctionID, vm.callCounts[cd.FunctionID])
	}

	registers := make([]value.Value, chunk.RegisterCount)
	paramStart := 0
	if chunk.ReservesThis {
		registers[0] = this
		paramStart = 1
	}
	// Missing parameters stay Undefined (the zero Value); extra
	// arguments beyond ParamCount are simply not copied into any
	// register — this core has no `arguments` object (pkg/compiler
	// never emits destructuring/rest access for it), so there is
	// nowhere else for them to go (spec.md §4.5's "retained for
	// arguments-like access where applicable" — not applicable here).
	for i := 0; i < chunk.ParamCount && i < len(args); i++ {
		registers[paramStart+i] = args[i]
	}

	frame := newFrame(chunk, cd.FunctionID, registers, cd.Upvalues)
	vm.callStack = append(vm.callStack, frame)
	result, err := vm.run(frame)
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	return result, err
}

// Roots implements heap.RootSource (spec.md §4.7's root list:
// "execution context registers, operand stacks of every live frame,
// globals"). Open upvalue cells alias a register already being
// scanned, so only closed cells contribute an extra root; a closure
// object's own (possibly-closed) upvalues are covered separately by
// value.HeapObject.WalkReferences once the closure itself is reached
// from some root.
func (vm *VM) Roots(dst []value.Value) []value.Value {
	for _, f := range vm.callStack {
		dst = append(dst, f.Registers...)
		dst = append(dst, f.stack...)
		for _, cell := range f.openUpvalues {
			if !cell.Open {
				dst = append(dst, cell.Get())
			}
		}
	}
	for _, v := range vm.Globals {
		dst = append(dst, v)
	}
	return dst
}

// maybeCollect runs a minor and/or major collection if the heap's
// configured thresholds are exceeded. Called once per dispatched
// instruction: both checks are cheap integer comparisons, and
// spec.md §4.7 requires GC to trigger "when a ... bump allocation
// would overflow," i.e. before the next allocation rather than at an
// arbitrary fixed cadence — checking every instruction is the
// simplest safe point that satisfies that without threading an
// "about to allocate" signal through every opcode that allocates.
func (vm *VM) maybeCollect() {
	if vm.Heap.ShouldCollectMinor() {
		vm.Heap.MinorGC(vm)
	}
	if vm.Heap.ShouldCollectMajor() {
		vm.Heap.MajorGC(vm)
	}
}

func readU16(code []byte, ip int) uint16 {
	return uint16(code[ip]) | uint16(code[ip+1])<<8
}

func readI16(code []byte, ip int) int16 { return int16(readU16(code, ip)) }

// run is the fetch-execute loop (spec.md §4.5): one instruction at a
// time to completion, no preemption, until Return or an unhandled
// error propagates out.
func (vm *VM) run(f *Frame) (value.Value, error) {
	code := f.Chunk.Instructions
	for f.IP < len(code) {
		vm.maybeCollect()

		op := bytecode.OpCode(code[f.IP])
		f.IP++
		if op != bytecode.OpPushFinally {
			f.pendingTry = nil
		}

		switch op {
		case bytecode.OpLoadConstant:
			idx := readU16(code, f.IP)
			f.IP += 2
			f.push(f.Chunk.Constants[idx])
		case bytecode.OpLoadUndefined:
			f.push(value.Undefined)
		case bytecode.OpLoadNull:
			f.push(value.Null)
		case bytecode.OpLoadTrue:
			f.push(value.True)
		case bytecode.OpLoadFalse:
			f.push(value.False)
		case bytecode.OpLoadLocal:
			reg := int(code[f.IP])
			f.IP++
			f.push(f.Registers[reg])
		case bytecode.OpStoreLocal:
			reg := int(code[f.IP])
			f.IP++
			f.Registers[reg] = f.pop()

		case bytecode.OpLoadGlobal:
			idx := readU16(code, f.IP)
			f.IP += 2
			name := f.Chunk.Constants[idx].AsString()
			v, ok := vm.Globals[name]
			if !ok {
				if !vm.raise(f, vm.referenceError(name+" is not defined")) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(v)
		case bytecode.OpStoreGlobal:
			idx := readU16(code, f.IP)
			f.IP += 2
			name := f.Chunk.Constants[idx].AsString()
			vm.Globals[name] = f.pop()

		case bytecode.OpAdd:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(opAdd(a, b))
		case bytecode.OpSub:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(opSub(a, b))
		case bytecode.OpMul:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(opMul(a, b))
		case bytecode.OpDiv:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(opDiv(a, b))
		case bytecode.OpMod:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(opMod(a, b))
		case bytecode.OpNeg:
			f.push(opNeg(f.pop()))
		case bytecode.OpNot:
			f.push(value.Boolean(!f.pop().Truthy()))
		case bytecode.OpTypeOf:
			f.push(value.String(f.pop().TypeOf()))

		case bytecode.OpEqual:
			b, a := f.pop(), f.pop()
			f.push(value.Boolean(abstractEquals(a, b)))
		case bytecode.OpNotEqual:
			b, a := f.pop(), f.pop()
			f.push(value.Boolean(!abstractEquals(a, b)))
		case bytecode.OpStrictEqual:
			b, a := f.pop(), f.pop()
			f.push(value.Boolean(value.StrictEquals(a, b)))
		case bytecode.OpStrictNotEqual:
			b, a := f.pop(), f.pop()
			f.push(value.Boolean(!value.StrictEquals(a, b)))
		case bytecode.OpLessThan:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(value.Boolean(opLessThan(a, b)))
		case bytecode.OpLessThanEqual:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(value.Boolean(opLessThanEqual(a, b)))
		case bytecode.OpGreaterThan:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(value.Boolean(opGreaterThan(a, b)))
		case bytecode.OpGreaterThanEqual:
			b, a := f.pop(), f.pop()
			vm.observeType(f, a)
			f.push(value.Boolean(opGreaterThanEqual(a, b)))

		case bytecode.OpJump:
			off := readI16(code, f.IP)
			f.IP += 2
			f.IP += int(off)
		case bytecode.OpJumpIfTrue:
			off := readI16(code, f.IP)
			f.IP += 2
			if f.pop().Truthy() {
				f.IP += int(off)
			}
		case bytecode.OpJumpIfFalse:
			off := readI16(code, f.IP)
			f.IP += 2
			if !f.pop().Truthy() {
				f.IP += int(off)
			}
		case bytecode.OpReturn:
			return f.pop(), nil

		case bytecode.OpCreateObject:
			f.push(vm.Heap.NewObject(value.Undefined))
		case bytecode.OpCreateArray:
			n := int(readU16(code, f.IP))
			f.IP += 2
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = f.pop()
			}
			f.push(vm.Heap.NewArrayFrom(value.Undefined, elems))
		case bytecode.OpLoadProperty:
			idx := readU16(code, f.IP)
			f.IP += 2
			name := f.Chunk.Constants[idx].AsString()
			obj := f.pop()
			vm.observeType(f, obj)
			v, err := vm.getProperty(obj, name)
			if err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(v)
		case bytecode.OpStoreProperty:
			idx := readU16(code, f.IP)
			f.IP += 2
			name := f.Chunk.Constants[idx].AsString()
			v := f.pop()
			obj := f.pop()
			if err := vm.setProperty(obj, name, v); err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
		case bytecode.OpGetIndex:
			idx := f.pop()
			obj := f.pop()
			v, err := vm.getIndex(obj, idx)
			if err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(v)
		case bytecode.OpSetIndex:
			v := f.pop()
			idx := f.pop()
			obj := f.pop()
			if err := vm.setIndex(obj, idx, v); err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}

		case bytecode.OpCreateClosure, bytecode.OpCreateAsyncFunction:
			fi := readU16(code, f.IP)
			f.IP += 2
			upvalCount := int(code[f.IP])
			f.IP++
			cells := make([]*value.UpvalueCell, upvalCount)
			for i := 0; i < upvalCount; i++ {
				isLocal := code[f.IP] != 0
				f.IP++
				index := int(readU16(code, f.IP))
				f.IP += 2
				if isLocal {
					cells[i] = f.upvalueFor(index)
				} else {
					cells[i] = f.Upvalues[index]
				}
			}
			child := f.Chunk.NestedFunctions[fi]
			fid := vm.RegisterFunction(child)
			f.push(vm.Heap.NewClosure(fid, child.Name, cells))
		case bytecode.OpLoadUpvalue:
			idx := readU16(code, f.IP)
			f.IP += 2
			f.push(f.Upvalues[idx].Get())
		case bytecode.OpStoreUpvalue:
			idx := readU16(code, f.IP)
			f.IP += 2
			f.Upvalues[idx].Set(f.pop())
		case bytecode.OpCloseUpvalue:
			reg := int(code[f.IP])
			f.IP++
			f.closeUpvalue(reg)

		case bytecode.OpCall:
			argc := int(code[f.IP])
			f.IP++
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			callee := f.pop()
			result, err := vm.Call(callee, value.Undefined, args, value.Undefined)
			if err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(result)
		case bytecode.OpCallMethod:
			argc := int(code[f.IP])
			f.IP++
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			method := f.pop()
			this := f.pop()
			result, err := vm.Call(method, this, args, value.Undefined)
			if err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(result)
		case bytecode.OpCallNew:
			argc := int(code[f.IP])
			f.IP++
			args := make([]value.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = f.pop()
			}
			ctor := f.pop()
			result, err := vm.construct(ctor, args)
			if err != nil {
				if !vm.raise(f, err) {
					return value.Undefined, vm.pendingErr
				}
				continue
			}
			f.push(result)

		case bytecode.OpThrow:
			v := f.pop()
			if f.unwind(v) {
				continue
			}
			return value.Undefined, &ThrownError{Value: v}
		case bytecode.OpPushTry:
			off := readI16(code, f.IP)
			f.IP += 2
			h := &handler{hasCatch: true, catchIP: f.IP + int(off)}
			f.handlers = append(f.handlers, h)
			f.pendingTry = h
		case bytecode.OpPopTry:
			if n := len(f.handlers); n > 0 {
				top := f.handlers[n-1]
				top.hasCatch = false
				if !top.hasFinally {
					f.handlers = f.handlers[:n-1]
				}
			}
		case bytecode.OpPushFinally:
			off := readI16(code, f.IP)
			f.IP += 2
			target := f.IP + int(off)
			if f.pendingTry != nil {
				f.pendingTry.hasFinally = true
				f.pendingTry.finallyIP = target
			} else {
				f.handlers = append(f.handlers, &handler{hasFinally: true, finallyIP: target})
			}
		case bytecode.OpPopFinally:
			if n := len(f.handlers); n > 0 {
				f.handlers = f.handlers[:n-1]
			}

		case bytecode.OpPop:
			f.pop()
		case bytecode.OpDup:
			f.push(f.peek())
		case bytecode.OpAwait:
			// async/await bodies are never emitted by pkg/compiler (see
			// DESIGN.md: parser support gap), so Await treats its
			// operand as already-settled and resumes immediately rather
			// than yielding to a host event loop (spec.md §5).

		default:
			return value.Undefined, fmt.Errorf("vm: unknown opcode %d at ip %d", op, f.IP-1)
		}
	}
	return value.Undefined, nil
}

func (f *Frame) peek() value.Value { return f.stack[len(f.stack)-1] }

// raise is the shared continuation for every opcode whose helper
// returned an error: a *ThrownError gets one chance to be claimed by
// this frame's own handler stack (f.unwind); anything else is an
// engine-internal fault that no try/catch may observe (spec.md §7).
// Reports false (dispatch must stop and propagate vm.pendingErr) or
// true (a catch claimed it; f.IP already points at the handler).
func (vm *VM) raise(f *Frame, err error) bool {
	te, ok := err.(*ThrownError)
	if !ok {
		vm.pendingErr = err
		return false
	}
	if f.unwind(te.Value) {
		return true
	}
	vm.pendingErr = err
	return false
}

// construct implements OpCallNew (spec.md §4.5): a fresh object is
// allocated with the constructor's own .prototype (Undefined for a
// closure constructor, since ClosureData carries no settable
// .prototype property storage in this core's object model — see
// DESIGN.md), bound as `this`; if the constructor body returns a heap
// reference, that supersedes the freshly constructed `this`.
func (vm *VM) construct(ctor value.Value, args []value.Value) (value.Value, error) {
	proto := value.Undefined
	if kind, ok := ctor.HeapKind(); ok && kind == value.KindFunction {
		proto = ctor.AsFunction().Prototype
	}
	instance := vm.Heap.NewObject(proto)
	result, err := vm.Call(ctor, instance, args, ctor)
	if err != nil {
		return value.Undefined, err
	}
	if result.Type() == value.TypeHeapRef {
		return result, nil
	}
	return instance, nil
}
