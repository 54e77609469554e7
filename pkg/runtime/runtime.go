// Package runtime is the embedder-facing driver of spec.md §6.3: the
// `Runtime` aggregate spec.md §4.5's glossary describes as owning "the
// global object, the function registry ... the heap, and the
// compiled-code cache" — "process-wide resources owned by a Runtime
// aggregate whose lifetime bounds all values; the embedder creates one
// Runtime per JavaScript realm" (spec.md §4.5 redesign-flags section).
//
// It wires pkg/vm's dispatcher to pkg/jit's tiering policy (via the
// call/type-observation hooks pkg/vm exposes precisely so neither
// package needs to import the other) and owns the cooperative
// microtask queue spec.md §5 describes. It is grounded on the
// teacher's own `pkg/driver`'s `Paserati` persistent-session type:
// one long-lived struct wrapping a VM, exposing `RunString`/
// `DisplayResult`-shaped methods for a CLI to drive.
package runtime

import (
	"fmt"

	"lattice/pkg/bytecode"
	"lattice/pkg/compiler"
	"lattice/pkg/errors"
	"lattice/pkg/heap"
	"lattice/pkg/jit"
	"lattice/pkg/lexer"
	"lattice/pkg/parser"
	"lattice/pkg/source"
	"lattice/pkg/value"
	"lattice/pkg/vm"
)

// Config bundles every subsystem's tunables behind one embedder-facing
// knob, the way the teacher's `modules.DefaultLoaderConfig` and
// friends are assembled in `driver.NewPaserati`.
type Config struct {
	Heap heap.Config
	JIT  jit.Config
}

func DefaultConfig() Config {
	return Config{Heap: heap.DefaultConfig(), JIT: jit.DefaultConfig()}
}

// Runtime is one JavaScript realm: a heap, a VM bound to it, and the
// JIT tiering policy that watches the VM's call/type-observation
// hooks. Globals, the function registry, and the heap persist across
// every Execute call made on it, exactly like the teacher's
// persistent `Paserati` session persists variables across REPL lines.
type Runtime struct {
	heap *heap.Heap
	vm   *vm.VM
	jit  *jit.JIT

	microtasks []func()
}

func New(cfg Config) *Runtime {
	h := heap.New(cfg.Heap)
	m := vm.New(h)
	j := jit.New(cfg.JIT)

	r := &Runtime{heap: h, vm: m, jit: j}
	m.SetCallHook(r.recordCall)
	m.SetTypeObserver(j.ObserveType)
	r.installGlobals()
	return r
}

// recordCall is pkg/vm's SetCallHook callback: it asks the JIT whether
// this entry crossed a promotion threshold and, if so, immediately
// acts on it (spec.md §6.3 allows "the driver (or interpreter)" to
// call record_call on entry; doing so synchronously here is simplest
// for a single-threaded embedder with no separate compile-on-another-
// thread pipeline).
func (r *Runtime) recordCall(functionID, count int) {
	switch r.jit.RecordCall(functionID, count) {
	case jit.PromoteToBaseline:
		r.CompileBaseline(functionID)
	case jit.PromoteToOptimized:
		r.CompileOptimized(functionID, nil)
	}
}

// --- spec.md §6.3 Runtime-driver API ---

// RegisterFunction installs chunk in the function registry and
// returns its function_id, usable by CreateClosure.
func (r *Runtime) RegisterFunction(chunk *bytecode.Chunk) int {
	return r.vm.RegisterFunction(chunk)
}

// Execute evaluates a freshly compiled top-level chunk, draining the
// microtask queue afterward (spec.md §5: "Microtasks ... run to
// completion on the engine thread between host tasks" — a top-level
// Execute call is the host task boundary in this embedder-facing API).
func (r *Runtime) Execute(chunk *bytecode.Chunk) (value.Value, *errors.JsError) {
	result, err := r.vm.Execute(chunk)
	if err != nil {
		return value.Undefined, vm.ToJsError(err)
	}
	r.DrainMicrotasks()
	return result, nil
}

// SetGlobal/GetGlobal implement spec.md §6.3's set_global/get_global.
func (r *Runtime) SetGlobal(name string, v value.Value) { r.vm.Globals[name] = v }

func (r *Runtime) GetGlobal(name string) (value.Value, bool) {
	v, ok := r.vm.Globals[name]
	return v, ok
}

// RecordCall implements spec.md §6.3's record_call when an embedder
// wants to drive tiering itself instead of relying on the automatic
// hook installed in New (e.g. replaying a recorded call trace).
func (r *Runtime) RecordCall(functionID int) bool {
	count := r.vm.CallCount(functionID) + 1
	promo := r.jit.RecordCall(functionID, count)
	return promo != jit.NoPromotion
}

// CompileBaseline/CompileOptimized implement spec.md §6.3's
// driver-invoked compilation entry points. See pkg/jit's package
// comment for why these update tiering bookkeeping without emitting
// native code: every tier still runs through pkg/vm's interpreter.
func (r *Runtime) CompileBaseline(functionID int) {
	r.jit.CompileBaseline(functionID)
}

func (r *Runtime) CompileOptimized(functionID int, _ any) {
	r.jit.CompileOptimized(functionID)
}

// Tier reports a function's current compiled tier.
func (r *Runtime) Tier(functionID int) jit.Tier { return r.jit.TierOf(functionID) }

// CollectGarbage/FullGC/GCStats implement spec.md §6.3's
// collect_garbage()/full_gc()/gc_stats().
func (r *Runtime) CollectGarbage() { r.heap.MinorGC(r.vm) }
func (r *Runtime) FullGC()         { r.heap.MajorGC(r.vm) }
func (r *Runtime) GCStats() heap.Stats { return r.heap.Stats() }

// CompileSource parses and compiles one top-level script (spec.md
// §6.1's AST contract feeding §3's bytecode generator), independent of
// any particular Runtime — mirrors the teacher's package-level
// `CompileString`, which likewise needs no persistent session.
func CompileSource(sf *source.SourceFile) (*bytecode.Chunk, []errors.LatticeError) {
	l := lexer.NewLexerWithSource(sf)
	p := parser.NewParser(l)
	prog, parseErrs := p.ParseProgram()
	if len(parseErrs) > 0 {
		return nil, parseErrs
	}
	chunk, compileErrs := compiler.CompileProgram(prog)
	if len(compileErrs) > 0 {
		return nil, compileErrs
	}
	return chunk, nil
}

// RunSource compiles and executes src against this Runtime's
// persistent globals and heap, the way the teacher's
// `Paserati.RunString` evaluates one REPL line in its session's
// standing environment. Parse/compile failures are reported as
// SyntaxError/InternalError JsErrors rather than panicking, since
// spec.md §6.4 draws no distinction at the embedder boundary between
// a parse failure and a runtime one — both arrive as a JsError.
func (r *Runtime) RunSource(sf *source.SourceFile) (value.Value, *errors.JsError) {
	chunk, errs := CompileSource(sf)
	if len(errs) > 0 {
		return value.Undefined, errors.FromLatticeError(errs[0])
	}
	return r.Execute(chunk)
}

// --- Microtask queue (spec.md §5) ---

// ScheduleMicrotask enqueues fn to run during the next DrainMicrotasks
// pass, in FIFO order (spec.md §5: "promise reactions observe FIFO
// scheduling within microtask flushes"). This core compiles no
// promise/async machinery of its own (see pkg/compiler's documented
// Await non-goal), so the queue has no built-in producer; it exists
// as infrastructure a native function can drive, exercised here by
// the `queueMicrotask` global installed in installGlobals.
func (r *Runtime) ScheduleMicrotask(fn func()) {
	r.microtasks = append(r.microtasks, fn)
}

// DrainMicrotasks runs every queued microtask to completion, including
// ones scheduled by a microtask that ran earlier in the same drain
// (spec.md §5's FIFO ordering applies across the whole flush, not just
// the tasks queued before the drain started).
func (r *Runtime) DrainMicrotasks() {
	for len(r.microtasks) > 0 {
		task := r.microtasks[0]
		r.microtasks = r.microtasks[1:]
		task()
	}
}

// installGlobals registers the small set of host-provided natives this
// core exposes directly, the way the teacher's driver installs its
// (much larger) builtins package into a fresh VM.
func (r *Runtime) installGlobals() {
	r.SetGlobal("queueMicrotask", r.heap.NewNativeFunction("queueMicrotask",
		func(this value.Value, args []value.Value, newTarget value.Value) (value.Value, error) {
			if len(args) == 0 || !args[0].IsCallable() {
				return value.Undefined, fmt.Errorf("queueMicrotask requires a callable argument")
			}
			cb := args[0]
			r.ScheduleMicrotask(func() {
				r.vm.Call(cb, value.Undefined, nil, value.Undefined)
			})
			return value.Undefined, nil
		}))
}
