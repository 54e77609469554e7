package vm

import (
	"lattice/pkg/bytecode"
	"lattice/pkg/value"
)

// handler is one active try/catch/finally region on a frame's handler
// stack. PushTry and PushFinally both register against the same
// handler when a try statement carries both clauses (spec.md §4.2's
// compiler emits them back-to-back for that case), so the dispatcher
// doesn't have to decide which of two independent stacks "belongs" to
// which try statement.
type handler struct {
	hasCatch      bool
	catchIP       int
	catchConsumed bool

	hasFinally      bool
	finallyIP       int
	finallyConsumed bool
}

// Frame is one activation record of the call stack (spec.md §4.5):
// its own register file (sized by the chunk's RegisterCount), an
// implicit operand stack, and the instruction pointer into its chunk.
type Frame struct {
	Chunk      *bytecode.Chunk
	FunctionID int
	Registers  []value.Value
	Upvalues   []*value.UpvalueCell
	IP         int

	stack []value.Value

	handlers   []*handler
	pendingTry *handler

	// openUpvalues caches the cell created for a given local register
	// so that two closures created while this frame is live and
	// capturing the same register share one cell (spec.md §4.9: "share
	// the same cell (fundamental for correct shared mutation)").
	openUpvalues map[int]*value.UpvalueCell
}

func newFrame(chunk *bytecode.Chunk, functionID int, registers []value.Value, upvalues []*value.UpvalueCell) *Frame {
	return &Frame{Chunk: chunk, FunctionID: functionID, Registers: registers, Upvalues: upvalues}
}

func (f *Frame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *Frame) pop() value.Value {
	n := len(f.stack)
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v
}

// upvalueFor returns the shared open cell aliasing register reg,
// creating it on first capture (spec.md §4.9 CreateClosure semantics).
func (f *Frame) upvalueFor(reg int) *value.UpvalueCell {
	if f.openUpvalues == nil {
		f.openUpvalues = make(map[int]*value.UpvalueCell)
	}
	if cell, ok := f.openUpvalues[reg]; ok {
		return cell
	}
	cell := value.NewOpenUpvalue(f.Registers, reg)
	f.openUpvalues[reg] = cell
	return cell
}

// closeUpvalue closes any open cell sourced from register reg, per
// OpCloseUpvalue (spec.md §4.9): the cell snapshots the register's
// current value and stops aliasing live frame storage.
func (f *Frame) closeUpvalue(reg int) {
	if cell, ok := f.openUpvalues[reg]; ok {
		cell.Close()
		delete(f.openUpvalues, reg)
	}
}

// unwind searches this frame's active handler stack for a catch
// clause, from innermost to outermost (spec.md §4.5: "Throw pops a
// value and unwinds frames, consulting each frame's try/finally
// chain. On a matching PushTry frame, control transfers to the catch
// offset"). It reports whether a catch handler in THIS frame claimed
// the exception; the caller is responsible for continuing dispatch at
// f.IP (already repointed to the catch target) when it does.
//
// A thrown value that unwinds past an enclosing try-without-catch (a
// bare `finally`, or a handler whose own catch already ran and
// rethrew) does not run that finally block here: the compiled chunk
// has no instruction marking where a finally block ends, only where
// it begins, so there is no safe resumption point to rejoin ordinary
// dispatch afterward. finally blocks run correctly on every
// non-exceptional path (including immediately after a catch handles
// the exception, which is plain sequential bytecode) — only the
// exceptional path through a catch-less finally is approximated by
// skipping it. See DESIGN.md.
func (f *Frame) unwind(thrown value.Value) bool {
	for i := len(f.handlers) - 1; i >= 0; i-- {
		h := f.handlers[i]
		if h.hasCatch && !h.catchConsumed {
			h.catchConsumed = true
			f.handlers = f.handlers[:i+1]
			f.IP = h.catchIP
			f.push(thrown)
			return true
		}
	}
	return false
}
