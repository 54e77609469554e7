// Package scope implements the scope analysis and upvalue resolution
// algorithm of spec.md §4.1: classifying every identifier reference as
// a local register, an upvalue (with the is_local/index descriptor
// chain that lets a closure capture a variable from any enclosing
// function, not just its immediate parent), or a global.
//
// The resolution rule mirrors the classic closure-compiler algorithm
// the teacher's own scope analyzer follows: a name resolves in the
// innermost block of the current function first; failing that, it
// recurses into the enclosing function's scope, and any local or
// upvalue it finds there is threaded back down as a new upvalue slot
// on every function scope in between.
package scope

import "lattice/pkg/bytecode"

// RefKind is what an identifier reference resolved to.
type RefKind int

const (
	RefGlobal RefKind = iota
	RefLocal
	RefUpvalue
)

// Resolution is the answer scope analysis gives for one identifier.
type Resolution struct {
	Kind  RefKind
	Index int // register index (RefLocal) or upvalue index (RefUpvalue)
}

type block struct {
	parent *block
	names  map[string]int // name -> register index
}

// FuncScope tracks the registers and upvalues of one function body
// (or the top-level script, which has no parent).
type FuncScope struct {
	parent *FuncScope

	current *block

	registerCount int
	upvalues      []bytecode.UpvalueDescriptor
	upvalueNames  []string // parallel to upvalues; addUpvalue dedups by descriptor, not by name

	// hasThis marks whether this function's implicit `this` binding
	// has been reserved a register yet.
	hasThis bool
}

// NewFuncScope opens a new function scope nested inside parent (nil
// for the top-level script).
func NewFuncScope(parent *FuncScope) *FuncScope {
	fs := &FuncScope{parent: parent}
	fs.PushBlock()
	return fs
}

func (fs *FuncScope) PushBlock() {
	fs.current = &block{parent: fs.current, names: make(map[string]int)}
}

func (fs *FuncScope) PopBlock() {
	if fs.current != nil {
		fs.current = fs.current.parent
	}
}

// Declare reserves the next register for name in the current block,
// shadowing any outer declaration of the same name within this
// function (spec.md §4.1: block scoping).
func (fs *FuncScope) Declare(name string) int {
	reg := fs.registerCount
	fs.registerCount++
	fs.current.names[name] = reg
	return reg
}

// DeclareThis reserves register 0 for the implicit `this` binding of
// a non-arrow function, once per function scope.
func (fs *FuncScope) DeclareThis() int {
	if fs.hasThis {
		if reg, ok := fs.lookupLocal("this"); ok {
			return reg
		}
	}
	fs.hasThis = true
	return fs.Declare("this")
}

func (fs *FuncScope) lookupLocal(name string) (int, bool) {
	for b := fs.current; b != nil; b = b.parent {
		if reg, ok := b.names[name]; ok {
			return reg, true
		}
	}
	return 0, false
}

// Resolve classifies name as local, upvalue, or global, threading a
// new upvalue descriptor through every function scope between the
// declaring scope and fs when the binding lives in an enclosing
// function (spec.md §4.1).
func (fs *FuncScope) Resolve(name string) Resolution {
	if reg, ok := fs.lookupLocal(name); ok {
		return Resolution{Kind: RefLocal, Index: reg}
	}
	if fs.parent == nil {
		return Resolution{Kind: RefGlobal}
	}
	parentRes := fs.parent.Resolve(name)
	switch parentRes.Kind {
	case RefLocal:
		idx := fs.addUpvalue(name, bytecode.UpvalueDescriptor{IsLocal: true, Index: uint32(parentRes.Index)})
		return Resolution{Kind: RefUpvalue, Index: idx}
	case RefUpvalue:
		idx := fs.addUpvalue(name, bytecode.UpvalueDescriptor{IsLocal: false, Index: uint32(parentRes.Index)})
		return Resolution{Kind: RefUpvalue, Index: idx}
	default:
		return Resolution{Kind: RefGlobal}
	}
}

func (fs *FuncScope) addUpvalue(name string, desc bytecode.UpvalueDescriptor) int {
	for i, existing := range fs.upvalues {
		if existing == desc {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, desc)
	fs.upvalueNames = append(fs.upvalueNames, name)
	return len(fs.upvalues) - 1
}

// AllocTemp reserves a fresh register that is never entered into any
// block's name table, for compiler-internal scratch values (e.g. the
// stashed-value pattern member/index assignment codegen needs to
// retain a store's result without a stack-rotate instruction).
func (fs *FuncScope) AllocTemp() int {
	reg := fs.registerCount
	fs.registerCount++
	return reg
}

func (fs *FuncScope) RegisterCount() int                    { return fs.registerCount }
func (fs *FuncScope) Upvalues() []bytecode.UpvalueDescriptor { return fs.upvalues }
