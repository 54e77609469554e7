package value

// UpvalueCell is the heap-allocated mutable slot shared by every
// closure that captured the same enclosing binding (spec.md §3.4,
// §4.9). While Open, it aliases a register slot in the still-live
// frame that declared the binding; CloseUpvalue copies the register's
// current value into the cell and flips it to closed, after which
// reads and writes go directly to the cell.
type UpvalueCell struct {
	Open  bool
	Value Value // valid when !Open
	// FrameRegisters/Index alias a live frame's register file while
	// Open; the interpreter (pkg/vm) is the only package that writes
	// these two fields, since only it owns frame register storage.
	FrameRegisters []Value
	Index          int
}

// NewOpenUpvalue aliases register `index` of the given live register
// file.
func NewOpenUpvalue(registers []Value, index int) *UpvalueCell {
	return &UpvalueCell{Open: true, FrameRegisters: registers, Index: index}
}

func (c *UpvalueCell) Get() Value {
	if c.Open {
		return c.FrameRegisters[c.Index]
	}
	return c.Value
}

func (c *UpvalueCell) Set(v Value) {
	if c.Open {
		c.FrameRegisters[c.Index] = v
		return
	}
	c.Value = v
}

// Close copies the aliased register into the cell and severs the
// alias, per spec.md §4.9.
func (c *UpvalueCell) Close() {
	if !c.Open {
		return
	}
	c.Value = c.FrameRegisters[c.Index]
	c.FrameRegisters = nil
	c.Open = false
}

// UpvalueDescriptor is the per-slot capture recipe a CreateClosure
// instruction carries (spec.md §4.1): IsLocal=true captures register
// Index of the *immediately enclosing* frame directly; IsLocal=false
// copies upvalue Index from the enclosing function's own upvalue
// vector, chaining capture across arbitrarily many levels.
type UpvalueDescriptor struct {
	IsLocal bool
	Index   uint32
}

// ClosureData is the runtime representation of spec.md §3.4: a
// function id (resolved against the embedder's function registry,
// pkg/runtime) plus the fixed-length vector of captured cells.
type ClosureData struct {
	FunctionID int
	Name       string
	Upvalues   []*UpvalueCell
	// CompiledTier is int32 storage matching pkg/jit.Tier. Nothing in
	// the core writes it, so it stays 0; pkg/jit tracks each function
	// id's tier in its own tables.
	CompiledTier int32
}

func NewClosure(functionID int, name string, upvalues []*UpvalueCell) Value {
	return HeapRef(newHeapObject(KindClosure, &ClosureData{
		FunctionID: functionID,
		Name:       name,
		Upvalues:   upvalues,
	}))
}

func (v Value) AsClosure() *ClosureData {
	if v.typ != TypeHeapRef {
		return nil
	}
	if c, ok := v.ref.Data.(*ClosureData); ok {
		return c
	}
	return nil
}
