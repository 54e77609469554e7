package value

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Generation identifies which part of the managed heap a HeapObject
// currently lives in (spec.md §3.7).
type Generation uint8

const (
	GenYoung Generation = iota
	GenOld
)

// HeapObject is the common header every heap-allocated value carries.
// pkg/heap owns the fields below the dashed line: it assigns them at
// allocation time and mutates them during collection. pkg/value never
// reads them except to report them back through Inspect/identity.
type HeapObject struct {
	Kind HeapKind
	// BirthID is a uuid assigned once when the object is created
	// (newHeapObject). Nothing in the core reads it back; no collection
	// moves objects, so the Go pointer already gives a stable identity
	// (SPEC_FULL.md §11: domain-stack wiring for github.com/google/uuid).
	BirthID uuid.UUID

	Data any // *PlainObject | *ArrayData | *ClosureData | *FunctionData | *RegExpData | *ErrorData | *MapData | *SetData

	// --- GC-owned bookkeeping (spec.md §3.7, §4.7, §4.8) ---
	Gen     Generation
	Age     int  // survived-minor-GC count, compared against the promotion threshold
	Marked  bool // old-gen tri-color mark bit (grey+black collapsed to one bit; white == !Marked)
	inOld   bool // never set: promotion records the generation in Gen
}

// owned is implemented by every mutable heap-data type that needs to
// fire the write barrier on its own field writes (spec.md §4.8); it
// records the HeapObject wrapping it so the mutator methods below
// have a container to pass to fireBarrier.
type owned interface {
	setOwner(*HeapObject)
}

func newHeapObject(kind HeapKind, data any) *HeapObject {
	h := &HeapObject{Kind: kind, BirthID: uuid.New(), Data: data}
	if o, ok := data.(owned); ok {
		o.setOwner(h)
	}
	return h
}

func (h *HeapObject) Inspect() string {
	switch d := h.Data.(type) {
	case *PlainObject:
		return d.Inspect()
	case *ArrayData:
		return d.Inspect()
	case *ClosureData:
		return fmt.Sprintf("[Function: %s]", d.Name)
	case *RegExpData:
		return fmt.Sprintf("/%s/%s", d.Source, d.Flags)
	case *ErrorData:
		return fmt.Sprintf("%s: %s", d.Name, d.Message)
	default:
		return fmt.Sprintf("[object %s]", h.Kind)
	}
}

// --- Hidden class (Shape) transition tree, spec.md §3.2 ---

// Field describes one property slot carved out by a Shape transition.
type Field struct {
	Name       string
	Offset     int
	Writable   bool
	Enumerable bool
}

// Shape is an immutable descriptor of an object's current property
// layout. Writing a new own property transitions to a child Shape
// (creating it on first use and caching it on the parent for reuse);
// writing an existing property never changes the Shape. The
// optimizing JIT (pkg/jit) caches property offsets keyed by Shape
// identity, exactly as spec.md §3.2/§4.6 describes.
type Shape struct {
	parent      *Shape
	fields      []Field
	transitions map[string]*Shape
	mu          sync.RWMutex
}

// RootShape is the empty shape every freshly allocated plain object
// starts from.
var RootShape = &Shape{}

// TransitionAdd returns the child shape that appends `name` as the
// next field, creating and caching it if this is the first object to
// take that transition from s.
func (s *Shape) TransitionAdd(name string) *Shape {
	s.mu.RLock()
	if s.transitions != nil {
		if child, ok := s.transitions[name]; ok {
			s.mu.RUnlock()
			return child
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transitions == nil {
		s.transitions = make(map[string]*Shape)
	}
	if child, ok := s.transitions[name]; ok {
		return child
	}
	fields := make([]Field, len(s.fields), len(s.fields)+1)
	copy(fields, s.fields)
	fields = append(fields, Field{Name: name, Offset: len(s.fields), Writable: true, Enumerable: true})
	child := &Shape{parent: s, fields: fields}
	s.transitions[name] = child
	return child
}

func (s *Shape) Lookup(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Shape) Fields() []Field { return s.fields }

// PlainObject is the insertion-ordered, string/symbol-keyed property
// bag of spec.md §3.2.
type PlainObject struct {
	shape      *Shape
	properties []Value
	symbols    map[*SymbolData]Value
	symbolKeys []*SymbolData // insertion order for symbol-keyed properties
	prototype  Value
	extensible bool

	// owner is the HeapObject this PlainObject backs, set once at
	// allocation time (newHeapObject) so SetOwn/SetSymbol can fire the
	// write barrier (spec.md §4.8). Left nil for a PlainObject used as
	// ArrayData's sparse-property bag, which isn't itself a separately
	// tracked heap object — its writes are barriered through the
	// owning array instead (see ArrayData.Props callers).
	owner *HeapObject
}

func (o *PlainObject) setOwner(h *HeapObject) { o.owner = h }

func NewPlainObject(prototype Value) *PlainObject {
	return &PlainObject{shape: RootShape, prototype: prototype, extensible: true}
}

func NewObject(prototype Value) Value {
	return HeapRef(newHeapObject(KindObject, NewPlainObject(prototype)))
}

func (o *PlainObject) Prototype() Value    { return o.prototype }
func (o *PlainObject) SetPrototype(p Value) {
	o.prototype = p
	fireBarrier(o.owner, p)
}
func (o *PlainObject) Extensible() bool    { return o.extensible }
func (o *PlainObject) PreventExtensions()  { o.extensible = false }
func (o *PlainObject) Shape() *Shape       { return o.shape }

// GetOwn looks up a direct (own) string-keyed property.
func (o *PlainObject) GetOwn(name string) (Value, bool) {
	if f, ok := o.shape.Lookup(name); ok {
		return o.properties[f.Offset], true
	}
	return Undefined, false
}

// SetOwn writes a string-keyed property, transitioning the shape if
// `name` has not been seen before on this object (spec.md §3.2).
func (o *PlainObject) SetOwn(name string, v Value) {
	if f, ok := o.shape.Lookup(name); ok {
		o.properties[f.Offset] = v
		fireBarrier(o.owner, v)
		return
	}
	o.shape = o.shape.TransitionAdd(name)
	o.properties = append(o.properties, v)
	fireBarrier(o.owner, v)
}

func (o *PlainObject) HasOwn(name string) bool {
	_, ok := o.shape.Lookup(name)
	return ok
}

func (o *PlainObject) DeleteOwn(name string) bool {
	f, ok := o.shape.Lookup(name)
	if !ok {
		return true
	}
	// Deletion leaves the shape tree append-only (as the teacher does
	// for append-only transitions); the simplest correct model is to
	// fall back to a fresh shape rebuilt from the remaining fields in
	// original order, since deletions are rare compared to reads/writes.
	var names []string
	var vals []Value
	for _, field := range o.shape.Fields() {
		if field.Name == name {
			continue
		}
		names = append(names, field.Name)
		vals = append(vals, o.properties[field.Offset])
	}
	_ = f
	newShape := RootShape
	for _, n := range names {
		newShape = newShape.TransitionAdd(n)
	}
	o.shape = newShape
	o.properties = vals
	return true
}

func (o *PlainObject) GetSymbol(sym *SymbolData) (Value, bool) {
	if o.symbols == nil {
		return Undefined, false
	}
	v, ok := o.symbols[sym]
	return v, ok
}

func (o *PlainObject) SetSymbol(sym *SymbolData, v Value) {
	if o.symbols == nil {
		o.symbols = make(map[*SymbolData]Value)
	}
	if _, exists := o.symbols[sym]; !exists {
		o.symbolKeys = append(o.symbolKeys, sym)
	}
	o.symbols[sym] = v
	fireBarrier(o.owner, v)
}

// OwnKeys returns the string keys in insertion (shape transition) order.
func (o *PlainObject) OwnKeys() []string {
	fields := o.shape.Fields()
	keys := make([]string, len(fields))
	// Fields are recorded in transition (== insertion) order already
	// because Offset is assigned monotonically; sort defensively in
	// case a shape was rebuilt by DeleteOwn.
	tmp := make([]Field, len(fields))
	copy(tmp, fields)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i].Offset < tmp[j].Offset })
	for i, f := range tmp {
		keys[i] = f.Name
	}
	return keys
}

func (o *PlainObject) Inspect() string {
	keys := o.OwnKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := o.GetOwn(k)
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Inspect()))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func (v Value) AsPlainObject() *PlainObject {
	if v.typ != TypeHeapRef {
		return nil
	}
	if p, ok := v.ref.Data.(*PlainObject); ok {
		return p
	}
	return nil
}
