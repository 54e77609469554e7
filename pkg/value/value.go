// Package value defines the tagged Value union, the Object/Array/
// Closure heap shapes, and the hidden-class (Shape) transition tree
// that the core's interpreter, tiers, and GC all operate over
// (spec.md §3).
package value

import (
	"fmt"
	"math"
	"math/big"
)

// ValueType discriminates a Value's variant (spec.md §3.1).
type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBoolean
	TypeSmallInt
	TypeDouble
	TypeString
	TypeBigInt
	TypeSymbol
	TypeHeapRef
)

func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeSmallInt, TypeDouble:
		return "number"
	case TypeString:
		return "string"
	case TypeBigInt:
		return "bigint"
	case TypeSymbol:
		return "symbol"
	case TypeHeapRef:
		return "object"
	default:
		return "unknown"
	}
}

// HeapKind discriminates what a HeapRef value points at (spec.md §3.1).
type HeapKind uint8

const (
	KindObject HeapKind = iota
	KindArray
	KindFunction
	KindClosure
	KindRegExp
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindError
	KindProxy
	KindGenerator
	KindAsyncGenerator
	KindWeakRef
	KindFinalizationRegistry
)

func (k HeapKind) String() string {
	switch k {
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindRegExp:
		return "RegExp"
	case KindMap:
		return "Map"
	case KindSet:
		return "Set"
	case KindWeakMap:
		return "WeakMap"
	case KindWeakSet:
		return "WeakSet"
	case KindError:
		return "Error"
	case KindProxy:
		return "Proxy"
	case KindGenerator:
		return "Generator"
	case KindAsyncGenerator:
		return "AsyncGenerator"
	case KindWeakRef:
		return "WeakRef"
	case KindFinalizationRegistry:
		return "FinalizationRegistry"
	default:
		return "<unknown-heap-kind>"
	}
}

// Value is the tagged union described in spec.md §3.1. SmallInt is at
// least a 32-bit signed range; arithmetic that overflows it promotes
// to Double rather than wrapping (spec.md §8.3). Strings are stored as
// immutable Go strings directly in the Value rather than through a
// HeapRef: a Go string header is itself already an immutable,
// reference-counted-by-the-runtime byte sequence, so routing it
// through the generational heap would buy nothing the GC's semantics
// care about (see DESIGN.md).
type Value struct {
	typ ValueType
	i32 int32
	f64 float64
	str string
	sym *SymbolData
	big *big.Int
	ref *HeapObject
}

// SymbolData backs a Symbol value: unique identity, optional description.
type SymbolData struct {
	Description string
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, i32: 1}
	False     = Value{typ: TypeBoolean, i32: 0}
)

func Boolean(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int constructs a SmallInt value. Callers that perform arithmetic
// should use NumberFromInt64, which promotes out-of-range results to
// Double per spec.md §3.1.
func Int(i int32) Value { return Value{typ: TypeSmallInt, i32: i} }

// NumberFromInt64 produces a SmallInt if i fits the 32-bit signed
// range reserved for it, otherwise a Double (spec.md §3.1, §8.3).
func NumberFromInt64(i int64) Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int(int32(i))
	}
	return Double(float64(i))
}

func Double(f float64) Value { return Value{typ: TypeDouble, f64: f} }

func String(s string) Value { return Value{typ: TypeString, str: s} }

func BigInt(b *big.Int) Value { return Value{typ: TypeBigInt, big: b} }

func Symbol(description string) Value {
	return Value{typ: TypeSymbol, sym: &SymbolData{Description: description}}
}

// HeapRef wraps a heap object pointer into a Value (spec.md §3.1
// `HeapRef(kind, id)` — `id` is the object's stable identity, which
// here is simply the pointer identity of its HeapObject header; the
// GC never changes that identity across a minor or major collection,
// see pkg/heap).
func HeapRef(obj *HeapObject) Value {
	if obj == nil {
		return Undefined
	}
	return Value{typ: TypeHeapRef, ref: obj}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsNullish() bool   { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsSmallInt() bool  { return v.typ == TypeSmallInt }
func (v Value) IsDouble() bool    { return v.typ == TypeDouble }
func (v Value) IsNumber() bool    { return v.typ == TypeSmallInt || v.typ == TypeDouble }
func (v Value) IsString() bool    { return v.typ == TypeString }
func (v Value) IsBigInt() bool    { return v.typ == TypeBigInt }
func (v Value) IsSymbol() bool    { return v.typ == TypeSymbol }
func (v Value) IsHeapRef() bool   { return v.typ == TypeHeapRef }

func (v Value) HeapKind() (HeapKind, bool) {
	if v.typ != TypeHeapRef {
		return 0, false
	}
	return v.ref.Kind, true
}

func (v Value) IsCallable() bool {
	if v.typ != TypeHeapRef {
		return false
	}
	switch v.ref.Kind {
	case KindFunction, KindClosure:
		return true
	default:
		return false
	}
}

func (v Value) AsBoolean() bool { return v.i32 != 0 }
func (v Value) AsInt32() int32  { return v.i32 }

// AsFloat returns the numeric value of a SmallInt or Double Value.
func (v Value) AsFloat() float64 {
	if v.typ == TypeSmallInt {
		return float64(v.i32)
	}
	return v.f64
}

func (v Value) AsBigInt() *big.Int { return v.big }
func (v Value) AsString() string   { return v.str }
func (v Value) AsSymbol() *SymbolData { return v.sym }

// Heap returns the backing *HeapObject of a HeapRef value, or nil.
func (v Value) Heap() *HeapObject {
	if v.typ != TypeHeapRef {
		return nil
	}
	return v.ref
}

// Truthy implements JS ToBoolean for the variants the core needs.
func (v Value) Truthy() bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.i32 != 0
	case TypeSmallInt:
		return v.i32 != 0
	case TypeDouble:
		return v.f64 != 0 && !math.IsNaN(v.f64)
	case TypeString:
		return v.str != ""
	case TypeBigInt:
		return v.big.Sign() != 0
	default:
		return true
	}
}

// TypeOf implements the JS `typeof` operator's string results for the
// variants the core models directly (function distinguishes HeapRef
// kinds Function/Closure).
func (v Value) TypeOf() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "object" // the classic JS misnomer, kept faithfully
	case TypeBoolean:
		return "boolean"
	case TypeSmallInt, TypeDouble:
		return "number"
	case TypeString:
		return "string"
	case TypeBigInt:
		return "bigint"
	case TypeSymbol:
		return "symbol"
	case TypeHeapRef:
		if v.IsCallable() {
			return "function"
		}
		return "object"
	default:
		return "undefined"
	}
}

func (v Value) Inspect() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return fmt.Sprintf("%t", v.AsBoolean())
	case TypeSmallInt:
		return fmt.Sprintf("%d", v.i32)
	case TypeDouble:
		return formatDouble(v.f64)
	case TypeString:
		return v.str
	case TypeBigInt:
		return v.big.String() + "n"
	case TypeSymbol:
		return fmt.Sprintf("Symbol(%s)", v.sym.Description)
	case TypeHeapRef:
		return v.ref.Inspect()
	default:
		return "<invalid value>"
	}
}

func formatDouble(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return fmt.Sprintf("%g", f)
}

// StrictEquals implements `===` (spec.md §3.1: cross-variant strict
// equality is false except between the two Number variants).
func StrictEquals(a, b Value) bool {
	if a.typ != b.typ {
		if a.IsNumber() && b.IsNumber() {
			return a.AsFloat() == b.AsFloat()
		}
		return false
	}
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return a.i32 == b.i32
	case TypeSmallInt:
		return a.i32 == b.i32
	case TypeDouble:
		return a.f64 == b.f64
	case TypeString:
		return a.str == b.str
	case TypeBigInt:
		return a.big.Cmp(b.big) == 0
	case TypeSymbol:
		return a.sym == b.sym
	case TypeHeapRef:
		return a.ref == b.ref
	default:
		return false
	}
}

// SameValueZero implements the Map/Set key-equality predicate named in
// spec.md §3.1: like StrictEquals, but NaN equals NaN and -0 equals
// +0 (i.e. it does NOT distinguish signed zero, unlike SameValue).
func SameValueZero(a, b Value) bool {
	if a.typ == TypeDouble && b.typ == TypeDouble {
		if math.IsNaN(a.f64) && math.IsNaN(b.f64) {
			return true
		}
		return a.f64 == b.f64
	}
	return StrictEquals(a, b)
}

// SameValue implements `Object.is` semantics named in spec.md §3.1:
// like SameValueZero but -0 and +0 are distinct.
func SameValue(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.AsFloat(), b.AsFloat()
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		if x == 0 && y == 0 {
			return math.Signbit(x) == math.Signbit(y)
		}
		return x == y
	}
	return StrictEquals(a, b)
}
