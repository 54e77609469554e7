// Package heap implements the generational collector of spec.md §3.7,
// §4.7 and §4.8: a young generation collected by tracing from the roots
// and the remembered set (survivors stay in the young list and age in
// place; objects are not copied between semi-spaces), an
// old-generation mark-sweep collector, and the write-barrier/
// remembered-set/card-table machinery that keeps the old→young
// invariant between them.
//
// Every heap-allocated value.HeapObject is created through this
// package's New* wrappers (never through pkg/value's constructors
// directly) so that allocation, generation membership, and the bump-
// allocation byte budget stay in one place, exactly as the spec's
// diagram puts the heap behind the interpreter rather than beside it.
package heap

import (
	"lattice/pkg/value"
)

// approxObjectBytes is the flat per-object size this simulation
// charges against the young/old byte budgets and card-table math.
// A real engine's objects vary in size; this core has no physical
// memory layout to measure (Go owns the actual allocation), so a
// constant stand-in is used uniformly. Reachability, promotion and the
// barriers do not depend on it; only the byte counters do.
const approxObjectBytes = 64

// Config tunes the thresholds spec.md calls "configurable".
type Config struct {
	YoungSpaceBytes int // triggers a minor GC when exceeded
	PromotionAge    int // minor GCs survived before tenuring into old gen
	OldGenBytes     int // triggers a major GC when old-gen bytes exceed this
	CardSize        int // bytes per card-table entry, default 512 (spec.md §3.7)
}

func DefaultConfig() Config {
	return Config{
		YoungSpaceBytes: 1 << 20, // 1MiB
		PromotionAge:    3,
		OldGenBytes:     8 << 20, // 8MiB
		CardSize:        512,
	}
}

// Stats answers the gc_stats() embedder API of spec.md §6.3.
type Stats struct {
	YoungCount       int
	OldCount         int
	BytesUsed        int
	YoungCollections int
	OldCollections   int
	PromotedCount    int
	LastPauseNanos   int64
}

// Heap owns both generations plus the card table / remembered set
// that bridges them.
type Heap struct {
	cfg Config

	young      []*value.HeapObject // live young objects (the "from-space" list)
	youngBytes int

	old      []*value.HeapObject // live old objects
	oldCards map[*value.HeapObject]int // old object -> assigned card index
	nextCard int
	oldBytes int

	dirtyCards  map[int]bool
	rememberSet map[*value.HeapObject]bool

	stats Stats
}

func New(cfg Config) *Heap {
	h := &Heap{
		cfg:         cfg,
		oldCards:    make(map[*value.HeapObject]int),
		dirtyCards:  make(map[int]bool),
		rememberSet: make(map[*value.HeapObject]bool),
	}
	// Install this heap as pkg/value's active write barrier (spec.md
	// §4.8) so SetOwn/SetSymbol/Set/Push/Add etc. actually dirty the
	// card table instead of WriteBarrier being reachable only from
	// this package's own tests.
	value.SetBarrier(h)
	return h
}

func (h *Heap) track(obj *value.HeapObject) value.Value {
	obj.Gen = value.GenYoung
	h.young = append(h.young, obj)
	h.youngBytes += approxObjectBytes
	return value.HeapRef(obj)
}

// --- Allocation surface (wraps pkg/value's constructors) ---

func (h *Heap) NewObject(prototype value.Value) value.Value {
	v := value.NewObject(prototype)
	h.track(v.Heap())
	return v
}

func (h *Heap) NewArray(prototype value.Value) value.Value {
	v := value.NewArray(prototype)
	h.track(v.Heap())
	return v
}

func (h *Heap) NewArrayFrom(prototype value.Value, elems []value.Value) value.Value {
	v := value.NewArrayFrom(prototype, elems)
	h.track(v.Heap())
	return v
}

func (h *Heap) NewClosure(functionID int, name string, upvalues []*value.UpvalueCell) value.Value {
	v := value.NewClosure(functionID, name, upvalues)
	h.track(v.Heap())
	return v
}

func (h *Heap) NewError(prototype value.Value, name, message string) value.Value {
	v := value.NewError(prototype, name, message)
	h.track(v.Heap())
	return v
}

func (h *Heap) NewRegExp(source, flags string) (value.Value, error) {
	v, err := value.NewRegExp(source, flags)
	if err != nil {
		return value.Undefined, err
	}
	h.track(v.Heap())
	return v, nil
}

func (h *Heap) NewMap() value.Value {
	v := value.NewMap()
	h.track(v.Heap())
	return v
}

func (h *Heap) NewSet() value.Value {
	v := value.NewSet()
	h.track(v.Heap())
	return v
}

func (h *Heap) NewWeakMap() value.Value {
	v := value.NewWeakMap()
	h.track(v.Heap())
	return v
}

func (h *Heap) NewWeakSet() value.Value {
	v := value.NewWeakSet()
	h.track(v.Heap())
	return v
}

func (h *Heap) NewNativeFunction(name string, fn value.NativeFn) value.Value {
	v := value.NewNativeFunction(name, fn)
	h.track(v.Heap())
	return v
}

// --- Budget queries the driver/interpreter consults before the next
// allocation, so a minor/major GC can run at a safe point instead of
// mid-instruction (spec.md §4.7: "triggered when a ... bump allocation
// would overflow"). ---

func (h *Heap) ShouldCollectMinor() bool { return h.youngBytes >= h.cfg.YoungSpaceBytes }
func (h *Heap) ShouldCollectMajor() bool { return h.oldBytes >= h.cfg.OldGenBytes }

func (h *Heap) Stats() Stats {
	s := h.stats
	s.YoungCount = len(h.young)
	s.OldCount = len(h.old)
	s.BytesUsed = h.youngBytes + h.oldBytes
	return s
}
