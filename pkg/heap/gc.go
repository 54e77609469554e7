package heap

import "lattice/pkg/value"

// RootSource lets the collector enumerate every live register file,
// operand stack, and global slot without pkg/heap needing to import
// pkg/vm (which would create an import cycle, since the interpreter
// already imports pkg/heap). The interpreter implements this single
// method over its live call-stack and global table (spec.md §4.7
// root list: "execution context registers, operand stacks of every
// live frame, globals").
type RootSource interface {
	// Roots appends every currently-live value.Value the GC must
	// treat as reachable to dst and returns the extended slice.
	Roots(dst []value.Value) []value.Value
}

// WriteBarrier is spec.md §4.8's mandatory barrier: every reference
// write into a heap object must call this so the old→young invariant
// holds before the next minor GC. `container` is the object being
// written into; `written` is the value stored into one of its slots.
// This is not a stub (spec.md §9 flags the teacher's own version as
// one) — pkg/value's object, array, map and set mutators reach it on
// every property/element/entry write through the hook New installs
// with value.SetBarrier. Upvalue cell writes (UpvalueCell.Set) do not
// go through it.
func (h *Heap) WriteBarrier(container *value.HeapObject, written value.Value) {
	if container == nil || container.Gen != value.GenOld {
		return
	}
	ref := written.Heap()
	if ref == nil {
		return
	}
	// Old→old writes still dirty the card: the card table is a
	// conservative approximation (spec.md §4.8), cheaper than
	// distinguishing old→young from old→old at every write.
	h.rememberSet[container] = true
	card, ok := h.oldCards[container]
	if !ok {
		card = h.nextCard
		h.nextCard++
		h.oldCards[container] = card
	}
	h.dirtyCards[card] = true
}

// MinorGC runs a young-generation collection (spec.md §4.7). Roots
// are gathered from `src` plus the remembered set and dirty-card scan
// (old-generation objects that may reference young objects).
func (h *Heap) MinorGC(src RootSource) {
	h.stats.YoungCollections++

	live := make(map[*value.HeapObject]bool, len(h.young))
	var stack []*value.HeapObject

	mark := func(v value.Value) {
		obj := v.Heap()
		if obj == nil || obj.Gen != value.GenYoung || live[obj] {
			return
		}
		live[obj] = true
		stack = append(stack, obj)
	}

	var roots []value.Value
	roots = src.Roots(roots)
	for _, r := range roots {
		mark(r)
	}
	// Dirty cards stand in for old-generation objects that may hold
	// old→young references; scan every remembered-set member (the
	// cards they dirtied were already folded in at barrier time, so
	// walking the remembered set is sufficient and cheaper than a
	// full old-gen card sweep).
	for obj := range h.rememberSet {
		obj.WalkReferences(mark)
	}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj.WalkReferences(mark)
	}

	newYoung := h.young[:0]
	newYoungBytes := 0
	for _, obj := range h.young {
		if !live[obj] {
			continue // unreachable: drop our reference, Go reclaims it
		}
		obj.Age++
		if obj.Age >= h.cfg.PromotionAge {
			obj.Gen = value.GenOld
			h.old = append(h.old, obj)
			h.oldBytes += approxObjectBytes
			h.stats.PromotedCount++
			continue
		}
		newYoung = append(newYoung, obj)
		newYoungBytes += approxObjectBytes
	}
	h.young = newYoung
	h.youngBytes = newYoungBytes

	// Per spec.md §4.8: "after scanning, clear the card-table and
	// remembered-set" — both are rebuilt from subsequent barrier calls.
	h.dirtyCards = make(map[int]bool)
	h.rememberSet = make(map[*value.HeapObject]bool)
}

// MajorGC runs an old-generation mark-sweep collection (spec.md §4.7).
// Roots exclude the remembered set (it exists to help young
// collections find old→young edges; it says nothing about old→old
// reachability, so it cannot help the old generation trace itself).
func (h *Heap) MajorGC(src RootSource) {
	h.stats.OldCollections++

	for _, obj := range h.old {
		obj.Marked = false
	}
	for _, obj := range h.young {
		obj.Marked = false
	}

	var stack []*value.HeapObject
	mark := func(v value.Value) {
		obj := v.Heap()
		if obj == nil || obj.Marked {
			return
		}
		obj.Marked = true
		stack = append(stack, obj)
	}

	var roots []value.Value
	roots = src.Roots(roots)
	for _, r := range roots {
		mark(r)
	}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		obj.WalkReferences(mark)
	}

	newOld := h.old[:0]
	newOldBytes := 0
	for _, obj := range h.old {
		if !obj.Marked {
			delete(h.oldCards, obj)
			continue // white: sweep. Fragmentation is tolerated (spec.md §4.7).
		}
		newOld = append(newOld, obj)
		newOldBytes += approxObjectBytes
	}
	h.old = newOld
	h.oldBytes = newOldBytes

	// Young objects reachable only via roots (not yet collected by a
	// minor GC) are left exactly as they are; a major GC never
	// promotes or evacuates the young generation, it only sweeps old.
}
