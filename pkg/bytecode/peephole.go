package bytecode

import (
	"encoding/binary"

	"lattice/pkg/value"
)

// Optimize runs every peephole pass of spec.md §4.4 to a fixed point:
// constant folding, dead-code elimination, jump threading, and
// redundant store elimination. Each pass is idempotent and O(n) in the
// instruction count, so running them repeatedly until none of them
// reports a change terminates and never regresses an already-optimal
// chunk (spec.md §8.2).
func Optimize(c *Chunk) {
	for _, nf := range c.NestedFunctions {
		Optimize(nf)
	}
	for {
		changed := false
		changed = foldConstants(c) || changed
		changed = threadJumps(c) || changed
		changed = eliminateRedundantStores(c) || changed
		changed = eliminateDeadCode(c) || changed
		if !changed {
			return
		}
	}
}

// foldConstants collapses `LoadConstant a; LoadConstant b; Add` (and
// the other binary arithmetic ops) into a single LoadConstant of the
// computed result, when both operands are numeric literals.
func foldConstants(c *Chunk) bool {
	changed := false
	ins := c.Instructions
	for i := 0; i+2 < len(ins); {
		if OpCode(ins[i]) != OpLoadConstant {
			i += instrLen(ins, i)
			continue
		}
		idx1 := binary.LittleEndian.Uint16(ins[i+1:])
		next := i + 3
		if next >= len(ins) || OpCode(ins[next]) != OpLoadConstant {
			i += 3
			continue
		}
		idx2 := binary.LittleEndian.Uint16(ins[next+1:])
		opAt := next + 3
		if opAt >= len(ins) {
			i += 3
			continue
		}
		op := OpCode(ins[opAt])
		folded, ok := foldBinary(c, idx1, idx2, op)
		if !ok {
			i += 3
			continue
		}
		newIdx := c.AddConstant(folded)
		replacement := make([]byte, 3)
		replacement[0] = byte(OpLoadConstant)
		binary.LittleEndian.PutUint16(replacement[1:], newIdx)

		newIns := make([]byte, 0, len(ins)-(opAt+1-i)+3)
		newIns = append(newIns, ins[:i]...)
		newIns = append(newIns, replacement...)
		newIns = append(newIns, ins[opAt+1:]...)
		ins = newIns
		c.Instructions = ins
		changed = true
		// don't advance i: a freshly folded constant may fold again
		// with its new neighbor on the next outer-loop pass.
	}
	return changed
}

func foldBinary(c *Chunk, idx1, idx2 uint16, op OpCode) (value.Value, bool) {
	a := c.Constants[idx1]
	b := c.Constants[idx2]
	if !a.IsNumber() || !b.IsNumber() {
		return value.Undefined, false
	}
	x, y := a.AsFloat(), b.AsFloat()
	switch op {
	case OpAdd:
		return value.Double(x + y), true
	case OpSub:
		return value.Double(x - y), true
	case OpMul:
		return value.Double(x * y), true
	case OpDiv:
		return value.Double(x / y), true
	default:
		return value.Undefined, false
	}
}

// threadJumps rewrites an unconditional Jump whose target is itself
// another unconditional Jump to point straight at the final target,
// collapsing chains built up by earlier compiler/optimizer passes.
func threadJumps(c *Chunk) bool {
	changed := false
	ins := c.Instructions
	for i := 0; i < len(ins); {
		op := OpCode(ins[i])
		if op != OpJump {
			i += instrLen(ins, i)
			continue
		}
		operandAt := i + 1
		off := int16(binary.LittleEndian.Uint16(ins[operandAt:]))
		target := operandAt + 2 + int(off)
		if target >= 0 && target+2 < len(ins) && OpCode(ins[target]) == OpJump {
			finalOff := int16(binary.LittleEndian.Uint16(ins[target+1:]))
			finalTarget := target + 3 + int(finalOff)
			newOff := int16(finalTarget - (operandAt + 2))
			if newOff != off {
				binary.LittleEndian.PutUint16(ins[operandAt:], uint16(newOff))
				changed = true
			}
		}
		i += 3
	}
	return changed
}

// eliminateRedundantStores rewrites a StoreLocal that is immediately
// followed by a LoadLocal of the same register into Dup; StoreLocal.
// StoreLocal pops its operand, so duplicating the value before the
// store keeps it on the stack and makes the reload unnecessary.
func eliminateRedundantStores(c *Chunk) bool {
	changed := false
	ins := c.Instructions
	for i := 0; i+1 < len(ins); {
		if OpCode(ins[i]) == OpStoreLocal && i+2 < len(ins) && OpCode(ins[i+2]) == OpLoadLocal && ins[i+1] == ins[i+3] {
			newIns := make([]byte, 0, len(ins)-1)
			newIns = append(newIns, ins[:i]...)
			newIns = append(newIns, byte(OpDup), byte(OpStoreLocal), ins[i+1])
			newIns = append(newIns, ins[i+4:]...)
			ins = newIns
			c.Instructions = ins
			changed = true
			continue
		}
		i += instrLen(ins, i)
	}
	return changed
}

// eliminateDeadCode strips unreachable instructions immediately
// following an unconditional Jump or Return, up to the next branch
// target or the end of the stream. Branch targets are recomputed on
// every pass via a fresh reachability scan rather than tracked
// incrementally, keeping the pass simple and safely idempotent.
func eliminateDeadCode(c *Chunk) bool {
	ins := c.Instructions
	targets := branchTargets(ins)

	out := make([]byte, 0, len(ins))
	offsetMap := make(map[int]int, len(ins))
	dead := false
	changed := false
	for i := 0; i < len(ins); {
		if targets[i] {
			dead = false
		}
		n := instrLen(ins, i)
		if dead {
			changed = true
			i += n
			continue
		}
		offsetMap[i] = len(out)
		out = append(out, ins[i:i+n]...)
		op := OpCode(ins[i])
		if op == OpReturn || op == OpJump {
			dead = true
		}
		i += n
	}
	if !changed {
		return false
	}
	offsetMap[len(ins)] = len(out)
	rewriteBranches(out, offsetMap)
	c.Instructions = out
	return true
}

// branchTargets returns the set of instruction offsets any Jump/
// JumpIfTrue/JumpIfFalse/PushTry/PushFinally in ins can land on.
func branchTargets(ins []byte) map[int]bool {
	targets := make(map[int]bool)
	for i := 0; i < len(ins); {
		op := OpCode(ins[i])
		n := instrLen(ins, i)
		switch op {
		case OpJump, OpJumpIfTrue, OpJumpIfFalse, OpPushTry, OpPushFinally:
			off := int16(binary.LittleEndian.Uint16(ins[i+1:]))
			targets[i+3+int(off)] = true
		}
		i += n
	}
	return targets
}

// rewriteBranches adjusts every branch operand in out (already
// offset-compacted) using offsetMap, which maps old instruction
// offsets to their new position.
func rewriteBranches(out []byte, offsetMap map[int]int) {
	// Re-derive old offsets by walking `out` isn't possible (we no
	// longer know old positions); instead this pass is invoked with
	// out already containing operands computed relative to the *old*
	// stream, so translate each by looking up where its landing
	// instruction moved to. Because dead-code elimination never
	// reorders surviving instructions, a direct forward remap works by
	// re-walking in lockstep.
	inv := make(map[int]int, len(offsetMap))
	for oldOff, newOff := range offsetMap {
		inv[newOff] = oldOff
	}
	for i := 0; i < len(out); {
		op := OpCode(out[i])
		n := instrLen(out, i)
		switch op {
		case OpJump, OpJumpIfTrue, OpJumpIfFalse, OpPushTry, OpPushFinally:
			oldBase, ok := inv[i]
			if !ok {
				break
			}
			oldOff := int16(binary.LittleEndian.Uint16(out[i+1:]))
			oldTarget := oldBase + 3 + int(oldOff)
			newTarget, ok := offsetMap[oldTarget]
			if !ok {
				break
			}
			newOff := int16(newTarget - (i + 3))
			binary.LittleEndian.PutUint16(out[i+1:], uint16(newOff))
		}
		i += n
	}
}

// instrLen reports the total encoded length (tag + operands) of the
// instruction starting at ins[i], including OpCreateClosure's
// variable-length upvalue descriptor tail.
func instrLen(ins []byte, i int) int {
	op := OpCode(ins[i])
	switch op {
	case OpCreateClosure, OpCreateAsyncFunction:
		n := int(ins[i+3])
		return 1 + 2 + 1 + n*3
	default:
		w := op.OperandWidth()
		if w < 0 {
			w = 0
		}
		return 1 + w
	}
}
