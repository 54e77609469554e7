package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders chunk (and, recursively, every nested function)
// as human-readable text, the way `cmd/lattice-dump` prints bytecode
// for debugging (SPEC_FULL.md §12 supplemented feature).
func Disassemble(c *Chunk) string {
	var b strings.Builder
	disassemble(&b, c, 0)
	return b.String()
}

func disassemble(b *strings.Builder, c *Chunk, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s== %s (registers=%d, params=%d) ==\n", indent, chunkLabel(c), c.RegisterCount, c.ParamCount)

	ins := c.Instructions
	for i := 0; i < len(ins); {
		op := OpCode(ins[i])
		fmt.Fprintf(b, "%s%04d  %-16s", indent, i, op.String())
		switch op {
		case OpLoadConstant:
			idx := binary.LittleEndian.Uint16(ins[i+1:])
			fmt.Fprintf(b, " %d ; %s", idx, constantRepr(c, idx))
		case OpLoadGlobal, OpStoreGlobal, OpLoadProperty, OpStoreProperty:
			idx := binary.LittleEndian.Uint16(ins[i+1:])
			fmt.Fprintf(b, " %d ; %s", idx, constantRepr(c, idx))
		case OpLoadLocal, OpStoreLocal:
			fmt.Fprintf(b, " r%d", ins[i+1])
		case OpCreateArray, OpLoadUpvalue, OpStoreUpvalue:
			idx := binary.LittleEndian.Uint16(ins[i+1:])
			fmt.Fprintf(b, " %d", idx)
		case OpJump, OpJumpIfTrue, OpJumpIfFalse, OpPushTry, OpPushFinally:
			off := int16(binary.LittleEndian.Uint16(ins[i+1:]))
			target := i + 3 + int(off)
			fmt.Fprintf(b, " -> %04d", target)
		case OpCall, OpCallMethod, OpCallNew:
			fmt.Fprintf(b, " argc=%d", ins[i+1])
		case OpCloseUpvalue:
			fmt.Fprintf(b, " r%d", ins[i+1])
		case OpCreateClosure, OpCreateAsyncFunction:
			fi := binary.LittleEndian.Uint16(ins[i+1:])
			n := ins[i+3]
			fmt.Fprintf(b, " fn#%d upvalues=%d", fi, n)
		}
		b.WriteByte('\n')
		i += instrLen(ins, i)
	}

	for _, nf := range c.NestedFunctions {
		disassemble(b, nf, depth+1)
	}
}

func chunkLabel(c *Chunk) string {
	if c.Name == "" {
		return "<anonymous>"
	}
	return c.Name
}

func constantRepr(c *Chunk, idx uint16) string {
	if int(idx) >= len(c.Constants) {
		return "<out of range>"
	}
	return c.Constants[idx].Inspect()
}
