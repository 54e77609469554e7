package bytecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lattice/pkg/value"
)

func TestDisassembleIncludesNestedFunctions(t *testing.T) {
	c := buildSampleChunk()
	out := Disassemble(c)

	assert.Contains(t, out, "main")
	assert.Contains(t, out, "inner")
	assert.Contains(t, out, "LoadConstant")
	assert.Contains(t, out, "CreateClosure")
}

func TestDisassembleShowsConstantValues(t *testing.T) {
	c := NewChunk("main")
	c.AddConstant(value.String("hi"))
	c.Emit(OpLoadConstant, nil)
	c.EmitUint16(0)
	c.Emit(OpReturn, nil)

	out := Disassemble(c)
	assert.True(t, strings.Contains(out, "hi"))
}
