package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/compiler"
	"lattice/pkg/heap"
	"lattice/pkg/lexer"
	"lattice/pkg/parser"
	"lattice/pkg/value"
)

func run(t *testing.T, src string) value.Value {
	t.Helper()
	l := lexer.NewLexer(src)
	p := parser.NewParser(l)
	prog, parseErrs := p.ParseProgram()
	require.Empty(t, parseErrs, "unexpected parse errors for %q", src)

	chunk, compileErrs := compiler.CompileProgram(prog)
	require.Empty(t, compileErrs, "unexpected compile errors for %q", src)
	require.NoError(t, chunk.Validate())

	h := heap.New(heap.DefaultConfig())
	m := New(h)
	result, err := m.Execute(chunk)
	require.NoError(t, err, "unexpected error executing %q", src)
	return result
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	l := lexer.NewLexer(src)
	p := parser.NewParser(l)
	prog, parseErrs := p.ParseProgram()
	require.Empty(t, parseErrs, "unexpected parse errors for %q", src)

	chunk, compileErrs := compiler.CompileProgram(prog)
	require.Empty(t, compileErrs, "unexpected compile errors for %q", src)

	h := heap.New(heap.DefaultConfig())
	m := New(h)
	_, err := m.Execute(chunk)
	return err
}

func TestExecuteArithmeticExpressionStatement(t *testing.T) {
	v := run(t, "1 + 2 * 3;")
	require.True(t, v.IsNumber())
	assert.Equal(t, int32(7), v.AsInt32())
}

func TestExecuteArithmeticOverflowPromotesToDouble(t *testing.T) {
	v := run(t, "2147483647 + 1;")
	require.True(t, v.IsDouble())
	assert.Equal(t, float64(2147483648), v.AsFloat())
}

func TestExecuteStringConcatenation(t *testing.T) {
	v := run(t, `"a" + "b" + 1;`)
	require.True(t, v.IsString())
	assert.Equal(t, "ab1", v.AsString())
}

func TestExecuteLetAndWhileLoop(t *testing.T) {
	v := run(t, `
		let i = 0;
		let sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		sum;
	`)
	assert.Equal(t, int32(10), v.AsInt32())
}

func TestExecuteIfElseBranching(t *testing.T) {
	v := run(t, `let x = 3; if (x > 1) { x = 10; } else { x = 20; } x;`)
	assert.Equal(t, int32(10), v.AsInt32())
}

func TestExecuteFunctionCallAndReturn(t *testing.T) {
	v := run(t, `
		function add(a, b) { return a + b; }
		add(2, 3);
	`)
	assert.Equal(t, int32(5), v.AsInt32())
}

func TestExecuteClosureCapturesSharedMutableCell(t *testing.T) {
	v := run(t, `
		function makeCounter() {
			let count = 0;
			return function() {
				count = count + 1;
				return count;
			};
		}
		let counter = makeCounter();
		counter();
		counter();
		counter();
	`)
	assert.Equal(t, int32(3), v.AsInt32())
}

func TestExecuteArrowFunctionDoesNotRebindThis(t *testing.T) {
	v := run(t, `
		function Widget() {
			this.value = 41;
			this.get = () => this.value + 1;
		}
		let w = new Widget();
		w.get();
	`)
	assert.Equal(t, int32(42), v.AsInt32())
}

func TestExecuteMethodCallBindsThis(t *testing.T) {
	v := run(t, `
		let obj = { value: 10, get: function() { return this.value; } };
		obj.get();
	`)
	assert.Equal(t, int32(10), v.AsInt32())
}

func TestExecuteConstructorNewBindsInstanceAsThis(t *testing.T) {
	v := run(t, `
		function Point(x, y) {
			this.x = x;
			this.y = y;
		}
		let p = new Point(1, 2);
		p.x + p.y;
	`)
	assert.Equal(t, int32(3), v.AsInt32())
}

func TestExecuteArrayLiteralAndIndexing(t *testing.T) {
	v := run(t, `let arr = [1, 2, 3]; arr[1];`)
	assert.Equal(t, int32(2), v.AsInt32())
}

func TestExecuteArrayLengthProperty(t *testing.T) {
	v := run(t, `let arr = [1, 2, 3]; arr.length;`)
	assert.Equal(t, int32(3), v.AsInt32())
}

func TestExecuteForOfOverArray(t *testing.T) {
	v := run(t, `
		let arr = [1, 2, 3];
		let sum = 0;
		for (let x of arr) {
			sum = sum + x;
		}
		sum;
	`)
	assert.Equal(t, int32(6), v.AsInt32())
}

func TestExecuteTryCatchHandlesThrow(t *testing.T) {
	v := run(t, `
		let result = 0;
		try {
			throw "boom";
		} catch (e) {
			result = 1;
		}
		result;
	`)
	assert.Equal(t, int32(1), v.AsInt32())
}

func TestExecuteTryFinallyRunsOnNormalPath(t *testing.T) {
	v := run(t, `
		let log = "";
		try {
			log = log + "t";
		} finally {
			log = log + "f";
		}
		log;
	`)
	assert.Equal(t, "tf", v.AsString())
}

func TestExecuteTryCatchFinallyAllRunOnThrow(t *testing.T) {
	v := run(t, `
		let log = "";
		try {
			log = log + "t";
			throw "x";
		} catch (e) {
			log = log + "c";
		} finally {
			log = log + "f";
		}
		log;
	`)
	assert.Equal(t, "tcf", v.AsString())
}

func TestExecuteUncaughtThrowPropagatesAsThrownError(t *testing.T) {
	err := runErr(t, `throw "unhandled";`)
	require.Error(t, err)
	te, ok := err.(*ThrownError)
	require.True(t, ok)
	assert.Equal(t, "unhandled", te.Value.AsString())
}

func TestExecuteReferenceErrorOnUndefinedGlobal(t *testing.T) {
	err := runErr(t, `doesNotExist;`)
	require.Error(t, err)
	je := ToJsError(err)
	assert.Equal(t, "ReferenceError", string(je.Kind))
}

func TestExecuteTypeErrorCallingNonFunction(t *testing.T) {
	err := runErr(t, `let x = 1; x();`)
	require.Error(t, err)
	je := ToJsError(err)
	assert.Equal(t, "TypeError", string(je.Kind))
}

func TestExecuteStackOverflowRaisesCatchableRangeError(t *testing.T) {
	v := run(t, `
		let depth = 0;
		function recurse() {
			depth = depth + 1;
			return recurse();
		}
		let result = "";
		try {
			recurse();
		} catch (e) {
			result = "caught";
		}
		result;
	`)
	assert.Equal(t, "caught", v.AsString())
}

func TestExecuteComparisonAndEquality(t *testing.T) {
	v := run(t, `(1 < 2) && (2 <= 2) && (3 == "3") && !(3 === "3");`)
	assert.True(t, v.Truthy())
}

func TestExecuteTypeOfOperator(t *testing.T) {
	v := run(t, `typeof 1;`)
	assert.Equal(t, "number", v.AsString())
}

func TestStringLengthUsesUTF16CodeUnits(t *testing.T) {
	// U+1F600 is an astral code point encoded as a UTF-16 surrogate
	// pair, so it counts as length 2 even though it's one code point.
	v := run(t, `"a\u{1F600}b".length;`)
	assert.Equal(t, int32(4), v.AsInt32())
}

func TestStringCharAtAndCodePointAt(t *testing.T) {
	v := run(t, `"hello".charAt(1);`)
	assert.Equal(t, "e", v.AsString())

	v = run(t, `"A".codePointAt(0);`)
	assert.Equal(t, int32(65), v.AsInt32())
}

func TestStringNormalize(t *testing.T) {
	// "cafe\u0301" is "cafe" plus a combining acute accent (5 code
	// units); NFC composes the last two into a single precomposed
	// character (4 code units).
	v := run(t, `"cafe\u0301".normalize("NFC").length;`)
	assert.Equal(t, int32(4), v.AsInt32())
}

func TestStringNormalizeRejectsUnknownForm(t *testing.T) {
	err := runErr(t, `"x".normalize("bogus");`)
	je := ToJsError(err)
	assert.Equal(t, "RangeError", string(je.Kind))
}
