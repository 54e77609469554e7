package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lattice/pkg/jit"
	"lattice/pkg/source"
	"lattice/pkg/value"
)

func exec(t *testing.T, r *Runtime, src string) value.Value {
	t.Helper()
	v, jsErr := r.RunSource(source.NewEvalSource(src))
	require.Nil(t, jsErr, "unexpected JsError running %q: %+v", src, jsErr)
	return v
}

func TestRunSourceEvaluatesExpression(t *testing.T) {
	r := New(DefaultConfig())
	v := exec(t, r, "1 + 2;")
	assert.Equal(t, int32(3), v.AsInt32())
}

func TestRunSourcePersistsGlobalsAcrossCalls(t *testing.T) {
	r := New(DefaultConfig())
	exec(t, r, "let counter = 0;")
	v := exec(t, r, "counter = counter + 1; counter;")
	assert.Equal(t, int32(1), v.AsInt32())
	v = exec(t, r, "counter = counter + 1; counter;")
	assert.Equal(t, int32(2), v.AsInt32())
}

func TestRunSourceSyntaxErrorReportsJsError(t *testing.T) {
	_, jsErr := New(DefaultConfig()).RunSource(source.NewEvalSource("let let let;"))
	require.NotNil(t, jsErr)
}

func TestSetGlobalIsVisibleToScript(t *testing.T) {
	r := New(DefaultConfig())
	r.SetGlobal("answer", value.Int(42))
	v := exec(t, r, "answer;")
	assert.Equal(t, int32(42), v.AsInt32())
}

func TestRecordCallPromotesFunctionThroughTiersOnRepeatedCalls(t *testing.T) {
	r := New(Config{Heap: DefaultConfig().Heap, JIT: jit.Config{BaselineThreshold: 2, OptimizingThreshold: 4}})
	exec(t, r, `
		function f(x) { return x; }
		f(1); f(1); f(1); f(1);
	`)
	// four calls against thresholds 2/4: by call 4 the function should
	// have been promoted at least to Baseline.
	found := false
	for id := 0; id < 8; id++ {
		if r.Tier(id) != jit.TierUncompiled {
			found = true
		}
	}
	assert.True(t, found, "expected at least one function to have been promoted past Uncompiled")
}

func TestQueueMicrotaskRunsDuringDrain(t *testing.T) {
	r := New(DefaultConfig())
	v := exec(t, r, `
		let ran = false;
		queueMicrotask(function() { ran = true; });
		ran;
	`)
	// ran is false synchronously...
	assert.False(t, v.Truthy())

	// ...but becomes true once the microtask queue drains, which
	// RunSource already does at the end of Execute; a second
	// evaluation observes the effect.
	v = exec(t, r, "ran;")
	assert.True(t, v.Truthy())
}

func TestGCStatsReportsAllocatedObjects(t *testing.T) {
	r := New(DefaultConfig())
	exec(t, r, `let obj = { a: 1, b: 2 };`)
	stats := r.GCStats()
	assert.GreaterOrEqual(t, stats.YoungCount+stats.OldCount, 1)
}
