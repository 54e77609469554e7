package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCallPromotesAtDocumentedThresholds(t *testing.T) {
	j := New(Config{BaselineThreshold: 5, OptimizingThreshold: 10})

	for i := 1; i < 5; i++ {
		assert.Equal(t, NoPromotion, j.RecordCall(1, i), "call %d", i)
	}
	assert.Equal(t, PromoteToBaseline, j.RecordCall(1, 5))
	j.CompileBaseline(1)
	assert.Equal(t, TierBaseline, j.TierOf(1))

	for i := 6; i < 10; i++ {
		assert.Equal(t, NoPromotion, j.RecordCall(1, i), "call %d", i)
	}
	assert.Equal(t, PromoteToOptimized, j.RecordCall(1, 10))
	j.CompileOptimized(1)
	assert.Equal(t, TierOptimized, j.TierOf(1))
}

func TestObserveTypeMonomorphicSiteCrossesNinetyPercentBar(t *testing.T) {
	j := New(DefaultConfig())
	for i := 0; i < 9; i++ {
		j.ObserveType(1, 42, "number")
	}
	j.ObserveType(1, 42, "string")

	typ, ok := j.MonomorphicType(1, 42)
	require := assert.New(t)
	require.True(ok)
	require.Equal("number", typ)
}

func TestObserveTypePolymorphicSiteStaysUnspecialized(t *testing.T) {
	j := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		j.ObserveType(1, 7, "number")
		j.ObserveType(1, 7, "string")
	}
	_, ok := j.MonomorphicType(1, 7)
	assert.False(t, ok)
}

func TestDeoptimizeFallsBackToBaselineKeepingCounters(t *testing.T) {
	j := New(DefaultConfig())
	j.CompileOptimized(1)
	assert.Equal(t, TierOptimized, j.TierOf(1))

	j.Deoptimize(1, 3)
	assert.Equal(t, TierBaseline, j.TierOf(1))
}

func TestDeoptimizeBlacklistsSiteAfterRepeatedFailures(t *testing.T) {
	j := New(DefaultConfig())
	for i := 0; i < 9; i++ {
		j.ObserveType(1, 3, "number")
	}

	typ, ok := j.MonomorphicType(1, 3)
	assert.True(t, ok)
	assert.Equal(t, "number", typ)

	j.Deoptimize(1, 3)
	j.Deoptimize(1, 3)
	j.Deoptimize(1, 3)

	_, ok = j.MonomorphicType(1, 3)
	assert.False(t, ok, "site should be blacklisted after repeated deopts")
}

func TestMonomorphicSitesReportsOnlyQualifyingSites(t *testing.T) {
	j := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		j.ObserveType(1, 1, "number")
	}
	for i := 0; i < 5; i++ {
		j.ObserveType(1, 2, "number")
		j.ObserveType(1, 2, "string")
	}

	sites := j.MonomorphicSites(1)
	assert.Equal(t, map[int]string{1: "number"}, sites)
}
