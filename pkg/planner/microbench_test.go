package planner

import (
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

func TestTestDegreesStartsAtOneAndGrowsGeometrically(t *testing.T) {
	degs := testDegrees(20)
	if degs[0] != 1 {
		t.Fatalf("first degree = %d, want 1", degs[0])
	}
	for i := 1; i < len(degs); i++ {
		if degs[i] <= degs[i-1] {
			t.Fatalf("degrees not strictly increasing at %d: %v", i, degs)
		}
	}
	if degs[len(degs)-1] > 20 {
		t.Fatalf("last degree %d exceeds max 20", degs[len(degs)-1])
	}
}

func TestRunMicroBenchmarkFillsCacheAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	cache := NewBenchmarkCache(dir, 2.0, 1, 4)
	if err := cache.Load(); err != nil {
		t.Fatal(err)
	}

	pool := mempool.New(types.MultiThreadConfig{ThreadNum: 4, SocketNum: 1})
	params := BenchmarkParams{
		WalkerPerEdge:          2.0,
		MaxDegree:              8,
		MinPartitionVertexBits: 4,
		MaxPartitionVertexBits: 6,
	}
	if err := RunMicroBenchmark(cache, params, pool); err != nil {
		t.Fatal(err)
	}
	if !cache.HasItem(4, 1, types.ClassUniformDegreeDirect) {
		t.Fatal("expected a UniformDegreeDirect benchmark row for degree 1")
	}

	reloaded := NewBenchmarkCache(dir, 2.0, 1, 4)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if !reloaded.HasItem(4, 1, types.ClassUniformDegreeDirect) {
		t.Fatal("benchmark results did not persist to disk")
	}
}
