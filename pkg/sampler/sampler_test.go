package sampler

import (
	"strings"
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/rng"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

func starGraph(t *testing.T) *graph.Store {
	t.Helper()
	loadPool := mempool.New(types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1})
	// vertex 0 has degree 4 (a hub); 1..4 have degree 0.
	text := "0 1\n0 2\n0 3\n0 4\n"
	s := &graph.Store{}
	if err := s.Load(graph.NewTextReader(strings.NewReader(text)), false, loadPool); err != nil {
		t.Fatal(err)
	}
	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 3, PartitionNum: 1, SamplerClasses: []types.SamplerClass{types.ClassDirect}},
	}}
	if err := s.Make(hint, 1, 1, loadPool); err != nil {
		t.Fatal(err)
	}
	return s
}

func hubID(t *testing.T, s *graph.Store) types.VertexID {
	t.Helper()
	for v := types.VertexID(0); v < s.V; v++ {
		if s.Degree(v) == 4 {
			return v
		}
	}
	t.Fatal("hub not found")
	return 0
}

func TestDirectSampleStaysWithinNeighbors(t *testing.T) {
	s := starGraph(t)
	hub := hubID(t, s)
	d := NewDirect(s, 0, 0, s.V)
	r := rng.New(1)
	nbrs := s.Neighbors(hub, 0)
	want := map[types.VertexID]bool{}
	for _, n := range nbrs {
		want[n] = true
	}
	for i := 0; i < 100; i++ {
		got, err := d.Sample(hub, r)
		if err != nil {
			t.Fatal(err)
		}
		if !want[got] {
			t.Fatalf("sampled %d, not a neighbor of hub", got)
		}
	}
}

func TestDirectSampleIsolatedVertexErrors(t *testing.T) {
	s := starGraph(t)
	hub := hubID(t, s)
	var leaf types.VertexID
	for v := types.VertexID(0); v < s.V; v++ {
		if v != hub {
			leaf = v
			break
		}
	}
	d := NewDirect(s, 0, 0, s.V)
	if _, err := d.Sample(leaf, rng.New(1)); err == nil {
		t.Fatal("expected ErrIsolatedVertex")
	}
}

func TestEdgeBufferLength(t *testing.T) {
	cases := []struct{ degree, want uint32 }{
		{0, 8}, {5, 8}, {8, 9}, {16, 17}, {10, 10},
	}
	for _, c := range cases {
		if got := edgeBufferLength(c.degree); got != c.want {
			t.Errorf("edgeBufferLength(%d) = %d, want %d", c.degree, got, c.want)
		}
	}
}

func TestExclusiveBufferStaysWithinNeighbors(t *testing.T) {
	s := starGraph(t)
	hub := hubID(t, s)
	pool := mempool.New(types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1})
	eb, err := InitExclusiveBuffer(s, 0, hub, hub+1, pool, mempool.Ignore())
	if err != nil {
		t.Fatal(err)
	}
	nbrs := s.Neighbors(hub, 0)
	want := map[types.VertexID]bool{}
	for _, n := range nbrs {
		want[n] = true
	}
	r := rng.New(7)
	for i := 0; i < 200; i++ {
		got, err := eb.Sample(hub, r)
		if err != nil {
			t.Fatal(err)
		}
		if !want[got] {
			t.Fatalf("sampled %d, not a neighbor of hub", got)
		}
	}
}

func TestSimilarDegreeDirectRejectsUniformDegree(t *testing.T) {
	if Valid(4, 4, 1000, 10) {
		t.Fatal("uniform-degree partitions should be rejected (UniformDegreeDirect covers them)")
	}
}

func TestSimilarDegreeDirectRejectsTooManyDistinctDegrees(t *testing.T) {
	if Valid(1, 20, 1000, 10) {
		t.Fatal("a degree spread wider than the hint table should be rejected")
	}
}
