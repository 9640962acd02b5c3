package graph

import (
	"strings"
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

func triangleStore(t *testing.T) *Store {
	t.Helper()
	pool := mempool.New(types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1})
	text := "0 1\n1 2\n2 0\n0 2\n"
	s := &Store{}
	if err := s.Load(NewTextReader(strings.NewReader(text)), false, pool); err != nil {
		t.Fatal(err)
	}
	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 2, PartitionNum: 1, SamplerClasses: []types.SamplerClass{types.ClassDirect}},
	}}
	if err := s.Make(hint, 1, 1, pool); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadCompactsAndCountsDegree(t *testing.T) {
	s := triangleStore(t)
	if s.V != 3 {
		t.Fatalf("V = %d, want 3", s.V)
	}
	if s.E != 4 {
		t.Fatalf("E = %d, want 4", s.E)
	}
	var total uint32
	for v := types.VertexID(0); v < s.V; v++ {
		total += s.Degree(v)
	}
	if total != 4 {
		t.Fatalf("sum of degrees = %d, want 4", total)
	}
}

func TestDegreeSortedNonIncreasing(t *testing.T) {
	s := triangleStore(t)
	for v := types.VertexID(1); v < s.V; v++ {
		if s.Degree(v) > s.Degree(v-1) {
			t.Fatalf("degree not sorted: degree(%d)=%d > degree(%d)=%d", v, s.Degree(v), v-1, s.Degree(v-1))
		}
	}
}

func TestVertexPartitionCoversAllVertices(t *testing.T) {
	s := triangleStore(t)
	for v := types.VertexID(0); v < s.V; v++ {
		p := s.VertexPartition(v)
		if int(p) >= len(s.Layout.PartitionBegin) {
			t.Fatalf("vertex %d mapped to out-of-range partition %d", v, p)
		}
		if v < s.Layout.PartitionBegin[p] || v >= s.Layout.PartitionEnd[p] {
			t.Fatalf("vertex %d not within its own partition %d's range [%d,%d)", v, p, s.Layout.PartitionBegin[p], s.Layout.PartitionEnd[p])
		}
	}
}

func TestVertexPartitionMatchesGroupOffsetsAcrossMultipleGroups(t *testing.T) {
	// Two full-size groups (each spanning 1<<GroupBits=8 vertices) with
	// different partition widths, so the O(1) lookup's group index and
	// per-group partition offset both have to be exercised together.
	hint := partitioner.GraphHint{
		GroupBits: 3,
		Groups: []partitioner.GroupHint{
			{PartitionBits: 2, PartitionNum: 2, SamplerClasses: make([]types.SamplerClass, 2)},
			{PartitionBits: 1, PartitionNum: 4, SamplerClasses: make([]types.SamplerClass, 4)},
		},
	}
	s := &Store{V: 16}
	s.Layout = partitioner.Apply(16, hint, 1, 1)

	for v := types.VertexID(0); v < s.V; v++ {
		p := s.VertexPartition(v)
		if int(p) >= len(s.Layout.PartitionBegin) {
			t.Fatalf("vertex %d mapped to out-of-range partition %d", v, p)
		}
		if v < s.Layout.PartitionBegin[p] || v >= s.Layout.PartitionEnd[p] {
			t.Fatalf("vertex %d not within its own partition %d's range [%d,%d)", v, p, s.Layout.PartitionBegin[p], s.Layout.PartitionEnd[p])
		}
	}
}

func TestHasNeighborAfterPrepare(t *testing.T) {
	s := triangleStore(t)
	s.PrepareNeighborQuery()

	for srcName, dstName := range map[int]int{0: 1, 1: 2, 2: 0} {
		src := nameToID(t, s, uint32(srcName))
		dst := nameToID(t, s, uint32(dstName))
		if !s.HasNeighbor(src, dst, 0) {
			t.Errorf("expected edge %d->%d to be found", srcName, dstName)
		}
	}
	missingSrc := nameToID(t, s, 2)
	missingDst := nameToID(t, s, 1)
	if s.HasNeighbor(missingSrc, missingDst, 0) {
		t.Errorf("did not expect edge 2->1 to be found")
	}
}

func nameToID(t *testing.T, s *Store, name uint32) types.VertexID {
	t.Helper()
	for id, n := range s.IDToName {
		if n == name {
			return types.VertexID(id)
		}
	}
	t.Fatalf("name %d not found", name)
	return 0
}
