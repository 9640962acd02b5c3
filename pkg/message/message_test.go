package message

import (
	"strings"
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

func smallStore(t *testing.T) *graph.Store {
	t.Helper()
	pool := mempool.New(types.MultiThreadConfig{ThreadNum: 2, SocketNum: 1})
	text := "0 1\n1 2\n2 3\n3 0\n"
	s := &graph.Store{}
	if err := s.Load(graph.NewTextReader(strings.NewReader(text)), false, pool); err != nil {
		t.Fatal(err)
	}
	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 1, PartitionNum: 2, SamplerClasses: make([]types.SamplerClass, 2)},
	}}
	if err := s.Make(hint, 1, 2, pool); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestShuffleThenUpdateRoundTrips(t *testing.T) {
	s := smallStore(t)
	cfg := types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1}
	pool := mempool.New(cfg)

	origin := make([]types.VertexID, s.V)
	for i := range origin {
		origin[i] = types.VertexID(i)
	}

	task, err := NewTask(s, pool, 0, types.WalkerID(s.V), int(len(s.Layout.PartitionBegin)), false)
	if err != nil {
		t.Fatal(err)
	}
	task.Prepare(origin)
	task.Shuffle(origin, nil)

	target := make([]types.VertexID, s.V)
	task.Update(target)

	for i := range origin {
		if target[i] != origin[i] {
			t.Fatalf("walker %d: got %d after shuffle+update, want %d", i, target[i], origin[i])
		}
	}
}

func TestBucketsPartitionAllWalkers(t *testing.T) {
	s := smallStore(t)
	cfg := types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1}
	pool := mempool.New(cfg)

	origin := make([]types.VertexID, s.V)
	for i := range origin {
		origin[i] = types.VertexID(i)
	}
	partitionNum := len(s.Layout.PartitionBegin)
	task, err := NewTask(s, pool, 0, types.WalkerID(s.V), partitionNum, false)
	if err != nil {
		t.Fatal(err)
	}
	task.Prepare(origin)
	task.Shuffle(origin, nil)

	total := 0
	for p := 0; p < partitionNum; p++ {
		total += len(task.Bucket(types.PartitionID(p)))
	}
	if total != int(s.V) {
		t.Fatalf("buckets hold %d walkers total, want %d", total, s.V)
	}
}
