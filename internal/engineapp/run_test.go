package engineapp

import (
	"strings"
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/rng"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// TestBuildSamplersOverridesStaleUniformDegreeClass exercises a partition
// the planner's benchmark bucket mislabels ClassUniformDegreeDirect even
// though its vertices don't actually share one degree (a benchmark bucket
// is keyed on averaged degree, not verified per partition). buildSamplers
// must re-derive the class live from the real min/max degree before
// trusting it, or UniformDegreeDirect.Sample indexes a neighbor slice sized
// to the wrong vertex's degree and panics.
func TestBuildSamplersOverridesStaleUniformDegreeClass(t *testing.T) {
	cfg := types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1, L2CacheSize: 1 << 20}
	pool := mempool.New(cfg)

	// degrees: 0->2, 1->1, 2->1. Not uniform.
	text := "0 1\n0 2\n1 2\n2 0\n"
	g := &graph.Store{}
	if err := g.Load(graph.NewTextReader(strings.NewReader(text)), false, pool); err != nil {
		t.Fatal(err)
	}

	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 2, PartitionNum: 1, SamplerClasses: []types.SamplerClass{types.ClassUniformDegreeDirect}},
	}}
	if err := g.Make(hint, cfg.SocketNum, cfg.ThreadNum, pool); err != nil {
		t.Fatal(err)
	}

	samplers, err := buildSamplers(g, pool, cfg.L2CacheSize)
	if err != nil {
		t.Fatal(err)
	}
	if len(samplers) != 1 {
		t.Fatalf("got %d samplers, want 1", len(samplers))
	}
	if cls := samplers[0].Class(); cls == types.ClassUniformDegreeDirect {
		t.Fatalf("buildSamplers trusted the stale UniformDegreeDirect class for a non-uniform-degree partition")
	}

	r := rng.New(1)
	for v := types.VertexID(0); v < g.V; v++ {
		for i := 0; i < 50; i++ {
			if _, err := samplers[0].Sample(v, r); err != nil {
				t.Fatalf("Sample(%d) = %v, want no error (every vertex has degree > 0)", v, err)
			}
		}
	}
}
