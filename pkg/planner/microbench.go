package planner

import (
	"time"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/rng"
	"github.com/flashmobwalk/flashmob/pkg/sampler"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// BenchmarkParams bounds what RunMicroBenchmark tests, mirroring
// mini_benchmark's walker_per_edge/max_degree/partition-bit-range
// parameters.
type BenchmarkParams struct {
	WalkerPerEdge          float64
	MaxDegree              uint32
	MinPartitionVertexBits uint
	MaxPartitionVertexBits uint
}

// testDegrees returns the same geometric degree ladder mini_benchmark
// walks: 1, 2, 3, ..., then growing by 5% once that outpaces +1.
func testDegrees(maxDegree uint32) []uint32 {
	var out []uint32
	for d := uint32(1); d <= maxDegree; {
		out = append(out, d)
		next := d + 1
		if scaled := uint32(float64(d) * 1.05); scaled > next {
			next = scaled
		}
		d = next
	}
	return out
}

// syntheticUniformGraph builds an in-memory Store where every one of
// vertexNum vertices has exactly degree outgoing edges to uniformly random
// targets in [0, vertexNum), standing in for mini_benchmark's synthetic
// random adjacency data used to time each sampler class in isolation.
func syntheticUniformGraph(vertexNum types.VertexID, degree uint32, r *rng.Source) *graph.Store {
	adj := make([]graph.AdjList, vertexNum)
	units := make([]types.VertexID, uint64(vertexNum)*uint64(degree))
	for v := types.VertexID(0); v < vertexNum; v++ {
		begin := types.EdgeID(v) * types.EdgeID(degree)
		adj[v] = graph.AdjList{Degree: degree, Begin: begin}
		for i := uint32(0); i < degree; i++ {
			units[begin+types.EdgeID(i)] = types.VertexID(r.Gen(uint64(vertexNum)))
		}
	}
	return graph.NewFromAdjacency(vertexNum, adj, units)
}

// timeUniformDegreeDirect times UniformDegreeDirect.Sample against a fresh
// synthetic graph of the given shape, returning nanoseconds per sample
// averaged over enough iterations to outlast timer noise, mirroring
// mini_benchmark's per-task timing loop.
func timeUniformDegreeDirect(vertexNum types.VertexID, degree uint32, r *rng.Source) float64 {
	g := syntheticUniformGraph(vertexNum, degree, r)
	sm := sampler.NewUniformDegreeDirect(g, 0, 0, degree)
	return timeSampler(sm, vertexNum, degree, r, nil)
}

// timeExclusiveBuffer times ExclusiveBuffer.Sample, resetting the buffer
// to cold between trials so refill cost is fairly amortized, mirroring
// mini_benchmark's use of ExclusiveBufferSampler::reset.
func timeExclusiveBuffer(vertexNum types.VertexID, degree uint32, r *rng.Source, pool *mempool.Pool) (float64, error) {
	g := syntheticUniformGraph(vertexNum, degree, r)
	sm, err := sampler.InitExclusiveBuffer(g, 0, 0, vertexNum, pool, mempool.Ignore())
	if err != nil {
		return 0, err
	}
	return timeSampler(sm, vertexNum, degree, r, func() { sm.Reset() }), nil
}

// timeSampler samples every vertex of the partition once per pass, for
// (1<<20)/(vertexNum*degree) passes with a floor of 4 (mini_benchmark's
// iter_num), optionally resetting the sampler between passes, and returns
// the mean nanoseconds per sample.
func timeSampler(sm sampler.Sampler, vertexNum types.VertexID, degree uint32, r *rng.Source, reset func()) float64 {
	partitionWork := uint64(vertexNum) * uint64(degree)
	if partitionWork == 0 {
		return 0
	}
	iters := (uint64(1) << 20) / partitionWork
	if iters < 4 {
		iters = 4
	}

	var elapsed time.Duration
	var work uint64
	for i := uint64(0); i < iters; i++ {
		if reset != nil {
			reset()
		}
		start := time.Now()
		for v := types.VertexID(0); v < vertexNum; v++ {
			sm.Sample(v, r)
		}
		elapsed += time.Since(start)
		work += uint64(vertexNum)
	}
	return float64(elapsed) / float64(work)
}

// RunMicroBenchmark fills in every (partition_bits, degree, class)
// combination params and the planner's search range require that cache
// does not already hold, and saves the updated catalogue back to disk,
// mirroring mini_benchmark's "only benchmark what's missing" design.
func RunMicroBenchmark(cache *BenchmarkCache, params BenchmarkParams, pool *mempool.Pool) error {
	internalMaxBits := params.MaxPartitionVertexBits
	if internalMaxBits > 20 {
		internalMaxBits = 20
	}
	if internalMaxBits < params.MinPartitionVertexBits {
		internalMaxBits = params.MinPartitionVertexBits
	}

	r := rng.New(1)
	for _, degree := range testDegrees(params.MaxDegree) {
		for bits := params.MinPartitionVertexBits; bits <= internalMaxBits; bits++ {
			vertexNum := types.VertexID(1) << bits
			partitionEdges := uint64(vertexNum) * uint64(degree)
			if partitionEdges > uint64(1)<<24 {
				continue
			}
			partitionWalkers := float64(partitionEdges) * params.WalkerPerEdge
			if partitionWalkers < 1 {
				continue
			}

			if !cache.HasItem(int(bits), degree, types.ClassUniformDegreeDirect) {
				ns := timeUniformDegreeDirect(vertexNum, degree, r)
				cache.AddItem(int(bits), degree, types.ClassUniformDegreeDirect, ns)
			}
			if degree > 4 && !cache.HasItem(int(bits), degree, types.ClassExclusiveBuffer) {
				ns, err := timeExclusiveBuffer(vertexNum, degree, r, pool)
				if err != nil {
					return err
				}
				cache.AddItem(int(bits), degree, types.ClassExclusiveBuffer, ns)
			}
		}
	}
	return cache.Save()
}
