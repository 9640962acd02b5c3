// Package engineapp wires together graph loading, partition planning,
// sampler construction and the walk engine into the single end-to-end run
// cmd/deepwalk and cmd/node2vec both need, mirroring deepwalk.cpp's and
// node2vec.cpp's near-identical main() bodies.
package engineapp

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/flashmobwalk/flashmob/internal/config"
	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/logger"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/planner"
	"github.com/flashmobwalk/flashmob/pkg/profiler"
	"github.com/flashmobwalk/flashmob/pkg/sampler"
	"github.com/flashmobwalk/flashmob/pkg/types"
	"github.com/flashmobwalk/flashmob/pkg/walk"
)

// Run loads the graph at cfg.GraphPath, plans its partitioning from the
// micro-benchmark catalogue, runs cfg.WalkerNum walks of cfg.WalkLen steps
// (second-order node2vec when node2vec is true), and writes walker-major
// vertex rows to cfg.OutputPath as whitespace-separated integers, one
// walker per line.
func Run(cfg config.Config, node2vec bool) error {
	l, logFile := logger.Init(cfg.LogPath)
	defer logFile.Close()

	pool := mempool.New(cfg.Topology)
	defer pool.Close()

	l.BlockBegin("load graph")
	g, err := loadGraph(cfg, pool)
	if err != nil {
		return err
	}
	l.BlockMid("vertices=%d edges=%d", g.V, g.E)
	l.BlockEnd("load graph")

	walkerNum := cfg.WalkerNum
	if walkerNum == 0 && cfg.EpochNum > 0 {
		walkerNum = uint64(cfg.EpochNum) * uint64(g.V)
	}
	cfg.WalkerNum = walkerNum

	l.BlockBegin("plan partitions")
	hint, err := planPartitions(cfg, g)
	if err != nil {
		return err
	}
	l.BlockEnd("plan partitions")

	if err := g.Make(*hint, cfg.Topology.SocketNum, cfg.Topology.ThreadNum, pool); err != nil {
		return err
	}

	samplers, err := buildSamplers(g, pool, cfg.Topology.L2CacheSize)
	if err != nil {
		return err
	}

	e := walk.New(g, cfg.Topology, pool, samplers)
	if cfg.DisplayStats {
		e.SetProfiler(profiler.New(len(g.Layout.PartitionBegin), len(hint.Groups)))
	}
	if node2vec {
		e.SetNode2Vec(cfg.P, cfg.Q)
	}
	if err := e.Prepare(cfg.WalkerNum, cfg.WalkLen, cfg.MemQuota); err != nil {
		return err
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	l.BlockBegin("walk")
	row := make([]types.VertexID, uint64(cfg.WalkLen)*uint64(estimateEpochWalkers(cfg)))
	var emitted uint64
	for e.HasNextEpoch() {
		n, err := e.Walk(row)
		if err != nil {
			return err
		}
		if err := writeWalkers(out, row[emitted*uint64(cfg.WalkLen):], int(n), cfg.WalkLen); err != nil {
			return err
		}
		emitted += uint64(n)
		l.BlockMid("emitted %d/%d walkers", emitted, cfg.WalkerNum)
	}
	l.BlockEnd("walk")
	return nil
}

// estimateEpochWalkers sizes Run's output buffer generously (an upper
// bound on what Engine.Prepare will actually choose per epoch); Engine
// itself is the authority on the true per-epoch width via its internal
// mempool allocation, this just needs to be large enough to never overflow
// what Walk writes into row.
func estimateEpochWalkers(cfg config.Config) uint64 {
	if cfg.WalkerNum == 0 {
		return 0
	}
	return cfg.WalkerNum
}

func loadGraph(cfg config.Config, pool *mempool.Pool) (*graph.Store, error) {
	f, err := os.Open(cfg.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
	}
	defer f.Close()

	var reader graph.EdgeReader
	if cfg.BinaryGraph {
		reader = graph.NewBinaryReader(f)
	} else {
		reader = graph.NewTextReader(f)
	}
	g := &graph.Store{}
	if err := g.Load(reader, false, pool); err != nil {
		return nil, err
	}
	return g, nil
}

// planPartitions loads (and extends) the on-disk benchmark catalogue for
// this run's walker density and machine shape, then solves the MCKP
// partitioning problem over it.
func planPartitions(cfg config.Config, g *graph.Store) (*partitioner.GraphHint, error) {
	walkerPerEdge := float64(cfg.WalkerNum) / float64(max64(1, uint64(g.E)))
	cache := planner.NewBenchmarkCache(cfg.BenchmarkCacheDir, walkerPerEdge, cfg.Topology.SocketNum, cfg.Topology.ThreadNum)
	if err := cache.Load(); err != nil {
		return nil, err
	}

	var rc *planner.RedisCache
	if cfg.RedisAddr != "" {
		rc = planner.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cache.RedisKey())
		if err := rc.Pull(context.Background(), cache); err != nil {
			return nil, err
		}
	}

	pool := mempool.New(cfg.Topology)
	defer pool.Close()
	params := planner.BenchmarkParams{
		WalkerPerEdge:          walkerPerEdge,
		MaxDegree:              maxDegree(g),
		MinPartitionVertexBits: types.MinPartitionBits,
		MaxPartitionVertexBits: 20,
	}
	if err := planner.RunMicroBenchmark(cache, params, pool); err != nil {
		return nil, err
	}
	if rc != nil {
		if err := rc.Push(context.Background(), cache); err != nil {
			return nil, err
		}
	}

	groupBits := planner.GroupBits(g.V, types.MaxGroupNum)
	groups := planner.BuildGroupRanges(g.V, groupBits)
	maxBits := params.MaxPartitionVertexBits
	if groupBits < maxBits {
		maxBits = groupBits
	}
	hint, err := planner.BuildGraphHint(groups, g.DegreePrefixSum(), cache.Methods(20), cfg.Topology.ThreadNum, g.E, types.MinPartitionBits, maxBits, types.MaxPartitionNum, groupBits)
	if err != nil {
		return nil, err
	}
	return &hint, nil
}

func maxDegree(g *graph.Store) uint32 {
	var max uint32
	for v := types.VertexID(0); v < g.V; v++ {
		if d := g.Degree(v); d > max {
			max = d
		}
	}
	return max
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func writeWalkers(out *os.File, row []types.VertexID, walkerNum, walkLen int) error {
	for w := 0; w < walkerNum; w++ {
		for step := 0; step < walkLen; step++ {
			sep := " "
			if step == 0 {
				sep = ""
			}
			if _, err := fmt.Fprintf(out, "%s%d", sep, row[w*walkLen+step]); err != nil {
				return err
			}
		}
		if _, err := out.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}

// buildSamplers constructs one sampler per partition of g.Layout, mirroring
// SamplerManager::init's live-override cascade: the planner's benchmark-driven
// choice is trusted only for ClassExclusiveBuffer, since that class needs
// pool-backed ring buffers allocated up front and the planner is the only
// place that decided a partition was worth the memory. Every other
// partition's class is re-derived here from the partition's real min/max
// degree, because the planner chooses a class per averaged-degree benchmark
// bucket, not per partition, and a partition that isn't truly uniform-degree
// must never be handed to UniformDegreeDirect — it indexes neighbor slices
// by a single fixed degree and panics on any vertex whose real degree
// differs.
func buildSamplers(g *graph.Store, pool *mempool.Pool, l2CacheSize int) ([]sampler.Sampler, error) {
	layout := g.Layout
	degreePrefixSum := g.DegreePrefixSum()
	samplers := make([]sampler.Sampler, len(layout.PartitionBegin))
	for p := range samplers {
		vb, ve := layout.PartitionBegin[p], layout.PartitionEnd[p]
		socket := layout.PartitionSocket[p]

		if layout.SamplerClass[p] == types.ClassExclusiveBuffer {
			sm, err := sampler.InitExclusiveBuffer(g, socket, vb, ve, pool, placementFor(socket, pool))
			if err != nil {
				return nil, err
			}
			samplers[p] = sm
			continue
		}

		minDegree, maxDegree := minMaxDegree(g, vb, ve)
		edgeNum := degreePrefixSum[ve] - degreePrefixSum[vb]
		switch {
		case minDegree == maxDegree:
			samplers[p] = sampler.NewUniformDegreeDirect(g, socket, vb, minDegree)
		case sampler.Valid(minDegree, maxDegree, edgeNum, l2CacheSize):
			hints := buildAdjHints(g, vb, ve)
			samplers[p] = sampler.NewSimilarDegreeDirect(g, socket, hints)
		default:
			samplers[p] = sampler.NewDirect(g, socket, vb, ve)
		}
	}
	return samplers, nil
}

// minMaxDegree scans [vb, ve)'s true out-degrees, matching the live
// min_degree/max_degree comparison SamplerManager::init makes per partition
// before trusting any benchmark-driven class choice.
func minMaxDegree(g *graph.Store, vb, ve types.VertexID) (min, max uint32) {
	min = g.Degree(vb)
	max = min
	for v := vb + 1; v < ve; v++ {
		d := g.Degree(v)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

func placementFor(socket int, pool *mempool.Pool) mempool.Placement {
	if pool.WithNuma() {
		return mempool.Node(socket)
	}
	return mempool.Ignore()
}

// buildAdjHints groups [vb, ve) into runs of equal degree, matching
// SimilarDegreeDirectSampler::init's construction of its hint table from
// an already degree-sorted partition.
func buildAdjHints(g *graph.Store, vb, ve types.VertexID) []sampler.AdjHint {
	var hints []sampler.AdjHint
	runBegin := vb
	runDegree := g.Degree(vb)
	for v := vb + 1; v <= ve; v++ {
		var degree uint32
		if v < ve {
			degree = g.Degree(v)
		}
		if v == ve || degree != runDegree {
			hints = append(hints, sampler.AdjHint{VertexBegin: runBegin, VertexEnd: v, Degree: runDegree})
			runBegin = v
			runDegree = degree
		}
	}
	return hints
}
