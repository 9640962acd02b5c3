// Package walk implements the top-level bulk-synchronous walk loop: per
// epoch it samples start vertices, then for walk_len-1 steps shuffles
// walkers to their current partition, samples one outgoing edge per
// walker (rejecting and retrying for node2vec), and unwinds the shuffle,
// finally transposing the per-step columns into walker-major output rows.
// Ported from src/core/walk.hpp and src/core/solver.hpp.
package walk

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/message"
	"github.com/flashmobwalk/flashmob/pkg/planner"
	"github.com/flashmobwalk/flashmob/pkg/profiler"
	"github.com/flashmobwalk/flashmob/pkg/rng"
	"github.com/flashmobwalk/flashmob/pkg/sampler"
	"github.com/flashmobwalk/flashmob/pkg/types"
	"github.com/flashmobwalk/flashmob/pkg/walker"
)

// Engine drives one DeepWalk or node2vec run over an already-partitioned
// graph.Store.
type Engine struct {
	g    *graph.Store
	cfg  types.MultiThreadConfig
	pool *mempool.Pool

	wkrm *walker.Manager
	msgm *message.Manager

	samplers []sampler.Sampler // per partition, indexed by types.PartitionID
	rngs     []*rng.Source     // per worker thread

	isNode2vec bool
	n2v        node2vecParams

	walkLen         int
	maxEpochWalkers types.WalkerID
	totalWalkers    uint64
	emittedWalkers  uint64

	walks [][]types.VertexID // [step][walker], width maxEpochWalkers
	prev  []types.WalkerState

	prof *profiler.Profiler
}

// SetProfiler attaches a profiler that walkStep/processPartition report
// per-partition timing and volume into. Must be called before Prepare; nil
// (the default) disables profiling entirely.
func (e *Engine) SetProfiler(p *profiler.Profiler) {
	e.prof = p
}

// New returns an Engine over g, with per-partition samplers already
// assigned (typically built by pkg/sampler according to the planner's
// per-partition SamplerClass choice).
func New(g *graph.Store, cfg types.MultiThreadConfig, pool *mempool.Pool, samplers []sampler.Sampler) *Engine {
	return &Engine{g: g, cfg: cfg, pool: pool, samplers: samplers}
}

// SetNode2Vec switches the engine into second-order node2vec mode with
// the given return (p) and in-out (q) biases. Must be called before
// Prepare.
func (e *Engine) SetNode2Vec(p, q float64) {
	e.isNode2vec = true
	e.n2v = newNode2vecParams(p, q)
}

// Prepare sizes one run for walkerNum walkers of walkLen steps each,
// within memQuota bytes, matching FMobSolver::prepare.
func (e *Engine) Prepare(walkerNum uint64, walkLen int, memQuota uint64) error {
	if walkLen < 2 {
		return fmt.Errorf("%w: walk_len must be at least 2, got %d", types.ErrInvalidInput, walkLen)
	}
	e.walkLen = walkLen
	e.totalWalkers = walkerNum

	if e.isNode2vec {
		e.g.PrepareNeighborQuery()
	}

	otherSize := uint64(e.g.MemorySize())
	e.maxEpochWalkers = planner.EstimateEpochWalkers(memQuota, otherSize, walkLen)
	if e.maxEpochWalkers == 0 {
		return fmt.Errorf("%w: memory quota too small for any walker", types.ErrOutOfMemory)
	}

	e.rngs = make([]*rng.Source, e.cfg.ThreadNum)
	for i := range e.rngs {
		e.rngs[i] = rng.New(uint64(i) + 1)
	}

	e.wkrm = walker.NewManager(e.cfg, e.pool)
	e.wkrm.Init(e.maxEpochWalkers)

	threadBegin, threadEnd := e.wkrm.ThreadRanges()
	msgm, err := message.NewManager(e.g, e.cfg, e.pool, threadBegin, threadEnd, e.isNode2vec)
	if err != nil {
		return err
	}
	e.msgm = msgm

	e.walks = make([][]types.VertexID, walkLen)
	for i := range e.walks {
		col, err := walker.AllocArray[types.VertexID](e.wkrm)
		if err != nil {
			return err
		}
		e.walks[i] = col
	}
	if e.isNode2vec {
		prev, err := walker.AllocArray[types.WalkerState](e.wkrm)
		if err != nil {
			return err
		}
		e.prev = prev
	}
	return nil
}

// HasNextEpoch reports whether any walker remains unemitted.
func (e *Engine) HasNextEpoch() bool {
	return e.emittedWalkers < e.totalWalkers
}

// Walk runs one epoch, writing walkLen*epochWalkers vertex ids
// (walker-major) into output starting at index emitted*walkLen, where
// emitted is the number of walkers earlier epochs already wrote, and returns how
// many walkers it emitted. Matches FMobSolver::walk plus the free walk()
// driver's epoch loop.
func (e *Engine) Walk(output []types.VertexID) (types.WalkerID, error) {
	if !e.HasNextEpoch() {
		return 0, types.ErrEpochExhausted
	}
	remaining := e.totalWalkers - e.emittedWalkers
	epochWalkers := e.maxEpochWalkers
	if uint64(epochWalkers) > remaining {
		epochWalkers = types.WalkerID(remaining)
	}

	if err := e.runProcessWalkers(func(workerID int, w types.WalkerID) {
		e.walks[0][w] = types.VertexID(e.rngs[workerID].Gen(uint64(e.g.V)))
		if e.prev != nil {
			e.prev[w] = e.walks[0][w]
		}
	}, epochWalkers); err != nil {
		return 0, err
	}

	current := e.walks[0]
	var previous []types.WalkerState
	if e.isNode2vec {
		previous = e.prev
	}
	for step := 1; step < e.walkLen; step++ {
		e.msgm.Shuffle(current, previous, epochWalkers)
		if err := e.walkStep(step); err != nil {
			return 0, err
		}
		e.msgm.Update(e.walks[step])
		if e.isNode2vec {
			for w := types.WalkerID(0); w < epochWalkers; w++ {
				e.prev[w] = types.WalkerState(current[w])
			}
			previous = e.prev
		}
		current = e.walks[step]
	}

	if err := e.runProcessWalkers(func(_ int, w types.WalkerID) {
		base := int(e.emittedWalkers+uint64(w)) * e.walkLen
		for step := 0; step < e.walkLen; step++ {
			output[base+step] = e.walks[step][w]
		}
	}, epochWalkers); err != nil {
		return 0, err
	}

	e.emittedWalkers += uint64(epochWalkers)
	return epochWalkers, nil
}

// runParallel runs fn once per configured thread and waits for all to
// finish, propagating the first error, matching the OMP parallel regions
// wrapping process_walkers.
func (e *Engine) runParallel(fn func(workerID int) error) error {
	var eg errgroup.Group
	for w := 0; w < e.cfg.ThreadNum; w++ {
		w := w
		eg.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			return fn(w)
		})
	}
	return eg.Wait()
}

// runProcessWalkers drives walker.Manager.ProcessWalkers across every
// worker with the barrier the original's OMP region provides between each
// thread resetting its own range and the rotation-then-steal loop
// beginning: every worker resets before any worker starts stealing.
func (e *Engine) runProcessWalkers(process func(workerID int, w types.WalkerID), activeWalkerNum types.WalkerID) error {
	for w := 0; w < e.cfg.ThreadNum; w++ {
		e.wkrm.ResetOwnRange(w, activeWalkerNum)
	}
	return e.runParallel(func(workerID int) error {
		e.wkrm.StealLoop(workerID, func(w types.WalkerID) { process(workerID, w) }, activeWalkerNum)
		return nil
	})
}

// walkStep dispatches one step across every partition, matching
// WalkManager::walk: a per-socket claim counter hands out each of the
// socket's partitions exactly once, and the HDV/LDV counters decide whether
// the claimed partition is taken from the front (HDV threads) or the back
// (LDV threads) of the socket's partition list.
func (e *Engine) walkStep(stepIdx int) error {
	socketNum := e.cfg.SocketNum
	claimed := make([]atomic.Int32, socketNum)
	hdvProgress := make([]atomic.Int32, socketNum)
	ldvProgress := make([]atomic.Int32, socketNum)

	return e.runParallel(func(workerID int) error {
		socket := e.cfg.SocketID(workerID)
		threadOffset := e.cfg.SocketOffset(workerID)
		isHDV := threadOffset%2 == 1
		partitions := e.g.Layout.SocketPartitions[socket]
		n := len(partitions)
		for {
			if int(claimed[socket].Add(1)) > n {
				return nil
			}
			var idx int
			if isHDV {
				idx = int(hdvProgress[socket].Add(1)) - 1
			} else {
				idx = int(ldvProgress[socket].Add(1)) - 1
			}
			if idx >= n {
				return nil
			}
			var pid types.PartitionID
			if isHDV {
				pid = partitions[idx]
			} else {
				pid = partitions[n-idx-1]
			}
			if err := e.processPartition(pid, stepIdx, workerID, socket); err != nil {
				return err
			}
		}
	})
}

// processPartition samples one outgoing edge for every walker currently
// shuffled into partition pid, across every (socket, thread) task's
// bucket for that partition, matching node2vec_walk_message /
// walk_message's per-partition inner loop. An isolated vertex (no
// outgoing edges) has no legal next hop, so Sample's ErrIsolatedVertex
// aborts the step rather than being papered over with a self-loop —
// the hot walk path has no recoverable errors (spec.md §7).
func (e *Engine) processPartition(pid types.PartitionID, stepIdx, workerID, socket int) error {
	sm := e.samplers[pid]
	r := e.rngs[workerID]
	var start time.Time
	var walkerNum uint64
	if e.prof != nil {
		start = time.Now()
	}
	for _, task := range e.msgm.AllTasks() {
		bucket := task.Bucket(pid)
		if len(bucket) == 0 {
			continue
		}
		walkerNum += uint64(len(bucket))
		if e.isNode2vec {
			prevBucket := task.PrevBucket(pid)
			for i, curr := range bucket {
				prevVertex := types.VertexID(prevBucket[i])
				var next types.VertexID
				for {
					n, err := sm.Sample(curr, r)
					if err != nil {
						return err
					}
					prob := r.GenFloat(e.n2v.upperBound)
					if e.n2v.accept(e.g, prevVertex, curr, n, prob, socket) {
						next = n
						break
					}
				}
				task.SetBucket(pid, i, next)
			}
		} else {
			for i, curr := range bucket {
				next, err := sm.Sample(curr, r)
				if err != nil {
					return err
				}
				task.SetBucket(pid, i, next)
			}
		}
	}
	if e.prof != nil {
		e.prof.SetWalkStep(stepIdx)
		e.prof.RecordPartition(pid, time.Since(start), walkerNum, walkerNum, walkerNum)
	}
	return nil
}
