// Package profiler accumulates per-partition and per-group walk timing and
// volume statistics, ported from src/core/profiler.hpp's SampleProfiler.
package profiler

import (
	"sync/atomic"
	"time"

	"github.com/flashmobwalk/flashmob/pkg/logger"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// maxLogLines bounds how many partition rows Dump prints, matching the
// original's max_log_num chunking of the partition log.
const maxLogLines = 1000

type partitionStats struct {
	walkTime   atomic.Int64 // nanoseconds
	walkerNum  atomic.Uint64
	vertexNum  atomic.Uint64
	edgeNum    atomic.Uint64
	class      types.SamplerClass
}

type groupStats struct {
	walkTime  atomic.Int64
	walkerNum atomic.Uint64
	vertexNum atomic.Uint64
}

// Profiler accumulates statistics across one walk run. RecordPartition,
// RecordGroup, AddEdgeBufferBytes and SetWalkStep are safe for concurrent
// use by every worker goroutine; AddSubStepTime and AddSubStepSyncTime
// write to plain maps and are not.
type Profiler struct {
	partitions []partitionStats
	groups     []groupStats
	logStep    int

	walkStep         atomic.Int32
	edgeBufferBytes  atomic.Int64
	threadTimes      map[string]*atomic.Int64
	syncTimes        map[string]*atomic.Int64
}

// New returns a Profiler sized for partitionNum partitions across groupNum
// degree groups, matching SampleProfiler's constructor.
func New(partitionNum int, groupNum int) *Profiler {
	logStep := (partitionNum + maxLogLines - 1) / maxLogLines
	if logStep < 1 {
		logStep = 1
	}
	return &Profiler{
		partitions:  make([]partitionStats, partitionNum),
		groups:      make([]groupStats, groupNum),
		logStep:     logStep,
		threadTimes: make(map[string]*atomic.Int64),
		syncTimes:   make(map[string]*atomic.Int64),
	}
}

// SetPartitionClass records which sampler class a partition was assigned,
// for the final dump.
func (p *Profiler) SetPartitionClass(pid types.PartitionID, class types.SamplerClass) {
	p.partitions[pid].class = class
}

// RecordPartition accumulates one step's work done against partition pid.
func (p *Profiler) RecordPartition(pid types.PartitionID, d time.Duration, walkerNum, vertexNum, edgeNum uint64) {
	ps := &p.partitions[pid]
	ps.walkTime.Add(int64(d))
	ps.walkerNum.Add(walkerNum)
	ps.vertexNum.Add(vertexNum)
	ps.edgeNum.Add(edgeNum)
}

// RecordGroup accumulates one step's work done against degree group g.
func (p *Profiler) RecordGroup(g int, d time.Duration, walkerNum, vertexNum uint64) {
	gs := &p.groups[g]
	gs.walkTime.Add(int64(d))
	gs.walkerNum.Add(walkerNum)
	gs.vertexNum.Add(vertexNum)
}

// AddEdgeBufferBytes tracks ExclusiveBuffer's resident buffer size, matching
// edge_buffer_data_size.
func (p *Profiler) AddEdgeBufferBytes(n int64) {
	p.edgeBufferBytes.Add(n)
}

// SetWalkStep records the current step index within the epoch, for
// mid-run progress logging.
func (p *Profiler) SetWalkStep(step int) {
	p.walkStep.Store(int32(step))
}

// AddSubStepTime accumulates wall-clock time spent in a named sub-phase
// (e.g. "shuffle", "sample", "update") across every worker, matching
// sub_step_thread_times.
func (p *Profiler) AddSubStepTime(name string, d time.Duration) {
	p.counter(p.threadTimes, name).Add(int64(d))
}

// AddSubStepSyncTime accumulates time spent blocked at a barrier within a
// named sub-phase, matching sub_step_sync_times.
func (p *Profiler) AddSubStepSyncTime(name string, d time.Duration) {
	p.counter(p.syncTimes, name).Add(int64(d))
}

func (p *Profiler) counter(m map[string]*atomic.Int64, name string) *atomic.Int64 {
	if c, ok := m[name]; ok {
		return c
	}
	c := &atomic.Int64{}
	m[name] = c
	return c
}

// Dump writes a block-structured summary to l, mirroring the original
// engine's end-of-run profiling log: group totals, then one line per
// logStep'th partition, then sub-step timing breakdowns.
func (p *Profiler) Dump(l *logger.Aggregate) {
	l.BlockBegin("profile")
	l.BlockMid("edge_buffer_bytes=%d", p.edgeBufferBytes.Load())

	for g := range p.groups {
		gs := &p.groups[g]
		l.BlockMid("group=%d walk_time=%s walkers=%d vertices=%d",
			g, time.Duration(gs.walkTime.Load()), gs.walkerNum.Load(), gs.vertexNum.Load())
	}

	for pid := 0; pid < len(p.partitions); pid += p.logStep {
		ps := &p.partitions[pid]
		l.BlockMid("partition=%d class=%s walk_time=%s walkers=%d vertices=%d edges=%d",
			pid, ps.class, time.Duration(ps.walkTime.Load()), ps.walkerNum.Load(), ps.vertexNum.Load(), ps.edgeNum.Load())
	}

	for name, c := range p.threadTimes {
		sync := time.Duration(0)
		if sc, ok := p.syncTimes[name]; ok {
			sync = time.Duration(sc.Load())
		}
		l.BlockMid("substep=%s thread_time=%s sync_time=%s", name, time.Duration(c.Load()), sync)
	}
	l.BlockEnd("profile")
}
