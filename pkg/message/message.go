// Package message implements the per-thread message shuffle/update
// permutation that regroups walkers by their current partition before
// each walk step and unwinds that regrouping afterward, ported from
// src/core/message.hpp.
package message

import (
	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// Task owns one thread's contribution to one step's shuffle: it reads a
// contiguous slice of the origin SoA array (its own walkers), buckets them
// by partition, and exposes each partition's bucket so the walk step can
// process it; Update performs the inverse, writing step results back to
// their walkers' original positions.
type Task struct {
	g            *graph.Store
	originBegin  types.WalkerID
	originEnd    types.WalkerID
	partitionNum int

	shuffledBegin []types.WalkerID // per partition
	shuffledEnd   []types.WalkerID // per partition, used as write cursor during Shuffle
	shuffled      []types.VertexID
	shuffledPrev  []types.WalkerState // nil unless node2vec
	partitionIDs  []types.PartitionID // per origin-local walker, cached from Prepare
}

// NewTask allocates a Task covering origin walkers [originBegin, originEnd)
// out of pool, sized for a graph with partitionNum partitions.
func NewTask(g *graph.Store, pool *mempool.Pool, originBegin, originEnd types.WalkerID, partitionNum int, withStates bool) (*Task, error) {
	n := int(originEnd - originBegin)
	t := &Task{g: g, originBegin: originBegin, originEnd: originEnd, partitionNum: partitionNum}

	shuffled, err := mempool.Alloc[types.VertexID](pool, n, mempool.Ignore())
	if err != nil {
		return nil, err
	}
	t.shuffled = shuffled
	if withStates {
		states, err := mempool.Alloc[types.WalkerState](pool, n, mempool.Ignore())
		if err != nil {
			return nil, err
		}
		t.shuffledPrev = states
	}
	t.shuffledBegin = make([]types.WalkerID, partitionNum)
	t.shuffledEnd = make([]types.WalkerID, partitionNum)
	t.partitionIDs = make([]types.PartitionID, n)
	return t, nil
}

// Prepare counts how many of this task's walkers fall in each partition
// (using each walker's current vertex in origin), then turns those counts
// into a prefix sum so Shuffle can use shuffledEnd as a per-partition write
// cursor that starts at shuffledBegin, matching MessageTask::prepare.
func (t *Task) Prepare(origin []types.VertexID) {
	for i := range t.shuffledBegin {
		t.shuffledEnd[i] = 0
	}
	for i := 0; i < len(t.partitionIDs); i++ {
		pid := t.g.VertexPartition(origin[t.originBegin+types.WalkerID(i)])
		t.partitionIDs[i] = pid
		t.shuffledEnd[pid]++
	}
	var sum types.WalkerID
	for p := range t.shuffledBegin {
		t.shuffledBegin[p] = sum
		sum += t.shuffledEnd[p]
		t.shuffledEnd[p] = t.shuffledBegin[p]
	}
}

// Shuffle scatters this task's walkers into shuffled (and, when states is
// non-nil, shuffledPrev) ordered by partition, matching
// MessageTask::shuffle.
func (t *Task) Shuffle(origin []types.VertexID, states []types.WalkerState) {
	for i := 0; i < len(t.partitionIDs); i++ {
		pid := t.partitionIDs[i]
		slot := t.shuffledEnd[pid]
		t.shuffledEnd[pid]++
		t.shuffled[slot] = origin[t.originBegin+types.WalkerID(i)]
		if states != nil {
			t.shuffledPrev[slot] = states[t.originBegin+types.WalkerID(i)]
		}
	}
}

// Update reads this task's shuffled results back into target, ordered by
// partition, unwinding the permutation Shuffle built, matching
// MessageTask::update.
func (t *Task) Update(target []types.VertexID) {
	for i := 0; i < len(t.partitionIDs); i++ {
		pid := t.partitionIDs[i]
		slot := t.shuffledBegin[pid]
		t.shuffledBegin[pid]++
		target[t.originBegin+types.WalkerID(i)] = t.shuffled[slot]
	}
}

// Bucket returns this task's shuffled walkers currently residing in
// partition p, as built by the most recent Shuffle call.
func (t *Task) Bucket(p types.PartitionID) []types.VertexID {
	return t.shuffled[t.shuffledBegin[p]:t.shuffledEnd[p]]
}

// PrevBucket returns the node2vec "previous vertex" column for the same
// range as Bucket(p). Nil when this task was created without states.
func (t *Task) PrevBucket(p types.PartitionID) []types.WalkerState {
	if t.shuffledPrev == nil {
		return nil
	}
	return t.shuffledPrev[t.shuffledBegin[p]:t.shuffledEnd[p]]
}

// SetBucket overwrites partition p's shuffled slot, used by the walk step
// to write sampled next-vertices back in place before Update unwinds them.
func (t *Task) SetBucket(p types.PartitionID, i int, v types.VertexID) {
	t.shuffled[t.shuffledBegin[p]+types.WalkerID(i)] = v
}
