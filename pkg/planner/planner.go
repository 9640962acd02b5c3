// Package planner implements the micro-benchmark-driven multiple-choice
// knapsack (MCKP) solver that decides, per partition, which sampler class
// to use and how many vertices each partition should hold. Ported from
// src/core/partition.hpp and src/core/mini_bmk.hpp.
package planner

import (
	"fmt"
	"math"

	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// Method is one benchmarked (sampler class, step time) pair for a given
// degree bucket.
type Method struct {
	SamplerClass types.SamplerClass
	StepTimeNs   float64
}

// DegreeMethods maps a benchmarked average degree to the methods measured
// at that degree, mirroring MiniBMKCatManager's in-memory catalogue.
type DegreeMethods map[uint32][]Method

// candidate is one (partition_bits, group) choice considered by the DP.
type candidate struct {
	partitionBits  uint
	partitionNum   int
	totalTime      float64
	samplerClasses []types.SamplerClass
}

// PlanGroup scores every candidate partition_vertex_bits for one group and
// returns, for each, the resulting GroupHint plus its total estimated
// walk time, mirroring the inner loop of partition.hpp's dp(). It fails
// with ErrInvalidInput as soon as it would need to plan a partition whose
// every vertex has zero out-degree: such a partition can never be sampled
// from (spec.md §8 scenario 3 — a single isolated vertex must be rejected
// here, in the planner, not discovered later on the hot walk path), and the
// micro-benchmark catalogue never profiles a degree-0 bucket to size it
// against (spec.md §9's Open Questions).
func PlanGroup(vertexBegin, vertexEnd types.VertexID, degreePrefixSum []types.EdgeID, methods DegreeMethods, threadNum int, totalEdges types.EdgeID, minBits, maxBits uint) ([]candidate, error) {
	var out []candidate
	sortedDegrees := sortedMethodDegrees(methods)
	threadMaxWork := totalEdges / types.EdgeID(max64(1, threadNum*8))

	for bits := minBits; bits <= maxBits; bits++ {
		partitionLen := types.VertexID(1) << bits
		var cands candidate
		cands.partitionBits = bits
		v := vertexBegin
		for v < vertexEnd {
			end := v + partitionLen
			if end > vertexEnd {
				end = vertexEnd
			}
			edgeNum := degreePrefixSum[end] - degreePrefixSum[v]
			avgDegree := uint32(0)
			if end > v {
				avgDegree = uint32(uint64(edgeNum) / uint64(end-v))
			}
			if edgeNum == 0 {
				return nil, fmt.Errorf("%w: partition [%d,%d) has no outgoing edges on any vertex", types.ErrInvalidInput, v, end)
			}
			cls, t := pickMethod(avgDegree, edgeNum, threadMaxWork, sortedDegrees, methods)
			cands.samplerClasses = append(cands.samplerClasses, cls)
			cands.totalTime += t
			cands.partitionNum++
			v = end
		}
		out = append(out, cands)
	}
	return out, nil
}

func sortedMethodDegrees(methods DegreeMethods) []uint32 {
	degs := make([]uint32, 0, len(methods))
	for d := range methods {
		degs = append(degs, d)
	}
	for i := 1; i < len(degs); i++ {
		for j := i; j > 0 && degs[j-1] > degs[j]; j-- {
			degs[j-1], degs[j] = degs[j], degs[j-1]
		}
	}
	return degs
}

// pickMethod finds the benchmarked degree bucket closest to (and not
// below) avgDegree, applies the direct-sampler extrapolation penalty only
// when falling back past the highest benchmarked bucket, and always
// applies the synchronization penalty when a single partition's edge
// count would make one thread do disproportionate work. Mirrors dp()'s
// per-partition cost lookup.
func pickMethod(avgDegree uint32, edgeNum, threadMaxWork types.EdgeID, sortedDegrees []uint32, methods DegreeMethods) (types.SamplerClass, float64) {
	bucket := sortedDegrees[len(sortedDegrees)-1]
	extrapolated := true
	for _, d := range sortedDegrees {
		if d >= avgDegree {
			bucket = d
			extrapolated = false
			break
		}
	}

	best := types.ClassDirect
	bestVal := math.Inf(1)
	for _, m := range methods[bucket] {
		val := m.StepTimeNs
		if extrapolated && m.SamplerClass != types.ClassExclusiveBuffer && bucket > 0 {
			val *= float64(avgDegree) / float64(bucket)
		}
		if edgeNum > threadMaxWork && threadMaxWork > 0 {
			val *= float64(edgeNum) / float64(threadMaxWork)
		}
		if val < bestVal {
			bestVal = val
			best = m.SamplerClass
		}
	}
	return best, bestVal
}

// GroupRange names the vertex range one degree group covers, used to drive
// PlanGroup across every group before handing the results to Solve.
type GroupRange struct {
	Begin, End types.VertexID
}

// GroupBits returns the smallest group size exponent that keeps the
// number of contiguous vertex groups within maxGroupNum, matching
// partition.hpp's group_bits sizing (vertices are already degree-sorted,
// so a contiguous range is a degree-homogeneous-ish group).
func GroupBits(vertexNum types.VertexID, maxGroupNum int) uint {
	bits := uint(0)
	for (uint64(vertexNum)+(uint64(1)<<bits)-1)>>bits > uint64(maxGroupNum) {
		bits++
	}
	return bits
}

// BuildGroupRanges splits [0, vertexNum) into contiguous ranges of
// 1<<groupBits vertices each (the last possibly shorter).
func BuildGroupRanges(vertexNum types.VertexID, groupBits uint) []GroupRange {
	groupLen := types.VertexID(1) << groupBits
	var groups []GroupRange
	for begin := types.VertexID(0); begin < vertexNum; begin += groupLen {
		end := begin + groupLen
		if end > vertexNum {
			end = vertexNum
		}
		groups = append(groups, GroupRange{Begin: begin, End: end})
	}
	return groups
}

// BuildGraphHint runs PlanGroup over every group range and feeds the
// results into Solve, returning the final per-group partitioning plan.
// This is the top-level entry point src/core/partition.hpp's
// get_partition_hint exposes to the rest of the engine. Callers must
// ensure maxBits does not exceed the group size exponent groups was built
// with (GroupBits), so no candidate partition is larger than its group.
func BuildGraphHint(groups []GroupRange, degreePrefixSum []types.EdgeID, methods DegreeMethods, threadNum int, totalEdges types.EdgeID, minBits, maxBits uint, maxPartitions int, groupBits uint) (partitioner.GraphHint, error) {
	groupCandidates := make([][]candidate, len(groups))
	for i, g := range groups {
		cands, err := PlanGroup(g.Begin, g.End, degreePrefixSum, methods, threadNum, totalEdges, minBits, maxBits)
		if err != nil {
			return partitioner.GraphHint{}, err
		}
		groupCandidates[i] = cands
	}
	return partitioner.GraphHint{Groups: Solve(groupCandidates, maxPartitions), GroupBits: groupBits}, nil
}

func max64(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// dpState is one (group, capacity) knapsack cell.
type dpState struct {
	reachable bool
	cost      float64
	choice    candidate
	bits      uint
}

// Solve runs the classic bottom-up multiple-choice-knapsack DP across
// groups, where each group's "weight" is a candidate's partition count and
// "value" is its total estimated walk time (to be minimized). Ties at the
// same capacity inherit the smaller capacity's state rather than staying
// unreachable — see DESIGN.md Open Question 1 for why this departs from a
// literal port of the original comparison.
func Solve(groupCandidates [][]candidate, maxPartitions int) []partitioner.GroupHint {
	numGroups := len(groupCandidates)
	f := make([][]dpState, numGroups+1)
	for g := range f {
		f[g] = make([]dpState, maxPartitions+1)
	}
	f[0][0].reachable = true

	choice := make([][]candidate, numGroups+1)
	for g := range choice {
		choice[g] = make([]candidate, maxPartitions+1)
	}

	for g := 0; g < numGroups; g++ {
		for p := 0; p <= maxPartitions; p++ {
			if !f[g][p].reachable {
				continue
			}
			for _, c := range groupCandidates[g] {
				np := p + c.partitionNum
				if np > maxPartitions {
					continue
				}
				cost := f[g][p].cost + c.totalTime
				if !f[g+1][np].reachable || cost < f[g+1][np].cost {
					f[g+1][np] = dpState{reachable: true, cost: cost}
					choice[g+1][np] = c
				}
			}
		}
		// Monotone fill: capacities that ended up unreached, or reached at
		// higher cost than a smaller capacity, inherit the smaller one.
		for p := 1; p <= maxPartitions; p++ {
			if f[g+1][p-1].reachable && (!f[g+1][p].reachable || f[g+1][p-1].cost <= f[g+1][p].cost) {
				f[g+1][p] = f[g+1][p-1]
				choice[g+1][p] = choice[g+1][p-1]
			}
		}
	}

	best := maxPartitions
	for best > 0 && !f[numGroups][best].reachable {
		best--
	}

	hints := make([]partitioner.GroupHint, numGroups)
	remaining := best
	for g := numGroups; g > 0; g-- {
		c := choice[g][remaining]
		hints[g-1] = partitioner.GroupHint{
			PartitionBits:  c.partitionBits,
			PartitionNum:   c.partitionNum,
			SamplerClasses: c.samplerClasses,
		}
		remaining -= c.partitionNum
	}
	return hints
}

// EstimateEpochWalkers returns how many walkers of walkLen steps fit
// within memQuota bytes, given otherSize bytes already committed (e.g. the
// graph's own CSR and, for node2vec, its Bloom filter). Mirrors
// estimate_epoch_walker's per-walker cost formula
// sizeof(vertex_id)*(2*walk_len+3).
func EstimateEpochWalkers(memQuota, otherSize uint64, walkLen int) types.WalkerID {
	const vidSize = 4
	perWalkerCost := uint64(vidSize) * uint64(2*walkLen+3)
	if memQuota <= otherSize || perWalkerCost == 0 {
		return 0
	}
	avail := memQuota - otherSize
	n := avail / perWalkerCost
	const maxWalker = uint64(^types.WalkerID(0)) - 2
	if n > maxWalker {
		n = maxWalker
	}
	return types.WalkerID(n)
}
