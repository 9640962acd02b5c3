// Package partitioner builds the partition-to-socket layout and performs
// the bidirectional zigzag vertex shuffle, ported from graph.hpp's make().
//
// The graph arrives vertex-sorted by non-increasing degree and split into
// groups (pkg/planner.GraphHint): group 0 holds the highest-degree
// vertices, cut into many small partitions so each partition's adjacency
// fits comfortably in cache; later groups hold progressively lower-degree
// vertices in progressively larger partitions. Partitioner turns that group
// plan into concrete per-partition vertex ranges, assigns each partition to
// a socket in a round-robin "snake" order so consecutive partitions
// alternate direction across sockets, and reorders the first
// shuffle_partition_num partitions' vertices so that per-socket workload
// stays balanced even though the degree-sorted order is not socket-aware.
package partitioner

import (
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// GroupHint describes one degree-homogeneous group of the vertex range.
type GroupHint struct {
	// PartitionBits is the log2 of how many vertices each partition in
	// this group holds.
	PartitionBits uint
	// PartitionNum is how many partitions this group is split into.
	PartitionNum int
	// SamplerClasses holds, per partition in this group, the sampler
	// class the planner selected for it.
	SamplerClasses []types.SamplerClass
	// PartitionLevel is always 0 in this port; see DESIGN.md Open
	// Question 2 (second-level partitioning is not implemented).
	PartitionLevel int
}

// GraphHint is the planner's full partitioning plan for a graph.
type GraphHint struct {
	Groups []GroupHint
	// GroupBits is log2 of how many vertices each degree group spans
	// (the groups themselves, not their partitions) — the same group_bits
	// pkg/planner.GroupBits computed when it built the GroupRange list
	// this hint's Groups were planned over. Needed at lookup time so
	// VertexPartition can recover which group a vertex falls in from the
	// vertex id alone.
	GroupBits uint
}

// GroupEntry is one group's O(1)-lookup metadata: the size of its own
// partitions, and the cumulative partition count of every group before
// it, matching GroupHeader{partition_bits, partition_offset}.
type GroupEntry struct {
	PartitionBits   uint
	PartitionOffset types.PartitionID
}

// Layout is the partitioner's output: concrete vertex ranges, socket
// assignment, and the permutation applied to the first shuffled
// partitions.
type Layout struct {
	// PartitionBegin/PartitionEnd are flat, partition-index-ordered vertex
	// ranges spanning [0, V) with no gaps.
	PartitionBegin []types.VertexID
	PartitionEnd   []types.VertexID
	// PartitionSocket assigns each partition to a logical socket.
	PartitionSocket []int
	// SocketPartitions is the inverse of PartitionSocket: for each socket,
	// the list of partition indices assigned to it, in partition order.
	SocketPartitions [][]types.PartitionID
	// SamplerClass is the per-partition sampler class, flattened from the
	// group hints in partition order.
	SamplerClass []types.SamplerClass
	// Permutation maps new vertex index -> old vertex index for the
	// shuffled prefix of the vertex range (identity beyond it). Callers
	// use this to rewrite edges after partitioning.
	Permutation []types.VertexID
	// GroupBits and Groups back VertexPartition's O(1) lookup: group
	// index = v >> GroupBits, then Groups[group index] gives that group's
	// own partition size and partition-count offset.
	GroupBits uint
	Groups    []GroupEntry
}

// Apply lays out a graph of vertexNum vertices according to hint, using
// socketNum sockets and threadNum walk threads, and returns the resulting
// Layout. threadNum only bounds how many of group 0's partitions get
// zigzag-shuffled (spec.md: shuffle_partition_num = min(threads,
// partition_num_of_group_0)); it plays no part in socket assignment.
func Apply(vertexNum types.VertexID, hint GraphHint, socketNum, threadNum int) *Layout {
	l := &Layout{GroupBits: hint.GroupBits}

	group0PartitionNum := 0
	if len(hint.Groups) > 0 {
		group0PartitionNum = hint.Groups[0].PartitionNum
	}

	var v types.VertexID
	var partitionOffset types.PartitionID
	for _, g := range hint.Groups {
		l.Groups = append(l.Groups, GroupEntry{PartitionBits: g.PartitionBits, PartitionOffset: partitionOffset})
		partitionOffset += types.PartitionID(g.PartitionNum)

		partitionLen := types.VertexID(1) << g.PartitionBits
		for p := 0; p < g.PartitionNum; p++ {
			begin := v
			end := begin + partitionLen
			if end > vertexNum {
				end = vertexNum
			}
			l.PartitionBegin = append(l.PartitionBegin, begin)
			l.PartitionEnd = append(l.PartitionEnd, end)
			cls := types.ClassDirect
			if p < len(g.SamplerClasses) {
				cls = g.SamplerClasses[p]
			}
			l.SamplerClass = append(l.SamplerClass, cls)
			v = end
		}
	}
	// Any leftover vertices (rounding slack in the last group) form one
	// final partition so PartitionBegin/End always spans [0, vertexNum);
	// it gets its own single-partition group entry so VertexPartition's
	// v>>GroupBits lookup still resolves for vertices in it.
	if v < vertexNum {
		l.Groups = append(l.Groups, GroupEntry{PartitionBits: l.GroupBits, PartitionOffset: partitionOffset})
		l.PartitionBegin = append(l.PartitionBegin, v)
		l.PartitionEnd = append(l.PartitionEnd, vertexNum)
		l.SamplerClass = append(l.SamplerClass, types.ClassDirect)
	}

	partitionNum := len(l.PartitionBegin)
	l.PartitionSocket = make([]int, partitionNum)
	l.SocketPartitions = make([][]types.PartitionID, socketNum)
	for p := 0; p < partitionNum; p++ {
		s := snakeSocket(p, socketNum)
		l.PartitionSocket[p] = s
		l.SocketPartitions[s] = append(l.SocketPartitions[s], types.PartitionID(p))
	}

	shuffleNum := threadNum
	if group0PartitionNum < shuffleNum {
		shuffleNum = group0PartitionNum
	}
	l.Permutation = zigzagShuffle(l.PartitionBegin, l.PartitionEnd, shuffleNum, vertexNum)
	return l
}

// snakeSocket assigns partition p to a socket following a back-and-forth
// "snake" order: 0,1,...,S-1,S-1,...,1,0,0,1,... so that two consecutive
// partitions are never on the same socket except at the turnaround points,
// matching graph.hpp's partition_socket formula.
func snakeSocket(p, socketNum int) int {
	if socketNum <= 0 {
		return 0
	}
	m := p % (socketNum * 2)
	if m < socketNum {
		return m
	}
	return socketNum - (m - socketNum) - 1
}

// zigzagShuffle reorders the vertices within the first shuffleNum partitions
// (shuffleNum = min(threads, partitions in group 0), computed by the
// caller) so that, read off partition by partition, vertices alternate
// between the lowest- and highest-numbered still-open partitions each
// round. This keeps the degree distribution balanced across threads despite
// the vertex range being globally sorted by degree. Vertices outside the
// shuffled prefix are left in place (identity permutation).
func zigzagShuffle(begin, end []types.VertexID, shuffleNum int, vertexNum types.VertexID) []types.VertexID {
	perm := make([]types.VertexID, vertexNum)
	for i := range perm {
		perm[i] = types.VertexID(i)
	}
	if len(begin) == 0 {
		return perm
	}
	if len(begin) < shuffleNum {
		shuffleNum = len(begin)
	}
	if shuffleNum <= 1 {
		return perm
	}
	shuffleEnd := end[shuffleNum-1]

	remaining := make([]types.VertexID, shuffleNum)
	cursor := make([]types.VertexID, shuffleNum)
	for i := 0; i < shuffleNum; i++ {
		cursor[i] = begin[i]
		remaining[i] = end[i] - begin[i]
	}

	var order []types.VertexID
	forward := true
	for {
		progressed := false
		if forward {
			for p := 0; p < shuffleNum; p++ {
				if remaining[p] > 0 {
					order = append(order, cursor[p])
					cursor[p]++
					remaining[p]--
					progressed = true
				}
			}
		} else {
			for p := shuffleNum - 1; p >= 0; p-- {
				if remaining[p] > 0 {
					order = append(order, cursor[p])
					cursor[p]++
					remaining[p]--
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
		forward = !forward
	}

	// order now lists, for each shuffled slot in turn, which *original*
	// vertex id currently occupies it; write that as new-slot -> old-id.
	for i, oldID := range order {
		perm[begin[0]+types.VertexID(i)] = oldID
	}
	_ = shuffleEnd
	return perm
}
