// Package graph implements the degree-sorted, partition-replicated CSR
// graph store, ported from src/core/graph.hpp. Vertices are compacted into
// a dense [0, V) range in first-seen order, then reordered by non-increasing
// degree (counting sort) and handed to pkg/partitioner for partition and
// socket assignment. Make gives every socket an adjacency entry, and all of
// those entries share the same header and edge slices; socket 0 is the
// canonical view, and test suites and query methods always read through it.
package graph

import (
	"fmt"
	"sort"

	"github.com/flashmobwalk/flashmob/pkg/bloom"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// AdjList is one vertex's adjacency header: how many neighbors it has, and
// where its edge list begins in the socket's edge arena.
type AdjList struct {
	Degree uint32
	Begin  types.EdgeID
}

// Store is a fully-built, partitioned graph ready for sampling.
type Store struct {
	V          types.VertexID
	E          types.EdgeID
	Undirected bool

	// adjLists and edges hold one entry per socket (after Make, every entry
	// is the same slice); socket 0 is canonical.
	adjLists [][]AdjList
	edges    [][]types.VertexID

	// IDToName maps a compacted vertex id back to the caller's original
	// identifier (as first seen in the input edge list).
	IDToName []uint32

	Layout *partitioner.Layout

	bloom          *bloom.Filter
	neighborSorted bool
}

// rawEdge is an edge in original (pre-compaction) vertex naming.
type rawEdge struct{ src, dst uint32 }

// Load reads every edge from r, compacts vertex ids into a dense [0, V)
// range in first-seen order, and doubles the edge list when undirected is
// true. Load must be followed by Make before the store can be queried. The
// adjacency header and edge arena it builds are carved out of pool, per the
// ownership invariant that the memory pool exclusively owns every
// allocation whose lifetime extends past graph construction.
func (s *Store) Load(r EdgeReader, undirected bool, pool *mempool.Pool) error {
	s.Undirected = undirected
	name2id := make(map[uint32]types.VertexID)
	var raw []rawEdge

	addName := func(name uint32) types.VertexID {
		if id, ok := name2id[name]; ok {
			return id
		}
		id := types.VertexID(len(name2id))
		name2id[name] = id
		s.IDToName = append(s.IDToName, name)
		return id
	}

	for {
		src, dst, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		u := addName(src)
		v := addName(dst)
		raw = append(raw, rawEdge{uint32(u), uint32(v)})
		if undirected {
			raw = append(raw, rawEdge{uint32(v), uint32(u)})
		}
	}

	s.V = types.VertexID(len(name2id))
	s.E = types.EdgeID(len(raw))

	degree := make([]uint32, s.V)
	for _, e := range raw {
		degree[e.src]++
	}

	order := countingSortDescending(degree)
	newID := make([]types.VertexID, s.V)
	for newID_, oldID := range order {
		newID[oldID] = types.VertexID(newID_)
	}

	sortedDegree := make([]uint32, s.V)
	newIDToName := make([]uint32, s.V)
	for oldID, name := range s.IDToName {
		n := newID[oldID]
		sortedDegree[n] = degree[oldID]
		newIDToName[n] = name
	}
	s.IDToName = newIDToName

	for i := range raw {
		raw[i].src = uint32(newID[raw[i].src])
		raw[i].dst = uint32(newID[raw[i].dst])
	}

	adj0, err := mempool.Alloc[AdjList](pool, int(s.V), mempool.Interleaved())
	if err != nil {
		return err
	}
	s.adjLists = [][]AdjList{adj0}
	var begin types.EdgeID
	for v := types.VertexID(0); v < s.V; v++ {
		s.adjLists[0][v] = AdjList{Degree: sortedDegree[v], Begin: begin}
		begin += types.EdgeID(sortedDegree[v])
	}

	edges0, err := mempool.Alloc[types.VertexID](pool, int(s.E), mempool.Interleaved())
	if err != nil {
		return err
	}
	s.edges = [][]types.VertexID{edges0}
	cursor := make([]types.EdgeID, s.V)
	for v := range cursor {
		cursor[v] = s.adjLists[0][v].Begin
	}
	for _, e := range raw {
		s.edges[0][cursor[e.src]] = types.VertexID(e.dst)
		cursor[e.src]++
	}
	return nil
}

// countingSortDescending returns a permutation `order` such that
// degree[order[0]] >= degree[order[1]] >= ... mirroring graph.hpp's
// counting_sort; here it is a stable sort.SliceStable by non-increasing
// degree, so equal-degree vertices keep their first-seen order.
func countingSortDescending(degree []uint32) []types.VertexID {
	n := len(degree)
	order := make([]types.VertexID, n)
	for i := range order {
		order[i] = types.VertexID(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return degree[order[i]] > degree[order[j]]
	})
	return order
}

// Make partitions the loaded graph according to hint and installs the
// resulting adjacency for socketNum sockets, every socket's entry sharing
// one header slice and one edge slice, mirroring graph.hpp's
// make(). threadNum is forwarded to the partitioner so it can bound
// shuffle_partition_num by the walk thread count, per spec. The rewritten
// adjacency header and edge arena are carved out of pool, the
// same pool Load used, so the whole CSR shares one owner and one lifetime.
func (s *Store) Make(hint partitioner.GraphHint, socketNum, threadNum int, pool *mempool.Pool) error {
	if s.V == 0 {
		return fmt.Errorf("%w: Make called before Load", types.ErrInvalidInput)
	}
	layout := partitioner.Apply(s.V, hint, socketNum, threadNum)
	s.Layout = layout

	// Compose the shuffle permutation into the vertex numbering: newID2 =
	// position of old-id in Permutation (Permutation[newSlot] = oldID).
	pos := make([]types.VertexID, s.V)
	for newSlot, oldID := range layout.Permutation {
		pos[oldID] = types.VertexID(newSlot)
	}

	oldAdj := s.adjLists[0]
	oldEdges := s.edges[0]

	newAdj, err := mempool.Alloc[AdjList](pool, int(s.V), mempool.Interleaved())
	if err != nil {
		return err
	}
	newIDToName := make([]uint32, s.V)
	for oldID := types.VertexID(0); oldID < s.V; oldID++ {
		newID := pos[oldID]
		newAdj[newID] = AdjList{Degree: oldAdj[oldID].Degree}
		newIDToName[newID] = s.IDToName[oldID]
	}
	var begin types.EdgeID
	for v := range newAdj {
		newAdj[v].Begin = begin
		begin += types.EdgeID(newAdj[v].Degree)
	}
	newEdges, err := mempool.Alloc[types.VertexID](pool, int(s.E), mempool.Interleaved())
	if err != nil {
		return err
	}
	cursor := make([]types.EdgeID, s.V)
	for v := range cursor {
		cursor[v] = newAdj[v].Begin
	}
	for oldSrc := types.VertexID(0); oldSrc < s.V; oldSrc++ {
		newSrc := pos[oldSrc]
		old := oldAdj[oldSrc]
		for e := types.EdgeID(0); e < types.EdgeID(old.Degree); e++ {
			dst := oldEdges[old.Begin+e]
			newEdges[cursor[newSrc]] = pos[dst]
			cursor[newSrc]++
		}
	}

	s.adjLists = make([][]AdjList, socketNum)
	s.edges = make([][]types.VertexID, socketNum)
	for sock := 0; sock < socketNum; sock++ {
		s.adjLists[sock] = newAdj
		s.edges[sock] = newEdges
	}
	s.IDToName = newIDToName
	return nil
}

// NewFromAdjacency builds a single-socket Store directly from a prebuilt
// adjacency header/edge arena pair, bypassing Load/Make. Used by the
// micro-benchmark harness to stand up synthetic uniform-degree graphs
// without going through edge-list compaction and partitioning.
func NewFromAdjacency(vertexNum types.VertexID, adj []AdjList, edges []types.VertexID) *Store {
	return &Store{
		V:        vertexNum,
		E:        types.EdgeID(len(edges)),
		adjLists: [][]AdjList{adj},
		edges:    [][]types.VertexID{edges},
	}
}

// Degree returns v's out-degree, reading socket 0's canonical view.
func (s *Store) Degree(v types.VertexID) uint32 { return s.adjLists[0][v].Degree }

// DegreePrefixSum returns a length-(V+1) array where entry i holds the
// total out-degree of vertices [0, i), matching graph.hpp's
// degree_prefix_sum, the input PlanGroup uses to compute a range's total
// edge count without rescanning adjacency headers.
func (s *Store) DegreePrefixSum() []types.EdgeID {
	sums := make([]types.EdgeID, s.V+1)
	adj := s.adjLists[0]
	for v := types.VertexID(0); v < s.V; v++ {
		sums[v+1] = sums[v] + types.EdgeID(adj[v].Degree)
	}
	return sums
}

// Neighbors returns v's adjacency list, reading the given socket's copy (or
// socket 0 if socket is out of range, so callers that don't care about NUMA
// locality can pass 0).
func (s *Store) Neighbors(v types.VertexID, socket int) []types.VertexID {
	if socket < 0 || socket >= len(s.adjLists) {
		socket = 0
	}
	a := s.adjLists[socket][v]
	return s.edges[socket][a.Begin : a.Begin+types.EdgeID(a.Degree)]
}

// VertexPartition returns which partition v belongs to in O(1), matching
// get_vertex_partition_id: a vertex's degree group is its high bits
// (v >> GroupBits), and within that group a partition is a fixed-size
// slice of the low bits, offset by every earlier group's partition count.
func (s *Store) VertexPartition(v types.VertexID) types.PartitionID {
	groups := s.Layout.Groups
	groupIdx := v >> s.Layout.GroupBits
	if int(groupIdx) >= len(groups) {
		groupIdx = types.VertexID(len(groups) - 1)
	}
	g := groups[groupIdx]
	groupMask := (types.VertexID(1) << s.Layout.GroupBits) - 1
	return types.PartitionID((v&groupMask)>>g.PartitionBits) + g.PartitionOffset
}

// PrepareNeighborQuery sorts each vertex's adjacency list ascending by
// neighbor id and builds a Bloom filter over every directed edge, needed
// before node2vec's HasNeighbor test can run. Mirrors
// prepare_neighbor_query.
func (s *Store) PrepareNeighborQuery() {
	for sock := range s.adjLists {
		adj := s.adjLists[sock]
		edges := s.edges[sock]
		for v := range adj {
			a := adj[v]
			sort.Slice(edges[a.Begin:a.Begin+types.EdgeID(a.Degree)], func(i, j int) bool {
				return edges[a.Begin+types.EdgeID(i)] < edges[a.Begin+types.EdgeID(j)]
			})
		}
	}
	itemCount := s.E
	if s.Undirected {
		itemCount /= 2
	}
	s.bloom = bloom.New(itemCount)
	adj := s.adjLists[0]
	edges := s.edges[0]
	for v := range adj {
		a := adj[v]
		for e := types.EdgeID(0); e < types.EdgeID(a.Degree); e++ {
			s.bloom.Insert(uint32(v), uint32(edges[a.Begin+e]))
		}
	}
	s.neighborSorted = true
}

// HasNeighbor reports whether dst is a direct successor of src, using the
// Bloom filter to reject most negatives in O(1) and falling back to a
// binary search over the (now sorted) adjacency list to confirm positives.
func (s *Store) HasNeighbor(src, dst types.VertexID, socket int) bool {
	if s.bloom == nil || !s.bloom.MayContain(uint32(src), uint32(dst)) {
		return false
	}
	nbrs := s.Neighbors(src, socket)
	i := sort.Search(len(nbrs), func(i int) bool { return nbrs[i] >= dst })
	return i < len(nbrs) && nbrs[i] == dst
}

// MemorySize returns the bytes of adjacency headers (counted at 12 bytes
// each) and edge arenas summed over every socket entry, mirroring
// get_memory_size / get_csr_size. Socket entries that share one slice are
// each counted.
func (s *Store) MemorySize() uintptr {
	var total uintptr
	for sock := range s.adjLists {
		total += uintptr(len(s.adjLists[sock])) * 12 // AdjList{uint32,uint64} packed
		total += uintptr(len(s.edges[sock])) * 4     // VertexID
	}
	return total
}
