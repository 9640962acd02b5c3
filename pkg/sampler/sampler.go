// Package sampler implements the four edge-sampling strategies the
// planner chooses between per partition, ported from src/core/sampler.hpp.
package sampler

import (
	"fmt"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/rng"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// Sampler draws one outgoing edge of v uniformly at random.
type Sampler interface {
	Sample(v types.VertexID, r *rng.Source) (types.VertexID, error)
	Class() types.SamplerClass
}

// edgeBufferLength returns how many slots an exclusive buffer needs for a
// vertex of the given degree: at least 8, and one more than a power of
// two degree so refills don't land on an exact boundary, matching
// get_edge_buffer_length.
func edgeBufferLength(degree uint32) uint32 {
	l := degree
	if l < 8 {
		l = 8
	}
	if degree >= 8 && degree&(degree-1) == 0 {
		l++
	}
	return l
}

// Direct samples by drawing a uniform index into the vertex's real
// adjacency list on every call. Works for any partition but touches
// whatever cache line the degree happens to put the edge in.
type Direct struct {
	g          *graph.Store
	socket     int
	vertexBeg  types.VertexID
	vertexEnd  types.VertexID
}

func NewDirect(g *graph.Store, socket int, vb, ve types.VertexID) *Direct {
	return &Direct{g: g, socket: socket, vertexBeg: vb, vertexEnd: ve}
}

func (s *Direct) Class() types.SamplerClass { return types.ClassDirect }

func (s *Direct) Sample(v types.VertexID, r *rng.Source) (types.VertexID, error) {
	nbrs := s.g.Neighbors(v, s.socket)
	if len(nbrs) == 0 {
		return 0, fmt.Errorf("%w: vertex %d", types.ErrIsolatedVertex, v)
	}
	return nbrs[r.Gen(uint64(len(nbrs)))], nil
}

// UniformDegreeDirect is Direct specialized for a partition whose every
// vertex has the same degree: the random index is drawn against that
// shared degree instead of the vertex's own degree. The neighbor slice is
// still read through the vertex's adjacency header.
type UniformDegreeDirect struct {
	g         *graph.Store
	socket    int
	vertexBeg types.VertexID
	degree    uint32
}

func NewUniformDegreeDirect(g *graph.Store, socket int, vb types.VertexID, degree uint32) *UniformDegreeDirect {
	return &UniformDegreeDirect{g: g, socket: socket, vertexBeg: vb, degree: degree}
}

func (s *UniformDegreeDirect) Class() types.SamplerClass { return types.ClassUniformDegreeDirect }

func (s *UniformDegreeDirect) Sample(v types.VertexID, r *rng.Source) (types.VertexID, error) {
	if s.degree == 0 {
		return 0, fmt.Errorf("%w: vertex %d", types.ErrIsolatedVertex, v)
	}
	nbrs := s.g.Neighbors(v, s.socket)
	return nbrs[r.Gen(uint64(s.degree))], nil
}

// AdjHint is one degree bucket of a SimilarDegreeDirect sampler.
type AdjHint struct {
	VertexBegin, VertexEnd types.VertexID
	Degree                 uint32
}

// SimilarDegreeDirect handles a partition whose vertices span at most
// types.SimilarDegreeDirectSamplerMaxHintNum distinct degrees by keeping a
// small sorted hint table and linear-scanning it to find the bucket a
// queried vertex falls in.
type SimilarDegreeDirect struct {
	g      *graph.Store
	socket int
	hints  []AdjHint
}

// Valid reports whether a partition qualifies for SimilarDegreeDirect:
// its degree spread (max minus min) must not exceed the hint table size, and its adjacency
// data must not fit comfortably in L2 cache (otherwise Direct or
// UniformDegreeDirect are preferable), matching SimilarDegreeDirectSampler::valid.
func Valid(minDegree, maxDegree uint32, partitionEdgeNum types.EdgeID, l2CacheSize int) bool {
	if maxDegree == minDegree {
		return false // UniformDegreeDirect already covers this case
	}
	if int(maxDegree-minDegree) > types.SimilarDegreeDirectSamplerMaxHintNum {
		return false
	}
	dataSize := partitionEdgeNum * 4
	return uint64(dataSize) >= uint64(l2CacheSize)
}

// NewSimilarDegreeDirect builds a sampler from hints, which must be sorted
// by non-increasing degree (the same order the partition's vertices were
// laid out in).
func NewSimilarDegreeDirect(g *graph.Store, socket int, hints []AdjHint) *SimilarDegreeDirect {
	return &SimilarDegreeDirect{g: g, socket: socket, hints: hints}
}

func (s *SimilarDegreeDirect) Class() types.SamplerClass { return types.ClassSimilarDegreeDirect }

func (s *SimilarDegreeDirect) Sample(v types.VertexID, r *rng.Source) (types.VertexID, error) {
	for _, h := range s.hints {
		if v >= h.VertexBegin && v < h.VertexEnd {
			if h.Degree == 0 {
				return 0, fmt.Errorf("%w: vertex %d", types.ErrIsolatedVertex, v)
			}
			nbrs := s.g.Neighbors(v, s.socket)
			return nbrs[r.Gen(uint64(h.Degree))], nil
		}
	}
	return 0, fmt.Errorf("%w: vertex %d not covered by any hint", types.ErrInvalidInput, v)
}

// edgeBufferHeader tracks one vertex's live window into its ring buffer.
type edgeBufferHeader struct {
	head, end uint32
}

// ExclusiveBuffer pre-samples a ring buffer of candidate edges per vertex
// and serves Sample calls out of that buffer, refilling only the
// just-consumed slots when it's exhausted. This trades extra memory and a
// slightly biased-looking local window for avoiding a random adjacency
// dereference on every single sample.
type ExclusiveBuffer struct {
	g          *graph.Store
	socket     int
	vertexBeg  types.VertexID
	headers    []edgeBufferHeader
	units      []types.VertexID
	bufferLens []uint32
}

// InitExclusiveBuffer lays out the ring buffers for vertices [vb, ve) of g:
// a first pass sums every vertex's buffer length, then the headers and the
// buffer arena are each taken from pool with one mempool.Alloc call,
// matching ExclusiveBufferSampler::init.
func InitExclusiveBuffer(g *graph.Store, socket int, vb, ve types.VertexID, pool *mempool.Pool, placement mempool.Placement) (*ExclusiveBuffer, error) {
	n := int(ve - vb)
	bufferLens := make([]uint32, n)
	var bufferUnitNum uint32
	for i := 0; i < n; i++ {
		bufferLens[i] = edgeBufferLength(g.Degree(vb + types.VertexID(i)))
		bufferUnitNum += bufferLens[i]
	}

	headers, err := mempool.Alloc[edgeBufferHeader](pool, n, placement)
	if err != nil {
		return nil, err
	}
	units, err := mempool.Alloc[types.VertexID](pool, int(bufferUnitNum), placement)
	if err != nil {
		return nil, err
	}

	var end uint32
	for i := 0; i < n; i++ {
		end += bufferLens[i]
		headers[i] = edgeBufferHeader{head: end, end: end}
	}

	eb := &ExclusiveBuffer{g: g, socket: socket, vertexBeg: vb, headers: headers, units: units, bufferLens: bufferLens}
	return eb, nil
}

func (s *ExclusiveBuffer) Class() types.SamplerClass { return types.ClassExclusiveBuffer }

func (s *ExclusiveBuffer) fill(idx int, r *rng.Source) error {
	nbrs := s.g.Neighbors(s.vertexBeg+types.VertexID(idx), s.socket)
	if len(nbrs) == 0 {
		return fmt.Errorf("%w: vertex %d", types.ErrIsolatedVertex, s.vertexBeg+types.VertexID(idx))
	}
	h := &s.headers[idx]
	bufLen := s.bufferLens[idx]
	refillBegin := h.end - bufLen
	for i := refillBegin; i < h.head; i++ {
		s.units[i] = nbrs[r.Gen(uint64(len(nbrs)))]
	}
	h.head = refillBegin
	return nil
}

func (s *ExclusiveBuffer) Sample(v types.VertexID, r *rng.Source) (types.VertexID, error) {
	idx := int(v - s.vertexBeg)
	h := &s.headers[idx]
	if h.head >= h.end {
		if err := s.fill(idx, r); err != nil {
			return 0, err
		}
	}
	u := s.units[h.head]
	h.head++
	return u, nil
}

// Reset flushes every vertex's buffer back to empty, used only by the
// micro-benchmark harness between timed trials so every trial starts from
// a cold buffer.
func (s *ExclusiveBuffer) Reset() {
	for i := range s.headers {
		s.headers[i].head = s.headers[i].end
	}
}
