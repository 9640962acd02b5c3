package walk

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/partitioner"
	"github.com/flashmobwalk/flashmob/pkg/sampler"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// distStats summarizes a per-vertex distance sample against the three
// thresholds a convergence property names: avg, median, p99.
type distStats struct {
	avg, median, p99 float64
}

func summarize(xs []float64) distStats {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	var sum float64
	for _, x := range sorted {
		sum += x
	}
	idx := func(frac float64) float64 {
		i := int(frac * float64(len(sorted)-1))
		return sorted[i]
	}
	return distStats{
		avg:    sum / float64(len(sorted)),
		median: idx(0.5),
		p99:    idx(0.99),
	}
}

// TestUniformWalkTransitionMatrixConvergesToDegreeNormalizedAdjacency
// samples a large number of single-step transitions from a small directed
// graph and checks the empirical next-vertex distribution at each vertex
// converges to 1/degree over its true out-neighbors, the transition law
// DirectSampler is supposed to implement exactly.
func TestUniformWalkTransitionMatrixConvergesToDegreeNormalizedAdjacency(t *testing.T) {
	cfg := types.MultiThreadConfig{ThreadNum: 2, SocketNum: 1}
	pool := mempool.New(cfg)
	// degrees: 0->3, 1->2, 2->1, 3->3. No isolated vertices.
	text := "0 1\n0 2\n0 3\n1 0\n1 2\n2 3\n3 0\n3 1\n3 2\n"
	s := &graph.Store{}
	require.NoError(t, s.Load(graph.NewTextReader(strings.NewReader(text)), false, pool))
	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 3, PartitionNum: 1, SamplerClasses: []types.SamplerClass{types.ClassDirect}},
	}}
	require.NoError(t, s.Make(hint, 1, cfg.ThreadNum, pool))

	samplers := []sampler.Sampler{sampler.NewDirect(s, 0, 0, s.V)}
	e := New(s, cfg, pool, samplers)
	require.NoError(t, e.Prepare(20000, 30, 1<<24))

	output := make([]types.VertexID, 20000*30)
	var emitted types.WalkerID
	for e.HasNextEpoch() {
		n, err := e.Walk(output)
		require.NoError(t, err)
		emitted += n
	}

	counts := make(map[types.VertexID]map[types.VertexID]int)
	totals := make(map[types.VertexID]int)
	for w := types.WalkerID(0); w < emitted; w++ {
		row := output[int(w)*30 : int(w+1)*30]
		for step := 1; step < 30; step++ {
			cur, next := row[step-1], row[step]
			if counts[cur] == nil {
				counts[cur] = make(map[types.VertexID]int)
			}
			counts[cur][next]++
			totals[cur]++
		}
	}

	var bcDist, tvDist []float64
	for v := types.VertexID(0); v < s.V; v++ {
		nbrs := s.Neighbors(v, 0)
		if len(nbrs) == 0 || totals[v] == 0 {
			continue
		}
		expected := 1.0 / float64(len(nbrs))
		var coeff, tvSum float64
		for _, n := range nbrs {
			emp := float64(counts[v][n]) / float64(totals[v])
			coeff += math.Sqrt(emp * expected)
			tvSum += math.Abs(emp - expected)
		}
		coeff = math.Min(coeff, 1.0)
		bcDist = append(bcDist, -math.Log(coeff))
		tvDist = append(tvDist, 0.5*tvSum)
	}
	require.NotEmpty(t, bcDist)

	bc := summarize(bcDist)
	tv := summarize(tvDist)
	assert.Less(t, bc.avg, 0.005, "Bhattacharyya avg")
	assert.Less(t, bc.median, 0.005, "Bhattacharyya median")
	assert.Less(t, bc.p99, 0.015, "Bhattacharyya p99")
	assert.Less(t, tv.avg, 0.01, "total-variation avg")
	assert.Less(t, tv.median, 0.01, "total-variation median")
	assert.Less(t, tv.p99, 0.03, "total-variation p99")
}

// TestNode2VecTransitionMatrixMatchesBiasedFormula samples walks of
// length 3 — just enough for one genuinely second-order step, since the
// first step always has previous == current and so degenerates to
// uniform sampling — and checks the empirical distribution over a
// (prev, curr) pair against node2vec's weighted formula: 1/p to return
// to prev, 1 to any other neighbor of prev, 1/q otherwise.
func TestNode2VecTransitionMatrixMatchesBiasedFormula(t *testing.T) {
	cfg := types.MultiThreadConfig{ThreadNum: 1, SocketNum: 1}
	pool := mempool.New(cfg)
	// Undirected load doubles every edge; chosen so some pair (prev, curr)
	// has a neighbor set straddling all three node2vec weight classes.
	text := "0 1\n1 2\n2 3\n3 4\n4 0\n1 3\n0 2\n"
	s := &graph.Store{}
	require.NoError(t, s.Load(graph.NewTextReader(strings.NewReader(text)), true, pool))
	hint := partitioner.GraphHint{Groups: []partitioner.GroupHint{
		{PartitionBits: 3, PartitionNum: 1, SamplerClasses: []types.SamplerClass{types.ClassDirect}},
	}}
	require.NoError(t, s.Make(hint, 1, 1, pool))

	samplers := []sampler.Sampler{sampler.NewDirect(s, 0, 0, s.V)}
	e := New(s, cfg, pool, samplers)
	e.SetNode2Vec(0.5, 2.0)
	require.NoError(t, e.Prepare(20000, 3, 1<<24))

	prev, curr := findBiasedTriple(t, s)

	output := make([]types.VertexID, 20000*3)
	var emitted types.WalkerID
	for e.HasNextEpoch() {
		n, err := e.Walk(output)
		require.NoError(t, err)
		emitted += n
	}

	counts := make(map[types.VertexID]int)
	var total int
	for w := types.WalkerID(0); w < emitted; w++ {
		row := output[int(w)*3 : int(w+1)*3]
		if row[0] != prev || row[1] != curr {
			continue
		}
		counts[row[2]]++
		total++
	}
	require.Greater(t, total, 0, "no walker passed through (prev=%d, curr=%d)", prev, curr)

	candidates := s.Neighbors(curr, 0)
	var weightSum float64
	weight := make(map[types.VertexID]float64, len(candidates))
	for _, c := range candidates {
		var w float64
		switch {
		case c == prev:
			w = 1.0 / 0.5
		case s.HasNeighbor(prev, c, 0):
			w = 1.0
		default:
			w = 1.0 / 2.0
		}
		weight[c] = w
		weightSum += w
	}

	var sqL2 float64
	for _, c := range candidates {
		expected := weight[c] / weightSum
		emp := float64(counts[c]) / float64(total)
		sqL2 += (emp - expected) * (emp - expected)
	}
	assert.Less(t, sqL2, 10.0, "squared L2 distance between empirical and biased transition distributions")
}

// findBiasedTriple locates a (prev, curr) pair where curr has a neighbor
// equal to prev, a neighbor shared with prev, and a neighbor not shared
// with prev, so the sampled triple exercises all three node2vec weight
// classes rather than degenerating to a uniform special case.
func findBiasedTriple(t *testing.T, s *graph.Store) (prev, curr types.VertexID) {
	t.Helper()
	for p := types.VertexID(0); p < s.V; p++ {
		for _, c := range s.Neighbors(p, 0) {
			var sharedOther, distinctOther bool
			for _, cand := range s.Neighbors(c, 0) {
				if cand == p {
					continue
				}
				if s.HasNeighbor(p, cand, 0) {
					sharedOther = true
				} else {
					distinctOther = true
				}
			}
			if sharedOther && distinctOther {
				return p, c
			}
		}
	}
	t.Fatal("fixture graph has no (prev, curr) pair exercising every node2vec weight class")
	return 0, 0
}
