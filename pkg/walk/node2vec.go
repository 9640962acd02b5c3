package walk

import (
	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// node2vecParams holds the precomputed constants node2vecAccept needs on
// every call, matching WalkManager::set_node2vec.
type node2vecParams struct {
	p, q                                   float64
	divP, divQ                             float64
	min1P, min1Q                           float64
	upperBound                             float64
}

func newNode2vecParams(p, q float64) node2vecParams {
	divP, divQ := 1/p, 1/q
	min1P := min64(1, divP)
	min1Q := min64(1, divQ)
	upperBound := max64(1, max64(divP, divQ))
	return node2vecParams{p: p, q: q, divP: divP, divQ: divQ, min1P: min1P, min1Q: min1Q, upperBound: upperBound}
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// accept implements node2vec's second-order rejection test: if the
// candidate returns to the walker's vertex from two steps ago, accept
// with probability 1/p; otherwise accept outright with probability up to
// min(1,1/q); otherwise accept with probability 1 if the candidate is a
// direct neighbor of the vertex two steps ago, else with probability 1/q.
// Matches WalkManager::node2vec_accept exactly.
func (np node2vecParams) accept(g *graph.Store, prev, curr, next types.VertexID, prob float64, socket int) bool {
	if next == prev {
		return prob <= np.divP
	}
	if prob <= np.min1Q {
		return true
	}
	var val float64
	if g.HasNeighbor(prev, next, socket) {
		val = 1.0
	} else {
		val = np.divQ
	}
	return prob <= val
}
