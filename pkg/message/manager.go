package message

import (
	"github.com/flashmobwalk/flashmob/pkg/graph"
	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

// Manager owns one Task per (socket, thread), grouped so that
// AllTasks can hand the walk orchestrator every task touching a given
// partition, matching MessageManager.
type Manager struct {
	g          *graph.Store
	cfg        types.MultiThreadConfig
	isNode2vec bool
	tasks      [][]*Task // [socket][thread]
}

// NewManager builds a Manager whose tasks span [0, maxEpochWalkerNum),
// sliced per the same thread ranges a walker.Manager would compute for the
// same topology, so the two stay aligned.
func NewManager(g *graph.Store, cfg types.MultiThreadConfig, pool *mempool.Pool, threadBegin, threadEnd [][]types.WalkerID, isNode2vec bool) (*Manager, error) {
	m := &Manager{g: g, cfg: cfg, isNode2vec: isNode2vec}
	partitionNum := len(g.Layout.PartitionBegin)
	socketNum := len(threadBegin)
	m.tasks = make([][]*Task, socketNum)
	for s := 0; s < socketNum; s++ {
		m.tasks[s] = make([]*Task, len(threadBegin[s]))
		for th := range threadBegin[s] {
			task, err := NewTask(g, pool, threadBegin[s][th], threadEnd[s][th], partitionNum, isNode2vec)
			if err != nil {
				return nil, err
			}
			m.tasks[s][th] = task
		}
	}
	return m, nil
}

// Shuffle runs Prepare+Shuffle for every task, truncating the tail
// thread's range to activeWalkerNum when the final epoch is smaller than
// the array's allocated width, matching MessageManager::shuffle's reverse
// truncation pass.
func (m *Manager) Shuffle(origin []types.VertexID, states []types.WalkerState, activeWalkerNum types.WalkerID) {
	for s := len(m.tasks) - 1; s >= 0; s-- {
		for th := len(m.tasks[s]) - 1; th >= 0; th-- {
			t := m.tasks[s][th]
			if t.originBegin >= activeWalkerNum {
				// entirely beyond the active window this epoch; skip
				t.originEnd = t.originBegin
				t.partitionIDs = t.partitionIDs[:0]
				continue
			}
			if t.originEnd > activeWalkerNum {
				t.originEnd = activeWalkerNum
				t.partitionIDs = t.partitionIDs[:t.originEnd-t.originBegin]
			}
		}
	}
	for s := range m.tasks {
		for th := range m.tasks[s] {
			t := m.tasks[s][th]
			if t.originBegin >= t.originEnd {
				continue
			}
			t.Prepare(origin)
			t.Shuffle(origin, states)
		}
	}
}

// Update writes every task's shuffled results back into target.
func (m *Manager) Update(target []types.VertexID) {
	for s := range m.tasks {
		for th := range m.tasks[s] {
			t := m.tasks[s][th]
			if t.originBegin >= t.originEnd {
				continue
			}
			t.Update(target)
		}
	}
}

// AllTasks returns every (socket, thread) task. Any of them may hold
// walkers currently in any partition, so the walk orchestrator calls
// Bucket(p) on every task to collect partition p's full message set,
// which a single claiming thread then processes (the
// single-writer-per-partition invariant).
func (m *Manager) AllTasks() []*Task {
	var out []*Task
	for s := range m.tasks {
		for th := range m.tasks[s] {
			out = append(out, m.tasks[s][th])
		}
	}
	return out
}
