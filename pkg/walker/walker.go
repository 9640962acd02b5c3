// Package walker implements the page-aligned, cache-line-chunked walker
// array allocator and the work-stealing iteration primitive every walk
// phase uses to distribute its per-walker work across threads, ported
// from src/core/walker.hpp.
package walker

import (
	"sync/atomic"
	"unsafe"

	"github.com/flashmobwalk/flashmob/pkg/mempool"
	"github.com/flashmobwalk/flashmob/pkg/types"
)

const chunkSize = types.WalkerID(64)

type taskStatus int32

const (
	working taskStatus = iota
	complete
)

type threadState struct {
	curr, end atomic.Uint32
	status    atomic.Int32
}

// Manager partitions [0, maxEpochWalkerNum) into page-aligned per-socket
// ranges and cache-line-aligned per-thread sub-ranges, and drives
// ProcessWalkers' rotate-then-steal iteration over them.
type Manager struct {
	cfg       types.MultiThreadConfig
	pool      *mempool.Pool
	maxEpoch  types.WalkerID

	socketBegin, socketEnd []types.WalkerID
	threadBegin, threadEnd [][]types.WalkerID // [socket][thread]
	states                 [][]*threadState
}

// NewManager returns a Manager bound to cfg and backed by pool.
func NewManager(cfg types.MultiThreadConfig, pool *mempool.Pool) *Manager {
	return &Manager{cfg: cfg, pool: pool}
}

// Init computes every socket's and thread's walker range for an epoch of
// at most maxEpochWalkerNum walkers, matching WalkerManager::init.
func (m *Manager) Init(maxEpochWalkerNum types.WalkerID) {
	m.maxEpoch = maxEpochWalkerNum
	socketNum := m.cfg.SocketNum
	socketThreadNum := m.cfg.SocketThreadNum()

	pageWalkerNum := types.WalkerID(types.PageSize / 4)
	hintSocketWalkerNum := maxEpochWalkerNum / types.WalkerID(socketNum) / pageWalkerNum * pageWalkerNum

	m.socketBegin = make([]types.WalkerID, socketNum)
	m.socketEnd = make([]types.WalkerID, socketNum)
	remain := maxEpochWalkerNum
	for s := 0; s < socketNum; s++ {
		var n types.WalkerID
		if s+1 == socketNum {
			n = remain
		} else if hintSocketWalkerNum < remain {
			n = hintSocketWalkerNum
		} else {
			n = remain
		}
		remain -= n
		if s == 0 {
			m.socketBegin[s] = 0
		} else {
			m.socketBegin[s] = m.socketEnd[s-1]
		}
		m.socketEnd[s] = m.socketBegin[s] + n
	}

	chunkWalkerNum := types.WalkerID(types.MemoryDataAlignment / 4)
	hintThreadWalkerNum := maxEpochWalkerNum / types.WalkerID(m.cfg.ThreadNum) / chunkWalkerNum * chunkWalkerNum

	m.threadBegin = make([][]types.WalkerID, socketNum)
	m.threadEnd = make([][]types.WalkerID, socketNum)
	m.states = make([][]*threadState, socketNum)
	for s := 0; s < socketNum; s++ {
		m.threadBegin[s] = make([]types.WalkerID, socketThreadNum)
		m.threadEnd[s] = make([]types.WalkerID, socketThreadNum)
		m.states[s] = make([]*threadState, socketThreadNum)
		tRemain := m.socketEnd[s] - m.socketBegin[s]
		for th := 0; th < socketThreadNum; th++ {
			var n types.WalkerID
			if th+1 == socketThreadNum {
				n = tRemain
			} else if hintThreadWalkerNum < tRemain {
				n = hintThreadWalkerNum
			} else {
				n = tRemain
			}
			tRemain -= n
			if th == 0 {
				m.threadBegin[s][th] = m.socketBegin[s]
			} else {
				m.threadBegin[s][th] = m.threadEnd[s][th-1]
			}
			m.threadEnd[s][th] = m.threadBegin[s][th] + n
			m.states[s][th] = &threadState{}
		}
	}
}

// AllocArray returns a zeroed epoch-lifetime array of maxEpochWalkerNum
// elements of T, backed by the manager's own anonymous mmap region rather
// than the pool's regular make()-backed arena, matching
// alloc_walker_array's dedicated walker-array allocation path (released
// explicitly on Close rather than left to the garbage collector). Must be
// called after Init, since the array width depends on maxEpochWalkerNum.
func AllocArray[T any](m *Manager) ([]T, error) {
	var zero T
	width := int(unsafe.Sizeof(zero))
	b, err := m.pool.AllocMmap(width * int(m.maxEpoch))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), int(m.maxEpoch)), nil
}

// ProcessWalkers runs process(w) for every walker id in [0, activeWalkerNum)
// using workerID (the caller's own worker index, in [0, threadNum)) as the
// starting point of the steal rotation: the worker first drains its own
// thread's range, then walks the other threads of its own socket, then
// every other socket, wrapping back to itself — matching
// WalkerManager::process_walkers's (socket_offset, thread_offset) rotation,
// including marking its own range complete before the first steal.
func (m *Manager) ProcessWalkers(workerID int, process func(types.WalkerID), activeWalkerNum types.WalkerID) {
	m.ResetOwnRange(workerID, activeWalkerNum)
	m.StealLoop(workerID, process, activeWalkerNum)
}

// ResetOwnRange resets workerID's own thread state ahead of a
// ProcessWalkers round. Callers driving many goroutines concurrently must
// call this for every worker and barrier before any worker calls StealLoop,
// matching the OMP barrier between the original's per-thread reset and its
// steal loop.
func (m *Manager) ResetOwnRange(workerID int, activeWalkerNum types.WalkerID) {
	localSocket := m.cfg.SocketID(workerID)
	localThread := m.cfg.SocketOffset(workerID)
	own := m.states[localSocket][localThread]
	own.curr.Store(uint32(m.threadBegin[localSocket][localThread]))
	end := m.threadEnd[localSocket][localThread]
	if end > activeWalkerNum {
		end = activeWalkerNum
	}
	own.end.Store(uint32(end))
	own.status.Store(int32(working))
}

// StealLoop runs the rotate-then-steal loop for workerID, assuming every
// worker's range has already been reset via ResetOwnRange.
func (m *Manager) StealLoop(workerID int, process func(types.WalkerID), activeWalkerNum types.WalkerID) {
	socketNum := m.cfg.SocketNum
	socketThreadNum := m.cfg.SocketThreadNum()
	localSocket := m.cfg.SocketID(workerID)
	localThread := m.cfg.SocketOffset(workerID)

	for sOff := 0; sOff < socketNum; sOff++ {
		for tOff := 0; tOff < socketThreadNum; tOff++ {
			socket := (localSocket + sOff) % socketNum
			thread := (localThread + tOff) % socketThreadNum
			ts := m.states[socket][thread]
			for taskStatus(ts.status.Load()) == working {
				begin := types.WalkerID(ts.curr.Add(uint32(chunkSize))) - chunkSize
				if begin >= types.WalkerID(ts.end.Load()) {
					break
				}
				workEnd := begin + chunkSize
				if workEnd > types.WalkerID(ts.end.Load()) {
					workEnd = types.WalkerID(ts.end.Load())
				}
				for w := begin; w < workEnd; w++ {
					process(w)
				}
			}
			if sOff == 0 && tOff == 0 {
				ts.status.Store(int32(complete))
			}
		}
	}
}

// SocketRange returns the walker id range assigned to socket s.
func (m *Manager) SocketRange(s int) (types.WalkerID, types.WalkerID) {
	return m.socketBegin[s], m.socketEnd[s]
}

// ThreadRanges returns the per-(socket,thread) walker ranges computed by
// Init, for callers (e.g. pkg/message.NewManager) that need to lay out
// per-thread scratch space identically to the walker arrays.
func (m *Manager) ThreadRanges() (begin, end [][]types.WalkerID) {
	return m.threadBegin, m.threadEnd
}
