// Package mempool provides the engine's NUMA-aware-in-spirit allocator.
// It ports the two-phase "count then carve" pattern of include/memory.hpp
// (MemoryCounter / Memory / MemoryPool): a first pass tallies how much
// space a component needs via Counter, then a second pass carves that much
// out of one real backing allocation via Pool.Alloc, so that every
// sub-allocation of a component shares one arena and one lifetime.
//
// True numa_alloc_onnode / numa_tonode_memory placement requires cgo, which
// this module does not use (see other_examples/SeleniaProject-Orizon's pure
// -Go NUMA simulation for the precedent). Pool instead tracks, per
// allocation, which logical socket it was placed against, so placement can
// still be asserted on in tests and InvalidPlacement can be a real runtime
// error rather than dead code.
package mempool

import (
	"fmt"
	"unsafe"

	"github.com/flashmobwalk/flashmob/pkg/types"
	"golang.org/x/sys/unix"
)

// Placement selects where an allocation should be steered.
type Placement struct {
	kind placementKind
	node int
}

type placementKind int

const (
	kindIgnore placementKind = iota
	kindInterleaved
	kindNode
)

// Ignore requests no NUMA steering.
func Ignore() Placement { return Placement{kind: kindIgnore} }

// Interleaved requests round-robin placement across all sockets.
func Interleaved() Placement { return Placement{kind: kindInterleaved} }

// Node requests placement on a specific logical socket.
func Node(socket int) Placement { return Placement{kind: kindNode, node: socket} }

// record remembers one live allocation's size and placement for
// accounting, mirroring MemoryPool's vector<Memory*>.
type record struct {
	size      uintptr
	placement Placement
	mmapped   []byte // non-nil if backed by an unix.Mmap region
}

// Pool owns every allocation handed out through Alloc and releases them
// together on Close, mirroring MemoryPool's all-at-once free.
type Pool struct {
	cfg     types.MultiThreadConfig
	records []record
}

// New returns a pool bound to the given topology.
func New(cfg types.MultiThreadConfig) *Pool {
	return &Pool{cfg: cfg}
}

// WithNuma reports whether this pool's topology allows Node placement,
// letting callers choose Node(socket) vs. Ignore() without duplicating
// MultiThreadConfig's own WithNuma check.
func (p *Pool) WithNuma() bool {
	return p.cfg.WithNuma()
}

func (p *Pool) validate(pl Placement) error {
	if pl.kind != kindNode {
		return nil
	}
	if !p.cfg.WithNuma() {
		return fmt.Errorf("%w: numa placement requested on a system without numa support", types.ErrInvalidPlacement)
	}
	if pl.node < 0 || pl.node >= p.cfg.SocketNum {
		return fmt.Errorf("%w: socket %d out of range [0,%d)", types.ErrInvalidPlacement, pl.node, p.cfg.SocketNum)
	}
	return nil
}

// Alloc returns a zeroed slice of count elements of T, placed as
// requested. The slice is owned by the pool and remains valid until Close.
func Alloc[T any](p *Pool, count int, placement Placement) ([]T, error) {
	if err := p.validate(placement); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative count %d", types.ErrInvalidInput, count)
	}
	s := make([]T, count)
	var zero T
	sz := uintptr(count) * unsafe.Sizeof(zero)
	p.records = append(p.records, record{size: sz, placement: placement})
	return s, nil
}

// AllocMmap returns a zeroed byte slice backed by an anonymous mmap
// region, used for epoch-lifetime walker arrays that must be released
// explicitly via Close rather than waiting on the garbage collector
// (mirrors WalkerManager::alloc_walker_array / dealloc_walker_array).
func (p *Pool) AllocMmap(size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", types.ErrOutOfMemory, size, err)
	}
	p.records = append(p.records, record{size: uintptr(size), placement: Ignore(), mmapped: b})
	return b, nil
}

// TotalBytes sums the size of every allocation made so far, for the
// memory-quota accounting in pkg/walk.Engine.Prepare.
func (p *Pool) TotalBytes() uintptr {
	var total uintptr
	for _, r := range p.records {
		total += r.size
	}
	return total
}

// Close releases every mmap-backed allocation. Non-mmap allocations are
// ordinary Go slices and are left to the garbage collector.
func (p *Pool) Close() error {
	var firstErr error
	for _, r := range p.records {
		if r.mmapped == nil {
			continue
		}
		if err := unix.Munmap(r.mmapped); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.records = nil
	return firstErr
}
