package mempool

import (
	"testing"

	"github.com/flashmobwalk/flashmob/pkg/types"
)

func cfg() types.MultiThreadConfig {
	return types.MultiThreadConfig{ThreadNum: 4, SocketNum: 2, NumaAvailable: true}
}

func TestAllocZeroesAndSizes(t *testing.T) {
	p := New(cfg())
	s, err := Alloc[uint32](p, 10, Ignore())
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 10 {
		t.Fatalf("len = %d, want 10", len(s))
	}
	for _, v := range s {
		if v != 0 {
			t.Fatal("allocation not zeroed")
		}
	}
	if p.TotalBytes() != 40 {
		t.Fatalf("TotalBytes = %d, want 40", p.TotalBytes())
	}
}

func TestNodePlacementRejectedWithoutNuma(t *testing.T) {
	c := cfg()
	c.NumaAvailable = false
	p := New(c)
	if _, err := Alloc[uint32](p, 1, Node(0)); err == nil {
		t.Fatal("expected ErrInvalidPlacement when numa is unavailable")
	}
}

func TestNodePlacementRejectedOutOfRange(t *testing.T) {
	p := New(cfg())
	if _, err := Alloc[uint32](p, 1, Node(5)); err == nil {
		t.Fatal("expected ErrInvalidPlacement for out-of-range socket")
	}
}

func TestCounterTalliesAlignedSizes(t *testing.T) {
	var c Counter
	Count[uint32](&c, 1, true)
	if c.Bytes() != 64 {
		t.Fatalf("Bytes = %d, want 64 (rounded up to cache line)", c.Bytes())
	}
	Count[uint64](&c, 8, false)
	if c.Bytes() != 64+64 {
		t.Fatalf("Bytes = %d, want 128", c.Bytes())
	}
}

func TestMmapRoundTrip(t *testing.T) {
	p := New(cfg())
	b, err := p.AllocMmap(4096)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 4096 {
		t.Fatalf("len = %d, want 4096", len(b))
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
