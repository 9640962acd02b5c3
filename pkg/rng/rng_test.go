package rng

import "testing"

func TestNextIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 1000; i++ {
		if got, want := a.Next(), b.Next(); got != want {
			t.Fatalf("iteration %d: got %d, want %d", i, got, want)
		}
	}
}

func TestZeroSeedIsRemapped(t *testing.T) {
	s := New(0)
	if s.seed == 0 {
		t.Fatal("zero seed must be remapped to a nonzero constant")
	}
}

func TestGenRespectsUpperBound(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		v := s.Gen(17)
		if v >= 17 {
			t.Fatalf("Gen(17) returned %d", v)
		}
	}
}

func TestGenFloatRange(t *testing.T) {
	s := New(99)
	for i := 0; i < 10000; i++ {
		v := s.GenFloat(2.5)
		if v < 0 || v > 2.5 {
			t.Fatalf("GenFloat(2.5) returned %f", v)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	if same > 1 {
		t.Fatalf("seeds 1 and 2 produced %d identical draws out of 100", same)
	}
}
