// Package rng implements the xorshift* generator the engine uses for every
// sampling decision, ported bit-for-bit from include/random.hpp's
// XorRandGen so that seeded runs remain reproducible across the port.
package rng

import "github.com/flashmobwalk/flashmob/pkg/types"

const multiplier = 0x2545F4914F6CDD1D

// Source is a single xorshift* generator, padded to a cache line so that
// one per worker thread never false-shares with its neighbors.
type Source struct {
	seed    uint64
	padding [types.CacheLineSize - 8]byte
}

// New returns a Source seeded with v. A zero seed is remapped to a fixed
// nonzero constant, since xorshift* never recovers from an all-zero state.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &Source{seed: seed}
}

// Next draws the next raw 64-bit value and advances the state.
func (s *Source) Next() uint64 {
	ret := s.seed * multiplier
	s.seed ^= s.seed >> 12
	s.seed ^= s.seed << 25
	s.seed ^= s.seed >> 27
	return ret
}

// Gen draws a uniform value in [0, upperBound).
func (s *Source) Gen(upperBound uint64) uint64 {
	if upperBound == 0 {
		return 0
	}
	return s.Next() % upperBound
}

// GenFloat draws a uniform float64 in [0, upperBound] (both ends included), at 16-bit
// resolution, matching the original's gen_float mask-and-scale scheme.
func (s *Source) GenFloat(upperBound float64) float64 {
	v := s.Next() & 0xFFFF
	return float64(v) / 65535.0 * upperBound
}
