package types

import "errors"

//---ERROR-CODES---
// Sentinel errors returned across the engine's packages. Call sites wrap
// these with fmt.Errorf("...: %w", err) to attach context.
var (
	// ErrInvalidInput is returned when a graph, config, or CLI argument
	// fails validation before any work has started.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfMemory is returned when an allocation cannot be satisfied
	// within the configured memory quota.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidPlacement is returned when a memory allocation requests a
	// NUMA node on a machine without NUMA support, or an out-of-range
	// socket.
	ErrInvalidPlacement = errors.New("invalid numa placement")

	// ErrTopologyMismatch is returned when a graph or layout was built for
	// a different thread/socket topology than the one currently running.
	ErrTopologyMismatch = errors.New("topology mismatch")

	// ErrCorruptBenchmarkCache is returned when the on-disk micro-benchmark
	// catalogue cannot be parsed.
	ErrCorruptBenchmarkCache = errors.New("corrupt benchmark cache")

	// ErrIsolatedVertex is returned when a sampler is asked to draw a
	// neighbor of a zero-degree vertex.
	ErrIsolatedVertex = errors.New("vertex has no outgoing edges")

	// ErrEpochExhausted is returned when Engine.Walk is called after every
	// requested walker has already been emitted.
	ErrEpochExhausted = errors.New("no walkers remaining in this run")
)
