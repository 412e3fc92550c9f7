package core

import "math/rand"

// Rand is the randomness source injected into game kernels, the AI, and the
// tournament pairing step. Isolating it behind an interface keeps physics and
// bracket tests deterministic. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded pseudo-random source. Match fairness does not
// require cryptographic randomness.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// Snapshot is the marker interface implemented by per-variant state
// snapshots broadcast to clients after each tick.
type Snapshot interface {
	IsSnapshot()
}
