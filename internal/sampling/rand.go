package sampling

import (
	"math/rand/v2"
)

// NewRand returns a generator seeded with *seed, or with fresh entropy when seed
// is nil.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
}

// Derive draws a seed pair from parent and returns an independent generator.
//
// Deriving sequentially from one parent in the dispatching goroutine keeps seeded
// runs reproducible no matter how workers are scheduled.
func Derive(parent *rand.Rand) *rand.Rand {
	return rand.New(rand.NewPCG(parent.Uint64(), parent.Uint64()))
}
