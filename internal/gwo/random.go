package gwo

import "math/rand"

// RandomSource produces independent uniform draws in [0,1).
// *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a seeded source owned by a single engine.
func NewRandomSource(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}
