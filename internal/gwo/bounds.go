package gwo

import "math"

// Bounds is a uniform per-component box [Lower, Upper].
type Bounds struct {
	Lower float64
	Upper float64
}

// Clamp limits v to the box.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Lower, math.Min(b.Upper, v))
}

// ClampVector clamps every component of x in place.
func (b Bounds) ClampVector(x []float64) {
	for i := range x {
		x[i] = b.Clamp(x[i])
	}
}

// Contains reports whether every component of x lies inside the box.
func (b Bounds) Contains(x []float64) bool {
	for _, v := range x {
		if v < b.Lower || v > b.Upper {
			return false
		}
	}
	return true
}

// Sample draws a uniform point inside the box.
func (b Bounds) Sample(dim int, rng RandomSource) []float64 {
	x := make([]float64, dim)
	for j := range x {
		x[j] = b.Lower + (b.Upper-b.Lower)*rng.Float64()
	}
	return x
}
