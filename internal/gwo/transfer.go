package gwo

import "math"

const (
	// SigmoidSteepness controls how sharply a virtual position snaps to 0 or 1.
	SigmoidSteepness = 10.0
	// SigmoidMidpoint is the position mapped to probability 0.5.
	SigmoidMidpoint = 0.5
)

// Sigmoid is the S-shaped transfer function used by the binary variant.
// It maps any real value to a probability in (0,1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-SigmoidSteepness*(x-SigmoidMidpoint)))
}

// LogisticMap advances the chaotic state one step at r=4.
func LogisticMap(x float64) float64 {
	return 4 * x * (1 - x)
}
