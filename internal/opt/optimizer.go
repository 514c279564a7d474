// Package opt puts the grey wolf variants and baseline optimizers behind
// one interface so they can be benchmarked side by side.
package opt

// Optimizer minimises eval over the box [lower, upper]^dim.
type Optimizer interface {
	// Name identifies the optimizer in tables and plots.
	Name() string

	// Run returns the best position found and its score.
	Run(eval func([]float64) float64, lower, upper float64, dim int) ([]float64, float64, error)
}

// Settings shared by every optimizer in a comparison.
type Settings struct {
	MaxIters int
	PopSize  int
	Seed     int64
}
