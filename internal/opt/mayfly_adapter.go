package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinMayflyPop is the smallest population the mayfly library accepts.
const MinMayflyPop = 20

// MayflyAdapter wraps the external Mayfly library as a baseline.
type MayflyAdapter struct {
	settings Settings
}

// NewMayfly creates a new Mayfly optimizer adapter.
func NewMayfly(s Settings) Optimizer {
	return &MayflyAdapter{settings: s}
}

func (m *MayflyAdapter) Name() string {
	return "mayfly"
}

// Run executes the Mayfly optimization using the external library.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper float64, dim int) ([]float64, float64, error) {
	if m.settings.PopSize < MinMayflyPop {
		return nil, 0, fmt.Errorf("mayfly needs a population of at least %d, got %d", MinMayflyPop, m.settings.PopSize)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.settings.MaxIters
	config.NPop = m.settings.PopSize
	config.LowerBound = lower
	config.UpperBound = upper
	config.Rand = rand.New(rand.NewSource(m.settings.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly: %w", err)
	}
	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
