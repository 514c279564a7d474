package opt

import (
	"github.com/cwbudde/greywolf/internal/gwo"
)

// GWOAdapter runs one grey wolf variant to its full budget.
type GWOAdapter struct {
	variant  gwo.Variant
	settings Settings
	clamp    bool
}

// NewGWO creates an adapter for variant. Continuous and chaotic runs are
// clamped to the box so results compare fairly with bounded baselines.
func NewGWO(variant gwo.Variant, s Settings) Optimizer {
	return &GWOAdapter{variant: variant, settings: s, clamp: true}
}

func (g *GWOAdapter) Name() string {
	return "gwo-" + string(g.variant)
}

func (g *GWOAdapter) Run(eval func([]float64) float64, lower, upper float64, dim int) ([]float64, float64, error) {
	e, err := gwo.New(gwo.Config{
		Variant: g.variant,
		Dim:     dim,
		PopSize: g.settings.PopSize,
		MaxIter: g.settings.MaxIters,
		Lower:   lower,
		Upper:   upper,
		Clamp:   g.clamp,
		Seed:    g.settings.Seed,
	}, gwo.Func(eval))
	if err != nil {
		return nil, 0, err
	}

	res, err := e.Run()
	if err != nil {
		return nil, 0, err
	}
	return res.Position, res.Score, nil
}
