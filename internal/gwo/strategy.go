package gwo

import "fmt"

// Variant names one of the position update rules.
type Variant string

const (
	Continuous Variant = "continuous"
	Binary     Variant = "binary"
	Chaotic    Variant = "chaotic"
	Hybrid     Variant = "hybrid"
)

// Variants lists every supported variant in presentation order.
func Variants() []Variant {
	return []Variant{Continuous, Binary, Chaotic, Hybrid}
}

// ParseVariant resolves a variant name.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variant: %q", s)
}

const (
	// ChaosSeed is the initial logistic map state; it avoids the map's
	// fixed points and short periodic orbits.
	ChaosSeed = 0.7
	// ChaosWeight mixes the chaotic state into the linear decay.
	ChaosWeight = 0.1
)

// strategy is the per-variant part of an iteration.
type strategy interface {
	// spawn draws the initial pack.
	spawn(popSize, dim int, rng RandomSource) [][]float64
	// rank returns the scores the leader tracker ranks for this iteration.
	rank(pop [][]float64, scores []float64) []float64
	// coefficient returns a for iteration t.
	coefficient(t, maxIter int) float64
	// move produces the next generation in place.
	move(pop [][]float64, leaders Leaders, a float64, rng RandomSource)
}

func newStrategy(cfg Config) strategy {
	box := Bounds{Lower: cfg.Lower, Upper: cfg.Upper}
	switch cfg.Variant {
	case Binary:
		return &binaryStrategy{}
	case Chaotic:
		return &chaoticStrategy{continuousStrategy: continuousStrategy{box: box, clamp: cfg.Clamp}, ch: ChaosSeed}
	case Hybrid:
		return &hybridStrategy{box: box}
	default:
		return &continuousStrategy{box: box, clamp: cfg.Clamp}
	}
}

// linearDecay is a(t) = 2 - t*(2/maxIter).
func linearDecay(t, maxIter int) float64 {
	return 2 - float64(t)*(2/float64(maxIter))
}

// attract averages the pull of x (component j) toward each leader.
// Draws r1 then r2 per leader, Alpha first.
func attract(x float64, j int, leaders Leaders, a float64, rng RandomSource) float64 {
	var sum float64
	for _, w := range [3]Wolf{leaders.Alpha, leaders.Beta, leaders.Delta} {
		r1, r2 := rng.Float64(), rng.Float64()
		A := 2*a*r1 - a
		C := 2 * r2
		D := abs(C*w.Position[j] - x)
		sum += w.Position[j] - A*D
	}
	return sum / 3
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type continuousStrategy struct {
	box   Bounds
	clamp bool
}

func (s *continuousStrategy) spawn(popSize, dim int, rng RandomSource) [][]float64 {
	pop := make([][]float64, popSize)
	for i := range pop {
		pop[i] = s.box.Sample(dim, rng)
	}
	return pop
}

func (s *continuousStrategy) rank(_ [][]float64, scores []float64) []float64 {
	return scores
}

func (s *continuousStrategy) coefficient(t, maxIter int) float64 {
	return linearDecay(t, maxIter)
}

func (s *continuousStrategy) move(pop [][]float64, leaders Leaders, a float64, rng RandomSource) {
	for _, x := range pop {
		for j := range x {
			x[j] = attract(x[j], j, leaders, a, rng)
		}
		if s.clamp {
			s.box.ClampVector(x)
		}
	}
}

type binaryStrategy struct{}

func (s *binaryStrategy) spawn(popSize, dim int, rng RandomSource) [][]float64 {
	pop := make([][]float64, popSize)
	for i := range pop {
		pop[i] = make([]float64, dim)
		for j := range pop[i] {
			if rng.Float64() < 0.5 {
				pop[i][j] = 1
			}
		}
	}
	return pop
}

func (s *binaryStrategy) rank(_ [][]float64, scores []float64) []float64 {
	return scores
}

func (s *binaryStrategy) coefficient(t, maxIter int) float64 {
	return linearDecay(t, maxIter)
}

// move re-samples every bit as a Bernoulli trial on the transfer
// probability of the averaged continuous step.
func (s *binaryStrategy) move(pop [][]float64, leaders Leaders, a float64, rng RandomSource) {
	for _, x := range pop {
		for j := range x {
			p := Sigmoid(attract(x[j], j, leaders, a, rng))
			if rng.Float64() < p {
				x[j] = 1
			} else {
				x[j] = 0
			}
		}
	}
}

type chaoticStrategy struct {
	continuousStrategy
	ch float64
}

// coefficient advances the logistic map before mixing it into the decay.
func (s *chaoticStrategy) coefficient(t, maxIter int) float64 {
	s.ch = LogisticMap(s.ch)
	return linearDecay(t, maxIter) + ChaosWeight*s.ch
}
