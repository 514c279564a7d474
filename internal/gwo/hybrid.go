package gwo

import "math"

const (
	// Inertia weights the previous velocity.
	Inertia = 0.7
	// Cognitive pulls toward the candidate's personal best.
	Cognitive = 1.5
	// Social pulls toward the leader attractor.
	Social = 1.5
)

// hybridStrategy moves candidates with PSO velocities whose social term is
// the mean of Alpha, Beta and Delta. Velocity and personal bests persist
// for the lifetime of the engine.
type hybridStrategy struct {
	box Bounds

	velocity  [][]float64
	best      [][]float64
	bestScore []float64
}

func (s *hybridStrategy) spawn(popSize, dim int, rng RandomSource) [][]float64 {
	pop := make([][]float64, popSize)
	s.velocity = make([][]float64, popSize)
	s.best = make([][]float64, popSize)
	s.bestScore = make([]float64, popSize)
	for i := range pop {
		pop[i] = s.box.Sample(dim, rng)
		s.velocity[i] = make([]float64, dim)
		s.best[i] = append([]float64(nil), pop[i]...)
		s.bestScore[i] = math.Inf(1)
	}
	return pop
}

// rank updates personal bests and hands their scores to the leader tracker.
func (s *hybridStrategy) rank(pop [][]float64, scores []float64) []float64 {
	for i, f := range scores {
		if f < s.bestScore[i] {
			s.bestScore[i] = f
			copy(s.best[i], pop[i])
		}
	}
	return append([]float64(nil), s.bestScore...)
}

func (s *hybridStrategy) coefficient(t, maxIter int) float64 {
	return linearDecay(t, maxIter)
}

func (s *hybridStrategy) move(pop [][]float64, leaders Leaders, _ float64, rng RandomSource) {
	for i, x := range pop {
		v := s.velocity[i]
		for j := range x {
			attractor := (leaders.Alpha.Position[j] + leaders.Beta.Position[j] + leaders.Delta.Position[j]) / 3
			r1, r2 := rng.Float64(), rng.Float64()
			v[j] = Inertia*v[j] +
				Cognitive*r1*(s.best[i][j]-x[j]) +
				Social*r2*(attractor-x[j])
			x[j] = s.box.Clamp(x[j] + v[j])
		}
	}
}
