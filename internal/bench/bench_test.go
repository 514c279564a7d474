package bench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimaAtOrigin(t *testing.T) {
	for _, name := range []string{"sphere", "rastrigin", "ackley", "griewank", "onemax"} {
		fn, err := Lookup(name)
		require.NoError(t, err)
		assert.InDelta(t, fn.Optimum(), fn.Eval(make([]float64, 6)), 1e-12, fn.Name())
	}
}

func TestRosenbrockOptimum(t *testing.T) {
	assert.Equal(t, 0.0, Rosenbrock{}.Eval([]float64{1, 1, 1, 1}))
	assert.Equal(t, 100.0, Rosenbrock{}.Eval([]float64{0, 1}))
}

func TestSphereOnBits(t *testing.T) {
	assert.Equal(t, 3.0, Sphere{}.Eval([]float64{1, 0, 1, 1, 0}))
	assert.Equal(t, 3.0, OneMax{}.Eval([]float64{1, 0, 1, 1, 0}))
}

func TestAckleyEmpty(t *testing.T) {
	assert.True(t, math.IsInf(Ackley{}.Eval(nil), 1))
}

func TestLookup(t *testing.T) {
	fn, err := Lookup("RASTRIGIN")
	require.NoError(t, err)
	assert.Equal(t, "Rastrigin", fn.Name())

	_, err = Lookup("himmelblau")
	assert.ErrorContains(t, err, "Sphere")
}

func TestContinuousExcludesBinary(t *testing.T) {
	for _, fn := range Continuous() {
		assert.False(t, fn.Binary(), fn.Name())
	}
	assert.Len(t, Continuous(), len(Names())-1)
}

func TestBoundsOrdered(t *testing.T) {
	for _, name := range Names() {
		fn, _ := Lookup(name)
		lo, hi := fn.Bounds()
		assert.Less(t, lo, hi, name)
	}
}
