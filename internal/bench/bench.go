// Package bench provides benchmark objectives from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization.
package bench

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	cos  = math.Cos
	exp  = math.Exp
	sqrt = math.Sqrt
)

// Func is a benchmark objective with a conventional search box.
type Func interface {
	Name() string
	Eval(x []float64) float64
	Bounds() (lower, upper float64)
	// Optimum is the global minimum value for any dimension.
	Optimum() float64
	// Binary reports whether the function is meant for 0/1 vectors.
	Binary() bool
}

var registry = map[string]Func{}

func register(fn Func) {
	registry[strings.ToLower(fn.Name())] = fn
}

func init() {
	register(Sphere{})
	register(Rastrigin{})
	register(Ackley{})
	register(Rosenbrock{})
	register(Griewank{})
	register(OneMax{})
}

// Lookup finds a function by case-insensitive name.
func Lookup(name string) (Func, error) {
	fn, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown objective %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists the registered functions alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, fn := range registry {
		names = append(names, fn.Name())
	}
	sort.Strings(names)
	return names
}

// Continuous returns the registered functions defined over real vectors.
func Continuous() []Func {
	var fns []Func
	for _, name := range Names() {
		fn := registry[strings.ToLower(name)]
		if !fn.Binary() {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Sphere is sum(x_i^2). Used with 0/1 vectors it counts set bits.
type Sphere struct{}

func (Sphere) Name() string { return "Sphere" }

func (Sphere) Eval(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func (Sphere) Bounds() (float64, float64) { return -10, 10 }
func (Sphere) Optimum() float64           { return 0 }
func (Sphere) Binary() bool               { return false }

type Rastrigin struct{}

func (Rastrigin) Name() string { return "Rastrigin" }

func (Rastrigin) Eval(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*cos(2*math.Pi*v)
	}
	return sum
}

func (Rastrigin) Bounds() (float64, float64) { return -5.12, 5.12 }
func (Rastrigin) Optimum() float64           { return 0 }
func (Rastrigin) Binary() bool               { return false }

// Ackley is the n-dimensional generalisation.
type Ackley struct{}

func (Ackley) Name() string { return "Ackley" }

func (Ackley) Eval(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(1)
	}
	n := float64(len(x))
	var sq, cs float64
	for _, v := range x {
		sq += v * v
		cs += cos(2 * math.Pi * v)
	}
	return -20*exp(-0.2*sqrt(sq/n)) - exp(cs/n) + 20 + math.E
}

func (Ackley) Bounds() (float64, float64) { return -5, 5 }
func (Ackley) Optimum() float64           { return 0 }
func (Ackley) Binary() bool               { return false }

type Rosenbrock struct{}

func (Rosenbrock) Name() string { return "Rosenbrock" }

func (Rosenbrock) Eval(x []float64) float64 {
	var sum float64
	for i := 0; i+1 < len(x); i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

func (Rosenbrock) Bounds() (float64, float64) { return -5, 10 }
func (Rosenbrock) Optimum() float64           { return 0 }
func (Rosenbrock) Binary() bool               { return false }

type Griewank struct{}

func (Griewank) Name() string { return "Griewank" }

func (Griewank) Eval(x []float64) float64 {
	var sum float64
	prod := 1.0
	for i, v := range x {
		sum += v * v / 4000
		prod *= cos(v / sqrt(float64(i+1)))
	}
	return sum - prod + 1
}

func (Griewank) Bounds() (float64, float64) { return -600, 600 }
func (Griewank) Optimum() float64           { return 0 }
func (Griewank) Binary() bool               { return false }

// OneMax counts the bits that are not zero; the minimum is the zero vector.
type OneMax struct{}

func (OneMax) Name() string { return "OneMax" }

func (OneMax) Eval(x []float64) float64 {
	var n float64
	for _, v := range x {
		if v != 0 {
			n++
		}
	}
	return n
}

func (OneMax) Bounds() (float64, float64) { return 0, 1 }
func (OneMax) Optimum() float64           { return 0 }
func (OneMax) Binary() bool               { return true }
