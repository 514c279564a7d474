// Package gwo implements the Grey Wolf Optimizer and its binary, chaotic and
// PSO-hybrid variants.
//
// An Engine owns its pack, leader tracker and random source. It is not safe
// for concurrent use; separate engines share nothing.
package gwo

import "fmt"

// Objective scores a candidate; lower is better. For the binary variant
// every component is 0 or 1.
type Objective func(x []float64) (float64, error)

// Func adapts an infallible objective.
func Func(f func([]float64) float64) Objective {
	return func(x []float64) (float64, error) {
		return f(x), nil
	}
}

// Config holds the parameters of one run. It is validated once by New.
type Config struct {
	Variant Variant
	Dim     int
	PopSize int
	MaxIter int

	// Lower and Upper bound every component. Ignored by the binary variant.
	Lower float64
	Upper float64

	// Clamp confines continuous and chaotic updates to the bounds.
	// The hybrid variant always clamps.
	Clamp bool

	LeaderPolicy LeaderPolicy

	// Seed initialises the engine's random source unless Rand is set.
	Seed int64
	Rand RandomSource

	// Progress is called after every iteration with Alpha's score.
	Progress func(iteration int, best float64)
}

// Validate checks c and returns a *ConfigError for the first bad field.
func (c Config) Validate() error {
	if _, err := ParseVariant(string(c.Variant)); err != nil {
		return &ConfigError{Field: "Variant", Reason: fmt.Sprintf("%q is not a known variant", c.Variant)}
	}
	if c.Dim <= 0 {
		return &ConfigError{Field: "Dim", Reason: "must be positive"}
	}
	if c.PopSize <= 0 {
		return &ConfigError{Field: "PopSize", Reason: "must be positive"}
	}
	if c.MaxIter < 0 {
		return &ConfigError{Field: "MaxIter", Reason: "cannot be negative"}
	}
	if c.Variant != Binary && !(c.Lower < c.Upper) {
		return &ConfigError{Field: "Lower", Reason: "must be less than Upper"}
	}
	switch c.LeaderPolicy {
	case "", PolicyRank, PolicyCascade:
	default:
		return &ConfigError{Field: "LeaderPolicy", Reason: fmt.Sprintf("%q is not a known policy", c.LeaderPolicy)}
	}
	return nil
}

// State is the engine lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the outcome of a run.
type Result struct {
	Variant    Variant   `json:"variant"`
	Position   []float64 `json:"position"`
	Score      float64   `json:"score"`
	History    []float64 `json:"history"`
	Iterations int       `json:"iterations"`
}

// Engine runs one optimisation.
type Engine struct {
	cfg      Config
	obj      Objective
	rng      RandomSource
	strategy strategy
	tracker  *LeaderTracker

	pop     [][]float64
	scores  []float64
	history []float64
	t       int
	state   State
	err     error
}

// New validates cfg and draws the initial pack.
func New(cfg Config, obj Objective) (*Engine, error) {
	if obj == nil {
		return nil, &ConfigError{Field: "Objective", Reason: "cannot be nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LeaderPolicy == "" {
		cfg.LeaderPolicy = PolicyRank
	}

	rng := cfg.Rand
	if rng == nil {
		rng = NewRandomSource(cfg.Seed)
	}

	s := newStrategy(cfg)
	return &Engine{
		cfg:      cfg,
		obj:      obj,
		rng:      rng,
		strategy: s,
		tracker:  NewLeaderTracker(cfg.Dim, cfg.LeaderPolicy),
		pop:      s.spawn(cfg.PopSize, cfg.Dim, rng),
		scores:   make([]float64, cfg.PopSize),
		history:  make([]float64, 0, cfg.MaxIter),
	}, nil
}

// Step runs one iteration: evaluate, update leaders, compute a, move, record.
// It returns ErrCompleted once the budget is spent and the objective's
// failure, wrapped in *EvaluationError, if evaluation fails.
func (e *Engine) Step() error {
	if e.state == StateCompleted {
		if e.err != nil {
			return e.err
		}
		return ErrCompleted
	}

	if e.cfg.MaxIter == 0 {
		// Nothing to iterate; rank the initial pack so Alpha is meaningful.
		if err := e.evaluate(); err != nil {
			return e.fail(err)
		}
		e.tracker.Update(e.pop, e.scores)
		e.state = StateCompleted
		return nil
	}

	e.state = StateRunning
	if err := e.evaluate(); err != nil {
		return e.fail(err)
	}

	leaders := e.tracker.Update(e.pop, e.strategy.rank(e.pop, e.scores))
	a := e.strategy.coefficient(e.t, e.cfg.MaxIter)
	e.strategy.move(e.pop, leaders, a, e.rng)

	e.history = append(e.history, leaders.Alpha.Score)
	if e.cfg.Progress != nil {
		e.cfg.Progress(e.t, leaders.Alpha.Score)
	}

	e.t++
	if e.t >= e.cfg.MaxIter {
		e.state = StateCompleted
	}
	return nil
}

// Run steps until the budget is spent or the objective fails. The result is
// returned in both cases.
func (e *Engine) Run() (*Result, error) {
	for !e.Done() {
		if err := e.Step(); err != nil {
			return e.Result(), err
		}
	}
	return e.Result(), e.err
}

func (e *Engine) evaluate() error {
	for i, x := range e.pop {
		f, err := e.obj(append([]float64(nil), x...))
		if err != nil {
			return &EvaluationError{Iteration: e.t, Candidate: i, Err: err}
		}
		e.scores[i] = f
	}
	return nil
}

func (e *Engine) fail(err error) error {
	e.err = err
	e.state = StateCompleted
	return err
}

// Done reports whether the engine has completed.
func (e *Engine) Done() bool {
	return e.state == StateCompleted
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Err returns the error that aborted the run, if any.
func (e *Engine) Err() error {
	return e.err
}

// Iteration returns the number of completed iterations.
func (e *Engine) Iteration() int {
	return e.t
}

// Config returns the validated configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Leaders returns a deep copy of the current leader triple.
func (e *Engine) Leaders() Leaders {
	return e.tracker.Leaders().Clone()
}

// Best returns Alpha.
func (e *Engine) Best() Wolf {
	return e.tracker.Leaders().Alpha.clone()
}

// History returns a copy of the convergence history.
func (e *Engine) History() []float64 {
	return append([]float64(nil), e.history...)
}

// Population returns a deep copy of the current pack.
func (e *Engine) Population() [][]float64 {
	pop := make([][]float64, len(e.pop))
	for i, x := range e.pop {
		pop[i] = append([]float64(nil), x...)
	}
	return pop
}

// Result snapshots Alpha and the history.
func (e *Engine) Result() *Result {
	best := e.Best()
	return &Result{
		Variant:    e.cfg.Variant,
		Position:   best.Position,
		Score:      best.Score,
		History:    e.History(),
		Iterations: e.t,
	}
}
