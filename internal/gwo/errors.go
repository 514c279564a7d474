package gwo

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig matches every *ConfigError via errors.Is.
var ErrInvalidConfig = errors.New("invalid optimizer configuration")

// ErrCompleted is returned by Step once the iteration budget is spent.
var ErrCompleted = errors.New("optimizer run already completed")

// ConfigError reports a configuration value rejected by New.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// EvaluationError wraps a failure of the objective function. The run is
// aborted; the candidate that failed is identified by its index.
type EvaluationError struct {
	Iteration int
	Candidate int
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("objective failed at iteration %d for candidate %d: %v", e.Iteration, e.Candidate, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
